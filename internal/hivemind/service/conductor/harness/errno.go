package harness

import "errors"

var (
	// ErrCapabilityUnavailable is returned when the LLM requests a tool
	// name that has no entry in ToolPolicy.
	ErrCapabilityUnavailable = errors.New("harness: capability unavailable")
	// ErrMaxTurnsExceeded is the fatal outcome when the turn counter hits
	// max_turns without the LLM calling "finished".
	ErrMaxTurnsExceeded = errors.New("harness: max turns exceeded")
	// ErrContextResolutionFailed is returned once a context source has
	// exhausted its retries.
	ErrContextResolutionFailed = errors.New("harness: context resolution failed")
)
