package conductor

import "errors"

var (
	// ErrInvalidRequest is returned when ExecuteTask is called with an
	// empty objective or desktop_id.
	ErrInvalidRequest = errors.New("conductor: objective and desktop_id are required")
	// ErrRunNotFound is returned by GetTaskState for an unknown run_id.
	ErrRunNotFound = errors.New("conductor: run not found")
	// ErrCapabilityUnavailable folds the run to Blocked, with this error's
	// text and the capability name as its fail reason, when the policy asks
	// to spawn a capability with no registered worker.
	ErrCapabilityUnavailable = errors.New("conductor: capability unavailable")
	// ErrPolicyMalformed is the deterministic fallback reason when the
	// policy advisor's output cannot be decoded into a Decision.
	ErrPolicyMalformed = errors.New("conductor: policy output malformed")
)
