package writer

import "errors"

var (
	// ErrQueueFull is returned by EnqueueInbound when the inbound queue has
	// reached its configured maximum length.
	ErrQueueFull = errors.New("writer: inbound queue full")
	// ErrClosed is returned once the actor has been stopped.
	ErrClosed = errors.New("writer: actor closed")
)
