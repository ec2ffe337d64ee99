package eventstore

import "errors"

var (
	// ErrStoreFull is fatal for the process.
	ErrStoreFull = errors.New("event store: backing store exhausted")
	// ErrInvalidEvent is a caller error: the payload violates the schema.
	ErrInvalidEvent = errors.New("event store: invalid event")
	ErrClosed       = errors.New("event store: closed")
)
