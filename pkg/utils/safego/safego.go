// Package safego launches detached goroutines that recover from panics and
// log them instead of crashing the process. The conductor runtime relies on
// this for its async-dispatch path: any long-running capability call is
// fired from a message handler as a goroutine, never awaited inline.
package safego

import (
	"context"
	"runtime/debug"

	"github.com/kiosk404/echoryn/pkg/logger"
)

// Go runs fn in a new goroutine, recovering any panic and logging it with a
// stack trace. ctx is accepted for call-site symmetry with
// `safego.Go(abort.Context(), func(){...})`-style call sites; it is not
// used to cancel fn (fn must itself observe ctx.Done() if it wants to stop
// early).
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in detached goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// GoErr runs fn in a new goroutine, delivering its returned error (or the
// recovered panic converted to an error) to onErr. onErr is invoked on the
// goroutine, not the caller.
func GoErr(ctx context.Context, fn func() error, onErr func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in detached goroutine: %v\n%s", r, debug.Stack())
				if onErr != nil {
					onErr(panicErr{r})
				}
			}
		}()
		if err := fn(); err != nil && onErr != nil {
			onErr(err)
		}
	}()
}

type panicErr struct{ v interface{} }

func (p panicErr) Error() string { return "recovered panic" }
