// Package terminal implements the only capability worker allowed to run a
// shell command on the Conductor's behalf, per the shell-isolation
// invariant: every other adapter reaches a shell only by dispatching
// through this worker.
package terminal

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
)

// SandboxDialer is the narrow seam onto the external sandbox process —
// direct spawn or containerized. The Terminal worker never manages the
// sandbox's lifecycle itself, only dials it once it is believed to be
// listening.
type SandboxDialer interface {
	// Dial connects to the sandbox's TCP readiness port for desktopID,
	// retrying internally until ctx is done.
	Dial(ctx context.Context, desktopID string) (net.Conn, error)
	// Exec runs command inside the sandbox rooted at desktopID and returns
	// its combined stdout/stderr and exit code.
	Exec(ctx context.Context, desktopID, command string) (output string, exitCode int, err error)
}

// ReadinessTimeout bounds how long Dial may block waiting for the sandbox's
// connect-readiness.
const ReadinessTimeout = 30 * time.Second

// Worker is the Terminal capability worker.
type Worker struct {
	dialer SandboxDialer
	events eventstore.Store
}

// New constructs a Terminal worker. events may be nil in tests that don't
// care about lifecycle emission.
func New(dialer SandboxDialer, events eventstore.Store) *Worker {
	return &Worker{dialer: dialer, events: events}
}

func (w *Worker) Capability() worker.Capability { return worker.CapabilityTerminal }

// Run executes req.Params["command"] inside the sandbox rooted at
// req.DesktopID. A nil dialer fails fast with FailureKindError; the module
// registers the terminal capability only when a dialer is configured.
func (w *Worker) Run(ctx context.Context, req worker.Request) worker.Result {
	lc := worker.NewLifecycle(w.events, req.RunID, req.CallID, fmt.Sprintf("worker:terminal:%s", req.CallID))
	lc.Started(ctx, req.Objective)

	if w.dialer == nil {
		return worker.Result{
			Err:         fmt.Errorf("terminal: no sandbox dialer configured"),
			FailureKind: worker.FailureKindError,
		}
	}

	command, _ := req.Params["command"].(string)
	if command == "" {
		return worker.Result{
			Err:         fmt.Errorf("terminal: missing required param %q", "command"),
			FailureKind: worker.FailureKindError,
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, ReadinessTimeout)
	defer cancel()
	if _, err := w.dialer.Dial(dialCtx, req.DesktopID); err != nil {
		lc.Failed(ctx, worker.FailureKindTimeout, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindTimeout}
	}

	lc.ToolCall(ctx, "bash", map[string]interface{}{"command": command})
	start := time.Now()
	output, exitCode, err := w.dialer.Exec(ctx, req.DesktopID, command)
	lc.ToolResult(ctx, "bash", err == nil && exitCode == 0, time.Since(start).Milliseconds(), err)

	if err != nil {
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}
	if exitCode != 0 {
		execErr := fmt.Errorf("terminal: command exited %d", exitCode)
		lc.Failed(ctx, worker.FailureKindError, execErr)
		return worker.Result{Err: execErr, FailureKind: worker.FailureKindError}
	}

	res := worker.Result{Summary: output}
	lc.Completed(ctx, res)
	return res
}
