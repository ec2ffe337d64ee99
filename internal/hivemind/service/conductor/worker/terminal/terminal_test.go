package terminal

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	dialErr  error
	output   string
	exitCode int
	execErr  error
}

func (f *fakeDialer) Dial(ctx context.Context, desktopID string) (net.Conn, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return nil, nil
}

func (f *fakeDialer) Exec(ctx context.Context, desktopID, command string) (string, int, error) {
	return f.output, f.exitCode, f.execErr
}

func TestTerminalWorker_Success(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(&fakeDialer{output: "file1\nfile2"}, events)
	require.Equal(t, worker.CapabilityTerminal, w.Capability())

	res := w.Run(context.Background(), worker.Request{
		RunID:     "run-1",
		CallID:    "call-1",
		DesktopID: "d1",
		Objective: "list files",
		Params:    map[string]interface{}{"command": "ls"},
	})

	require.NoError(t, res.Err)
	require.Equal(t, "file1\nfile2", res.Summary)

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "worker.task."})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(recent), 2) // started + completed
}

func TestTerminalWorker_MissingCommand(t *testing.T) {
	w := New(&fakeDialer{}, nil)
	res := w.Run(context.Background(), worker.Request{RunID: "r", CallID: "c", DesktopID: "d1"})
	require.Error(t, res.Err)
	require.Equal(t, worker.FailureKindError, res.FailureKind)
}

func TestTerminalWorker_DialFailure(t *testing.T) {
	w := New(&fakeDialer{dialErr: errors.New("connection refused")}, nil)
	res := w.Run(context.Background(), worker.Request{
		RunID: "r", CallID: "c", DesktopID: "d1",
		Params: map[string]interface{}{"command": "ls"},
	})
	require.Error(t, res.Err)
	require.Equal(t, worker.FailureKindTimeout, res.FailureKind)
}

func TestTerminalWorker_NonZeroExit(t *testing.T) {
	w := New(&fakeDialer{exitCode: 1, output: "boom"}, nil)
	res := w.Run(context.Background(), worker.Request{
		RunID: "r", CallID: "c", DesktopID: "d1",
		Params: map[string]interface{}{"command": "false"},
	})
	require.Error(t, res.Err)
	require.Equal(t, worker.FailureKindError, res.FailureKind)
}

func TestTerminalWorker_NoDialerConfigured(t *testing.T) {
	w := New(nil, nil)
	res := w.Run(context.Background(), worker.Request{
		RunID: "r", CallID: "c", DesktopID: "d1",
		Params: map[string]interface{}{"command": "ls"},
	})
	require.Error(t, res.Err)
}
