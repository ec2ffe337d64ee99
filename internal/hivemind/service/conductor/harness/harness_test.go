package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePort struct {
	decisions   []LLMDecision
	callIdx     int
	dispatched  []ToolCall
	checkpoints []Checkpoint
	resolveFunc func(src ContextSource) (string, bool, error)
}

func (f *fakePort) ResolveContext(ctx context.Context, src ContextSource) (string, bool, error) {
	if f.resolveFunc != nil {
		return f.resolveFunc(src)
	}
	return "", false, nil
}

func (f *fakePort) ExecuteInlineTool(ctx context.Context, call ToolCall) ToolOutcome {
	return ToolOutcome{Output: "ok:" + call.Name}
}

func (f *fakePort) DispatchAsyncTool(ctx context.Context, call ToolCall) (string, error) {
	f.dispatched = append(f.dispatched, call)
	return "corr-1", nil
}

func (f *fakePort) CallLLM(ctx context.Context, transcript []Turn, tools []string) (LLMDecision, error) {
	d := f.decisions[f.callIdx]
	f.callIdx++
	return d, nil
}

func (f *fakePort) CallRawLLM(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func (f *fakePort) EmitMessage(ctx context.Context, message string) {}

func (f *fakePort) WriteCheckpoint(ctx context.Context, cp Checkpoint) {
	f.checkpoints = append(f.checkpoints, cp)
}

func (f *fakePort) SpawnSubHarness(ctx context.Context, objective string) (string, error) {
	return "sub-1", nil
}

func TestHarness_CompletesOnFinished(t *testing.T) {
	port := &fakePort{decisions: []LLMDecision{{Finished: true, Summary: "done"}}}
	h := New(port, Config{MaxTurns: 5}, []string{"file_read"})

	out := h.Run(context.Background())
	require.NoError(t, out.Err)
	require.True(t, out.Completed)
	require.Equal(t, "done", out.Summary)
	require.Equal(t, 1, out.Turns)
}

func TestHarness_SyncToolExecutesInline(t *testing.T) {
	port := &fakePort{decisions: []LLMDecision{
		{ToolCalls: []ToolCall{{Name: "file_read", Args: map[string]interface{}{"path": "a.txt"}}}},
		{Finished: true, Summary: "done"},
	}}
	h := New(port, Config{MaxTurns: 5}, nil)

	out := h.Run(context.Background())
	require.NoError(t, out.Err)
	require.True(t, out.Completed)
	require.Len(t, port.dispatched, 0)
}

func TestHarness_AsyncToolEndsTurnAndTracksPending(t *testing.T) {
	resolved := false
	port := &fakePort{
		decisions: []LLMDecision{
			{ToolCalls: []ToolCall{{Name: "bash", Args: map[string]interface{}{"command": "ls"}}}},
			{Finished: true, Summary: "done"},
		},
		resolveFunc: func(src ContextSource) (string, bool, error) {
			if src.Kind == ContextSourceToolOutput && src.CorrID == "corr-1" {
				resolved = true
				return "file list", true, nil
			}
			return "", false, nil
		},
	}
	h := New(port, Config{MaxTurns: 5}, nil)

	out := h.Run(context.Background())
	require.NoError(t, out.Err)
	require.True(t, out.Completed)
	require.Len(t, port.dispatched, 1)
	require.Equal(t, "bash", port.dispatched[0].Name)
	require.True(t, resolved)
	// first checkpoint should show the pending corr id before it resolved.
	require.Contains(t, port.checkpoints[0].PendingCorrIDs, "corr-1")
}

func TestHarness_UnknownToolFailsWithCapabilityUnavailable(t *testing.T) {
	port := &fakePort{decisions: []LLMDecision{
		{ToolCalls: []ToolCall{{Name: "mystery_tool"}}},
	}}
	h := New(port, Config{MaxTurns: 5}, nil)

	out := h.Run(context.Background())
	require.Error(t, out.Err)
	require.True(t, errors.Is(out.Err, ErrCapabilityUnavailable))
}

func TestHarness_MaxTurnsExceeded(t *testing.T) {
	decisions := make([]LLMDecision, 3)
	for i := range decisions {
		decisions[i] = LLMDecision{ToolCalls: []ToolCall{{Name: "file_read"}}}
	}
	port := &fakePort{decisions: decisions}
	h := New(port, Config{MaxTurns: 3}, nil)

	out := h.Run(context.Background())
	require.ErrorIs(t, out.Err, ErrMaxTurnsExceeded)
	require.Equal(t, 3, out.Turns)
}

func TestHarness_ContextResolutionExhaustsRetries(t *testing.T) {
	decisions := []LLMDecision{
		{ToolCalls: []ToolCall{{Name: "bash"}}}, // turn 1: dispatches, never resolves
		{ToolCalls: nil},                        // turn 2: resolvePending decrements 2->1, then a no-op turn
	}
	port := &fakePort{decisions: decisions}
	h := New(port, Config{MaxTurns: 20, ContextRetries: 2}, nil)

	out := h.Run(context.Background())
	require.ErrorIs(t, out.Err, ErrContextResolutionFailed)
	require.Equal(t, 2, out.Turns) // fails during turn 3's resolvePending, before consuming a 3rd decision
}
