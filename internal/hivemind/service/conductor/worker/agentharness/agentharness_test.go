package agentharness

import (
	"context"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/harness"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
)

type fakeChatModel struct {
	replies []string
	idx     int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	r := f.replies[f.idx]
	if f.idx < len(f.replies)-1 {
		f.idx++
	}
	return &schema.Message{Role: schema.Assistant, Content: r}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func newTestWriter(t *testing.T, runID string) (*writer.Actor, eventstore.Store) {
	t.Helper()
	doc := rundoc.NewRunDocument(runID, "write the report", "initial content")
	events := eventstore.NewInMemoryStore()
	a := writer.NewActor(doc, t.TempDir(), events, 4)
	ctx := context.Background()
	a.Start(ctx)
	t.Cleanup(a.Stop)
	return a, events
}

func TestAgentHarnessWorker_CompletesOnFirstTurn(t *testing.T) {
	w, events := newTestWriter(t, "run-1")
	cm := &fakeChatModel{replies: []string{`{"finished":true,"summary":"done reading"}`}}
	ww := New(cm, func(runID string) (*writer.Actor, bool) {
		if runID == "run-1" {
			return w, true
		}
		return nil, false
	}, nil, nil, events, harness.Config{MaxTurns: 3})

	require.Equal(t, worker.CapabilityHarness, ww.Capability())

	res := ww.Run(context.Background(), worker.Request{RunID: "run-1", CallID: "call-1", Objective: "read the doc"})
	require.NoError(t, res.Err)
	require.Equal(t, "done reading", res.Summary)
}

func TestAgentHarnessWorker_FileReadThenFinish(t *testing.T) {
	w, events := newTestWriter(t, "run-2")
	cm := &fakeChatModel{replies: []string{
		`{"finished":false,"tool_calls":[{"name":"file_read","args":{}}]}`,
		`{"finished":true,"summary":"saw the content"}`,
	}}
	ww := New(cm, func(runID string) (*writer.Actor, bool) {
		return w, true
	}, nil, nil, events, harness.Config{MaxTurns: 5})

	res := ww.Run(context.Background(), worker.Request{RunID: "run-2", CallID: "call-2", Objective: "inspect the doc"})
	require.NoError(t, res.Err)
	require.Equal(t, "saw the content", res.Summary)
}

func TestAgentHarnessWorker_FileWriteAppliesPatch(t *testing.T) {
	w, events := newTestWriter(t, "run-3")
	cm := &fakeChatModel{replies: []string{
		`{"finished":false,"tool_calls":[{"name":"file_write","args":{"content":" more"}}]}`,
		`{"finished":true,"summary":"wrote it"}`,
	}}
	ww := New(cm, func(runID string) (*writer.Actor, bool) {
		return w, true
	}, nil, nil, events, harness.Config{MaxTurns: 5})

	res := ww.Run(context.Background(), worker.Request{RunID: "run-3", CallID: "call-3", Objective: "append text"})
	require.NoError(t, res.Err)
	require.Contains(t, w.HeadContent(), "initial content more")
}

func TestAgentHarnessWorker_NoWriterBoundFails(t *testing.T) {
	cm := &fakeChatModel{replies: []string{`{"finished":true,"summary":"n/a"}`}}
	ww := New(cm, func(runID string) (*writer.Actor, bool) {
		return nil, false
	}, nil, nil, eventstore.NewInMemoryStore(), harness.Config{MaxTurns: 3})

	res := ww.Run(context.Background(), worker.Request{RunID: "missing-run", CallID: "call-4", Objective: "x"})
	require.Error(t, res.Err)
	require.Equal(t, worker.FailureKindError, res.FailureKind)
}

func TestAgentHarnessWorker_UnconfiguredToolFailsTurn(t *testing.T) {
	w, events := newTestWriter(t, "run-5")
	cm := &fakeChatModel{replies: []string{
		`{"finished":false,"tool_calls":[{"name":"web_search","args":{"query":"x"}}]}`,
	}}
	ww := New(cm, func(runID string) (*writer.Actor, bool) {
		return w, true
	}, nil, nil, events, harness.Config{MaxTurns: 3})

	res := ww.Run(context.Background(), worker.Request{RunID: "run-5", CallID: "call-5", Objective: "search"})
	require.Error(t, res.Err)
}
