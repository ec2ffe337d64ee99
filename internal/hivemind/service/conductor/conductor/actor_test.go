package conductor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
)

type fakeWorker struct {
	capability worker.Capability
	result     worker.Result
	delay      time.Duration
	calls      chan worker.Request
}

func newFakeWorker(capability worker.Capability, result worker.Result) *fakeWorker {
	return &fakeWorker{capability: capability, result: result, calls: make(chan worker.Request, 8)}
}

func (f *fakeWorker) Capability() worker.Capability { return f.capability }

func (f *fakeWorker) Run(ctx context.Context, req worker.Request) worker.Result {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return worker.Result{Err: ctx.Err(), FailureKind: worker.FailureKindTimeout}
		}
	}
	f.calls <- req
	return f.result
}

// scriptedPolicy replays a fixed sequence of decisions, repeating the last
// one once exhausted.
type scriptedPolicy struct {
	decisions []Decision
	calls     int
}

func (p *scriptedPolicy) Advise(ctx context.Context, r *Run, available []worker.Capability) Decision {
	idx := p.calls
	if idx >= len(p.decisions) {
		idx = len(p.decisions) - 1
	}
	p.calls++
	return p.decisions[idx]
}

func newTestConductor(t *testing.T, workers map[worker.Capability]worker.Worker, policy PolicyAdvisor) (*Conductor, eventstore.Store) {
	t.Helper()
	events := eventstore.NewInMemoryStore()
	cfg, err := Config{Events: events, Workers: workers, Policy: policy, Inbox: 32}.Complete()
	require.NoError(t, err)
	cd := cfg.New(context.Background())
	t.Cleanup(cd.Stop)
	return cd, events
}

func TestExecuteTask_InvalidRequestRejected(t *testing.T) {
	cd, _ := newTestConductor(t, nil, nil)
	_, err := cd.ExecuteTask(context.Background(), ExecuteTaskRequest{Objective: "", DesktopID: ""})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExecuteTask_CompletesOnSpawnThenComplete(t *testing.T) {
	fw := newFakeWorker(worker.CapabilityResearcher, worker.Result{Summary: "done", ArtifactIDs: []string{"a1"}})
	policy := &scriptedPolicy{decisions: []Decision{
		{Kind: DecisionSpawnWorker, Capability: worker.CapabilityResearcher, Objective: "look it up"},
		{Kind: DecisionComplete},
	}}
	cd, _ := newTestConductor(t, map[worker.Capability]worker.Worker{worker.CapabilityResearcher: fw}, policy)

	state, err := cd.ExecuteTask(context.Background(), ExecuteTaskRequest{DesktopID: "d1", Objective: "research something"})
	require.NoError(t, err)
	require.Equal(t, RunRunning, state.Status)

	require.Eventually(t, func() bool {
		st, err := cd.GetTaskState(state.RunID)
		return err == nil && st.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	final, err := cd.GetTaskState(state.RunID)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, final.Status)
	require.Len(t, final.Agenda, 1)
	require.Equal(t, AgendaCompleted, final.Agenda[0].Status)
	require.Len(t, final.Artifacts, 1)
}

func TestExecuteTask_SpawnUnavailableCapabilityBlocks(t *testing.T) {
	policy := &scriptedPolicy{decisions: []Decision{
		{Kind: DecisionSpawnWorker, Capability: worker.CapabilityTerminal, Objective: "run ls"},
	}}
	cd, _ := newTestConductor(t, nil, policy)

	state, err := cd.ExecuteTask(context.Background(), ExecuteTaskRequest{DesktopID: "d1", Objective: "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := cd.GetTaskState(state.RunID)
		return err == nil && st.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	final, err := cd.GetTaskState(state.RunID)
	require.NoError(t, err)
	require.Equal(t, RunBlocked, final.Status)
}

func TestExecuteTask_WorkerFailureBlocksRun(t *testing.T) {
	fw := newFakeWorker(worker.CapabilityTerminal, worker.Result{})
	fw.result = worker.Result{Err: errBoom, FailureKind: worker.FailureKindError}
	policy := &scriptedPolicy{decisions: []Decision{
		{Kind: DecisionSpawnWorker, Capability: worker.CapabilityTerminal, Objective: "run something"},
		{Kind: DecisionComplete},
	}}
	cd, _ := newTestConductor(t, map[worker.Capability]worker.Worker{worker.CapabilityTerminal: fw}, policy)

	state, err := cd.ExecuteTask(context.Background(), ExecuteTaskRequest{DesktopID: "d1", Objective: "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := cd.GetTaskState(state.RunID)
		return err == nil && st.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	final, err := cd.GetTaskState(state.RunID)
	require.NoError(t, err)
	// A Failed agenda item folds a nominal Complete decision to Blocked.
	require.Equal(t, RunBlocked, final.Status)
	require.Equal(t, AgendaFailed, final.Agenda[0].Status)
}

func TestGetTaskState_UnknownRunNotFound(t *testing.T) {
	cd, _ := newTestConductor(t, nil, nil)
	_, err := cd.GetTaskState("does-not-exist")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestCapabilityCallFinished_IdempotentOnDuplicateCallID(t *testing.T) {
	fw := newFakeWorker(worker.CapabilityResearcher, worker.Result{Summary: "ok"})
	policy := &scriptedPolicy{decisions: []Decision{
		{Kind: DecisionSpawnWorker, Capability: worker.CapabilityResearcher, Objective: "x"},
		{Kind: DecisionComplete},
	}}
	cd, _ := newTestConductor(t, map[worker.Capability]worker.Worker{worker.CapabilityResearcher: fw}, policy)

	state, err := cd.ExecuteTask(context.Background(), ExecuteTaskRequest{DesktopID: "d1", Objective: "x"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := cd.GetTaskState(state.RunID)
		return err == nil && st.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	final, err := cd.GetTaskState(state.RunID)
	require.NoError(t, err)
	require.Len(t, final.Agenda, 1)

	// Replaying capabilityCallFinished directly for the same call must be a
	// no-op: find the call id from the conductor's internal state.
	cd.mu.RLock()
	run := cd.runs[state.RunID]
	var callIDStr string
	for id := range run.Calls {
		callIDStr = id
	}
	itemID := run.Agenda[0].ItemID
	cd.mu.RUnlock()

	cd.capabilityCallFinished(context.Background(), state.RunID, itemID, callIDStr, worker.CapabilityResearcher, worker.Result{Summary: "replay"})

	again, err := cd.GetTaskState(state.RunID)
	require.NoError(t, err)
	require.Equal(t, final.Agenda[0].Status, again.Agenda[0].Status)
}

func TestWriterFeedback_SectionMapping(t *testing.T) {
	require.Equal(t, "researcher", sectionForCapability(worker.CapabilityResearcher))
	require.Equal(t, "terminal", sectionForCapability(worker.CapabilityTerminal))
	require.Equal(t, "conductor", sectionForCapability(worker.CapabilityWriterChild))
}

func TestMergeCanon_CommitsPendingOverlayOnBoundWriter(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	doc := rundoc.NewRunDocument("run-1", "objective", "hello world")
	w := writer.NewActor(doc, t.TempDir(), events, 8)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	_, err := w.SubmitApplyPatch(context.Background(), writer.WriterInboundEnvelope{
		MessageID: "m1",
		Kind:      writer.InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		SectionID: "conductor",
		Proposal:  true,
		Ops:       []rundoc.PatchOp{{Kind: rundoc.PatchOpInsert, Pos: 0, Text: "draft: "}},
	})
	require.NoError(t, err)

	cfg, err := Config{Events: events}.Complete()
	require.NoError(t, err)
	cd := cfg.New(context.Background())
	t.Cleanup(cd.Stop)
	cd.BindWriter("run-1", w)

	run := &Run{RunID: "run-1", Status: RunRunning, Calls: map[string]*CapabilityCall{}, ActiveCalls: map[string]bool{}}
	cd.mergeCanon(run)

	require.Eventually(t, func() bool {
		return w.HeadContent() == "draft: hello world"
	}, time.Second, 5*time.Millisecond)
}

func TestFinalize_WritesMarkdownReportWhenConfigured(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	doc := rundoc.NewRunDocument("run-1", "objective", "")
	w := writer.NewActor(doc, t.TempDir(), events, 8)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	cfg, err := Config{Events: events}.Complete()
	require.NoError(t, err)
	cd := cfg.New(context.Background())
	t.Cleanup(cd.Stop)
	cd.BindWriter("run-1", w)

	run := &Run{RunID: "run-1", Objective: "ship it", OutputMode: OutputMarkdownReportWriter, Status: RunRunning}
	cd.mu.Lock()
	cd.finalize(context.Background(), run, RunCompleted, "")
	cd.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(w.HeadContent()) > 0
	}, time.Second, 5*time.Millisecond)
}

var errBoom = errors.New("boom")
