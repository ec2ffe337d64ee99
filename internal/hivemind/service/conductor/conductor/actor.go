package conductor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

// CapabilityTimeout is the default budget a dispatched worker task gets
// before the Conductor synthesizes a WorkerFailed("timeout") result for it.
const CapabilityTimeout = 60 * time.Second

// Conductor owns every Run in one process. Like the Writer Actor it
// serializes all state mutation behind a single inbound message loop; unlike
// the Writer Actor, that loop multiplexes many runs at once, each keyed by
// run_id, mirroring the "one actor instance, many logical runs" shape the
// teacher's AgentRunner registry uses at the service layer.
type Conductor struct {
	events      eventstore.Store
	workers     map[worker.Capability]worker.Worker
	writers     map[string]*writer.Actor // run_id -> bound Writer Actor
	policy      PolicyAdvisor

	inbox chan func()

	mu   sync.RWMutex
	runs map[string]*Run

	stop chan struct{}
	done chan struct{}
}

// Config is the construction input for a Conductor, following the
// Config -> Complete() -> New(ctx, deps) convention the rest of this module
// uses for its top-level components.
type Config struct {
	Events  eventstore.Store
	Workers map[worker.Capability]worker.Worker
	Policy  PolicyAdvisor
	Inbox   int // inbound message queue depth, default 256
}

// CompletedConfig is Config after defaults have been applied.
type CompletedConfig struct {
	config Config
}

// Complete validates and defaults c.
func (c Config) Complete() (CompletedConfig, error) {
	if c.Events == nil {
		return CompletedConfig{}, fmt.Errorf("conductor: events store is required")
	}
	if c.Inbox <= 0 {
		c.Inbox = 256
	}
	if c.Workers == nil {
		c.Workers = map[worker.Capability]worker.Worker{}
	}
	return CompletedConfig{config: c}, nil
}

// New constructs and starts a Conductor from a CompletedConfig.
func (c CompletedConfig) New(ctx context.Context) *Conductor {
	cd := &Conductor{
		events:  c.config.Events,
		workers: c.config.Workers,
		writers: map[string]*writer.Actor{},
		policy:  c.config.Policy,
		inbox:   make(chan func(), c.config.Inbox),
		runs:    map[string]*Run{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	safego.Go(ctx, cd.loop)
	return cd
}

func (cd *Conductor) loop() {
	defer close(cd.done)
	for {
		select {
		case fn := <-cd.inbox:
			fn()
		case <-cd.stop:
			return
		}
	}
}

// Stop halts the loop once the message it is running (if any) returns;
// messages still queued in the inbox are not run. Detached capability
// tasks already spawned are not cancelled, and any late result they send
// is queued without being processed, or dropped if the inbox is full.
func (cd *Conductor) Stop() {
	close(cd.stop)
	<-cd.done
}

// BindWriter associates a Writer Actor with run_id so capability results can
// be forwarded as feedback envelopes.
func (cd *Conductor) BindWriter(runID string, w *writer.Actor) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	cd.writers[runID] = w
}

// ExecuteTask validates the request, creates a Run, enqueues its first
// dispatch cycle, and returns immediately: validate, create record, launch
// work, return a handle, applied to a whole Run instead of one turn.
func (cd *Conductor) ExecuteTask(ctx context.Context, req ExecuteTaskRequest) (TaskState, error) {
	if req.Objective == "" || req.DesktopID == "" {
		return TaskState{}, ErrInvalidRequest
	}
	if req.OutputMode == "" {
		req.OutputMode = OutputAuto
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	now := time.Now()
	run := &Run{
		RunID:       runID,
		DesktopID:   req.DesktopID,
		Objective:   req.Objective,
		OutputMode:  req.OutputMode,
		Status:      RunRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
		Calls:       map[string]*CapabilityCall{},
		ActiveCalls: map[string]bool{},
	}

	cd.mu.Lock()
	cd.runs[run.RunID] = run
	cd.mu.Unlock()

	cd.events.AppendAsync(ctx, eventstore.Event{
		EventType: "conductor.task.started",
		ActorID:   "conductor",
		Payload: map[string]interface{}{
			"run_id":    run.RunID,
			"objective": run.Objective,
		},
	})

	cd.enqueueDispatch(ctx, run.RunID)

	cd.mu.RLock()
	snap := snapshot(run)
	cd.mu.RUnlock()
	return snap, nil
}

// GetTaskState returns a point-in-time snapshot of a run's state.
func (cd *Conductor) GetTaskState(runID string) (TaskState, error) {
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	run, ok := cd.runs[runID]
	if !ok {
		return TaskState{}, ErrRunNotFound
	}
	return snapshot(run), nil
}

func (cd *Conductor) enqueueDispatch(ctx context.Context, runID string) {
	select {
	case cd.inbox <- func() { cd.dispatchReady(ctx, runID) }:
	default:
		logger.Error("conductor: inbox full, dropping dispatch_ready for run %s", runID)
	}
}

// dispatchReady is the internal policy-loop step: recompute agenda
// readiness, consult the policy, and apply its decision. It only ever runs
// on the Conductor's single loop goroutine.
func (cd *Conductor) dispatchReady(ctx context.Context, runID string) {
	cd.mu.Lock()
	run, ok := cd.runs[runID]
	if !ok || run.Status.Terminal() {
		cd.mu.Unlock()
		return
	}
	cd.recomputeReadiness(run)
	available := cd.availableCapabilities()
	cd.mu.Unlock()

	if cd.policy == nil {
		cd.mu.Lock()
		cd.finalize(ctx, run, RunBlocked, "no policy advisor configured")
		cd.mu.Unlock()
		return
	}

	decision := cd.policy.Advise(ctx, run, available)

	cd.mu.Lock()
	run.Decisions = append(run.Decisions, DecisionRecord{Decision: decision, Timestamp: time.Now()})
	run.UpdatedAt = time.Now()
	cd.applyDecision(ctx, run, decision)
	cd.mu.Unlock()
}

func (cd *Conductor) availableCapabilities() []worker.Capability {
	caps := make([]worker.Capability, 0, len(cd.workers))
	for c := range cd.workers {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// recomputeReadiness marks any Pending agenda item Ready once every item it
// depends on is Completed.
func (cd *Conductor) recomputeReadiness(run *Run) {
	byID := make(map[string]*AgendaItem, len(run.Agenda))
	for _, item := range run.Agenda {
		byID[item.ItemID] = item
	}
	for _, item := range run.Agenda {
		if item.Status != AgendaPending {
			continue
		}
		ready := true
		for _, dep := range item.DependsOn {
			if d, ok := byID[dep]; !ok || d.Status != AgendaCompleted {
				ready = false
				break
			}
		}
		if ready {
			item.Status = AgendaReady
		}
	}
}

// applyDecision mutates run under cd.mu and, for SpawnWorker, fires a
// detached capability task. Caller holds cd.mu.
func (cd *Conductor) applyDecision(ctx context.Context, run *Run, decision Decision) {
	switch decision.Kind {
	case DecisionSpawnWorker:
		cd.spawnWorker(ctx, run, decision)
	case DecisionAwaitWorker:
		run.Status = RunWaitingForCalls
	case DecisionMergeCanon:
		cd.mergeCanon(run)
		run.Status = RunRunning
		cd.enqueueDispatch(ctx, run.RunID)
	case DecisionComplete:
		cd.finalize(ctx, run, RunCompleted, "")
	case DecisionBlock:
		cd.finalize(ctx, run, RunBlocked, decision.Reason)
	}
}

func (cd *Conductor) spawnWorker(ctx context.Context, run *Run, decision Decision) {
	w, ok := cd.workers[decision.Capability]
	if !ok {
		cd.finalize(ctx, run, RunBlocked, fmt.Sprintf("%s: %s", ErrCapabilityUnavailable, decision.Capability))
		return
	}

	now := time.Now()
	itemID := uuid.New().String()
	item := &AgendaItem{
		ItemID:     itemID,
		Capability: decision.Capability,
		Objective:  decision.Objective,
		Priority:   0,
		Status:     AgendaRunning,
		CreatedAt:  now,
	}
	run.Agenda = append(run.Agenda, item)
	sortAgenda(run.Agenda)

	callID := uuid.New().String()
	call := &CapabilityCall{
		CallID:       callID,
		Capability:   decision.Capability,
		Objective:    decision.Objective,
		Status:       CallRunning,
		StartedAt:    now,
		AgendaItemID: itemID,
	}
	run.Calls[callID] = call
	run.ActiveCalls[callID] = true
	run.Status = RunWaitingForCalls

	cd.events.AppendAsync(ctx, eventstore.Event{
		EventType: "conductor.worker.call",
		ActorID:   "conductor",
		Payload: map[string]interface{}{
			"run_id":     run.RunID,
			"call_id":    callID,
			"capability": string(decision.Capability),
			"objective":  decision.Objective,
		},
	})

	req := worker.Request{
		RunID:     run.RunID,
		CallID:    callID,
		Objective: decision.Objective,
		DesktopID: run.DesktopID,
	}

	runID := run.RunID
	safego.Go(ctx, func() {
		callCtx, cancel := context.WithTimeout(context.Background(), CapabilityTimeout)
		defer cancel()

		resultCh := make(chan worker.Result, 1)
		safego.Go(callCtx, func() { resultCh <- w.Run(callCtx, req) })

		var result worker.Result
		select {
		case result = <-resultCh:
		case <-callCtx.Done():
			result = worker.Result{Err: fmt.Errorf("conductor: capability %s timed out", decision.Capability), FailureKind: worker.FailureKindTimeout}
		}

		cd.enqueueCallFinished(runID, itemID, callID, decision.Capability, result)
	})
}

func sortAgenda(items []*AgendaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func (cd *Conductor) enqueueCallFinished(runID, itemID, callID string, capability worker.Capability, result worker.Result) {
	select {
	case cd.inbox <- func() { cd.capabilityCallFinished(context.Background(), runID, itemID, callID, capability, result) }:
	default:
		logger.Error("conductor: inbox full, dropping capability_call_finished for run %s call %s", runID, callID)
	}
}

// capabilityCallFinished folds a worker's result into the run, forwards
// feedback to the bound Writer, and re-enters the policy loop.
func (cd *Conductor) capabilityCallFinished(ctx context.Context, runID, itemID, callID string, capability worker.Capability, result worker.Result) {
	cd.mu.Lock()
	run, ok := cd.runs[runID]
	if !ok {
		cd.mu.Unlock()
		return
	}
	if run.Status.Terminal() {
		// Late result after finalize: log and drop.
		logger.Info("conductor: dropping late result for finalized run %s call %s", runID, callID)
		cd.mu.Unlock()
		return
	}

	call, ok := run.Calls[callID]
	if !ok || call.Status.Terminal() {
		// Idempotent finalize: a second capability_call_finished for the
		// same call_id is a no-op.
		cd.mu.Unlock()
		return
	}

	var item *AgendaItem
	for _, a := range run.Agenda {
		if a.ItemID == itemID {
			item = a
			break
		}
	}

	now := time.Now()
	call.CompletedAt = &now
	delete(run.ActiveCalls, callID)

	if result.Err != nil {
		call.Status = CallFailed
		call.Error = result.Err.Error()
		if item != nil {
			if result.FailureKind == worker.FailureKindBlocked {
				item.Status = AgendaBlocked
			} else {
				item.Status = AgendaFailed
			}
		}
	} else if result.Blocked {
		call.Status = CallBlocked
		if item != nil {
			item.Status = AgendaBlocked
		}
	} else {
		call.Status = CallCompleted
		call.ArtifactIDs = result.ArtifactIDs
		if item != nil {
			item.Status = AgendaCompleted
		}
		for _, id := range result.ArtifactIDs {
			run.Artifacts = append(run.Artifacts, Artifact{ArtifactID: id, SourceCallID: callID})
		}
	}

	cd.forwardToWriter(ctx, run, capability, call, result)

	run.UpdatedAt = now
	runID = run.RunID
	cd.mu.Unlock()

	cd.dispatchReady(ctx, runID)
}

// sectionForCapability maps a capability's feedback to a document section:
// researcher and terminal write to their own section, every other
// capability's feedback lands in "conductor".
func sectionForCapability(capability worker.Capability) string {
	switch capability {
	case worker.CapabilityResearcher:
		return "researcher"
	case worker.CapabilityTerminal:
		return "terminal"
	default:
		return "conductor"
	}
}

func (cd *Conductor) forwardToWriter(ctx context.Context, run *Run, capability worker.Capability, call *CapabilityCall, result worker.Result) {
	w, ok := cd.writers[run.RunID]
	if !ok || w == nil {
		return
	}

	phase := "completed"
	message := result.Summary
	if result.Err != nil {
		phase = "failed"
		message = result.Err.Error()
	} else if result.Blocked {
		phase = "blocked"
		message = result.BlockReason
	}

	envelope := writer.WriterInboundEnvelope{
		MessageID: call.CallID,
		Kind:      writer.InboundReportProgress,
		SectionID: sectionForCapability(capability),
		Phase:     phase,
		Message:   message,
	}
	if _, err := w.EnqueueInbound(envelope); err != nil {
		logger.Error("conductor: writer feedback enqueue failed for run %s call %s: %v", run.RunID, call.CallID, err)
	}
}

// mergeCanon commits every pending proposal overlay across every section the
// bound Writer knows about. The Writer Actor owns the actual commit; the
// Conductor only asks for it.
func (cd *Conductor) mergeCanon(run *Run) {
	w, ok := cd.writers[run.RunID]
	if !ok || w == nil {
		return
	}
	if _, err := w.EnqueueInbound(writer.WriterInboundEnvelope{
		MessageID: uuid.New().String(),
		Kind:      writer.InboundMergeCanon,
	}); err != nil {
		logger.Error("conductor: merge_canon enqueue failed for run %s: %v", run.RunID, err)
	}
}

// finalize transitions run to a terminal status, writes the final report
// artifact if configured, and emits the task-completed/failed event. Caller
// holds cd.mu.
func (cd *Conductor) finalize(ctx context.Context, run *Run, status RunStatus, reason string) {
	hasFailure := false
	for _, item := range run.Agenda {
		if item.Status == AgendaFailed || item.Status == AgendaBlocked {
			hasFailure = true
			break
		}
	}

	final := status
	if final == RunCompleted && hasFailure {
		final = RunBlocked
	}

	run.Status = final
	run.FailReason = reason
	run.UpdatedAt = time.Now()

	if run.OutputMode == OutputMarkdownReportWriter {
		cd.writeFinalReport(run)
	}

	eventType := "conductor.task.completed"
	if final == RunFailed || final == RunBlocked {
		eventType = "conductor.task.failed"
	}
	cd.events.AppendAsync(ctx, eventstore.Event{
		EventType: eventType,
		ActorID:   "conductor",
		Payload: map[string]interface{}{
			"run_id": run.RunID,
			"status": string(final),
			"reason": reason,
		},
	})
}

func (cd *Conductor) writeFinalReport(run *Run) {
	w, ok := cd.writers[run.RunID]
	if !ok || w == nil {
		return
	}
	report := buildMarkdownReport(run)
	if _, err := w.SubmitApplyPatch(context.Background(), writer.WriterInboundEnvelope{
		MessageID: "final-report:" + run.RunID,
		Kind:      writer.InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		SectionID: "conductor",
		Ops: []rundoc.PatchOp{{
			Kind: rundoc.PatchOpInsert,
			Pos:  len([]rune(w.HeadContent())),
			Text: report,
		}},
	}); err != nil {
		logger.Error("conductor: final report write failed for run %s: %v", run.RunID, err)
	}
}

func buildMarkdownReport(run *Run) string {
	s := fmt.Sprintf("\n\n## Run %s summary\n\nObjective: %s\nStatus: %s\n\n", run.RunID, run.Objective, run.Status)
	for _, item := range run.Agenda {
		s += fmt.Sprintf("- [%s] %s: %s\n", item.Status, item.Capability, item.Objective)
	}
	return s
}
