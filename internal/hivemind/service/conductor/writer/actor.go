package writer

import (
	"context"
	"fmt"
	"sync"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

// job pairs an inbound envelope with the channel its result is delivered
// on. reply is always non-nil and buffered(1), so the actor's processing
// goroutine never blocks handing back a result.
type job struct {
	envelope WriterInboundEnvelope
	reply    chan ApplyResult
}

// Actor is the Writer Actor: a single goroutine owns doc exclusively and
// drains inbound, so rundoc.RunDocument itself needs no internal locking.
// This mirrors the AgentRunner's single-goroutine-per-run ownership model.
type Actor struct {
	doc     *rundoc.RunDocument
	runsDir string
	events  eventstore.Store

	inbound  chan job
	maxQueue int

	mu            sync.Mutex
	seen          map[string]ApplyResult   // message_id -> result, for idempotent re-ack
	inflight      map[string]struct{}      // message_id currently queued/processing
	sectionStates map[string]SectionState

	closed chan struct{}
	wg     sync.WaitGroup
}

// NewActor constructs an Actor over doc. maxQueue <= 0 defaults to 256.
func NewActor(doc *rundoc.RunDocument, runsDir string, events eventstore.Store, maxQueue int) *Actor {
	if maxQueue <= 0 {
		maxQueue = 256
	}
	return &Actor{
		doc:           doc,
		runsDir:       runsDir,
		events:        events,
		inbound:       make(chan job, maxQueue),
		maxQueue:      maxQueue,
		seen:          make(map[string]ApplyResult),
		inflight:      make(map[string]struct{}),
		sectionStates: make(map[string]SectionState),
		closed:        make(chan struct{}),
	}
}

// Start launches the actor's processing goroutine. Call Stop to shut it
// down; Start must be called at most once.
func (a *Actor) Start(ctx context.Context) {
	a.wg.Add(1)
	safego.Go(ctx, func() {
		defer a.wg.Done()
		a.emitRunStarted()
		for {
			select {
			case j, ok := <-a.inbound:
				if !ok {
					return
				}
				a.process(j)
			case <-ctx.Done():
				return
			case <-a.closed:
				return
			}
		}
	})
}

// Stop closes the actor down; in-flight enqueues after Stop return
// ErrClosed.
func (a *Actor) Stop() {
	close(a.closed)
	a.wg.Wait()
}

// EnqueueInbound accepts envelope into the queue. A duplicate MessageID
// (one already processed, or currently queued) is acknowledged without
// being reapplied — EnqueueResult.Duplicate is set, Accepted stays true.
// Queue overflow fails with ErrQueueFull.
func (a *Actor) EnqueueInbound(envelope WriterInboundEnvelope) (EnqueueResult, error) {
	a.mu.Lock()
	if _, ok := a.seen[envelope.MessageID]; ok {
		a.mu.Unlock()
		return EnqueueResult{Accepted: true, Duplicate: true}, nil
	}
	if _, ok := a.inflight[envelope.MessageID]; ok {
		a.mu.Unlock()
		return EnqueueResult{Accepted: true, Duplicate: true}, nil
	}
	a.inflight[envelope.MessageID] = struct{}{}
	a.mu.Unlock()

	select {
	case <-a.closed:
		return EnqueueResult{}, ErrClosed
	default:
	}

	j := job{envelope: envelope, reply: make(chan ApplyResult, 1)}
	select {
	case a.inbound <- j:
		return EnqueueResult{Accepted: true}, nil
	default:
		a.mu.Lock()
		delete(a.inflight, envelope.MessageID)
		a.mu.Unlock()
		return EnqueueResult{}, ErrQueueFull
	}
}

// SubmitApplyPatch enqueues an ApplyPatch envelope and blocks for its
// result (or ctx cancellation). This is the synchronous convenience
// wrapper most callers want; EnqueueInbound remains available for
// fire-and-forget envelopes (ReportProgress, MarkSectionState).
func (a *Actor) SubmitApplyPatch(ctx context.Context, envelope WriterInboundEnvelope) (ApplyResult, error) {
	a.mu.Lock()
	if res, ok := a.seen[envelope.MessageID]; ok {
		a.mu.Unlock()
		return res, nil
	}
	if _, ok := a.inflight[envelope.MessageID]; ok {
		a.mu.Unlock()
		return ApplyResult{}, nil
	}
	a.inflight[envelope.MessageID] = struct{}{}
	a.mu.Unlock()

	select {
	case <-a.closed:
		return ApplyResult{}, ErrClosed
	default:
	}

	j := job{envelope: envelope, reply: make(chan ApplyResult, 1)}
	select {
	case a.inbound <- j:
	default:
		a.mu.Lock()
		delete(a.inflight, envelope.MessageID)
		a.mu.Unlock()
		return ApplyResult{}, ErrQueueFull
	}

	select {
	case res := <-j.reply:
		return res, nil
	case <-ctx.Done():
		return ApplyResult{}, ctx.Err()
	case <-a.closed:
		return ApplyResult{}, ErrClosed
	}
}

func (a *Actor) process(j job) {
	env := j.envelope

	a.mu.Lock()
	if res, ok := a.seen[env.MessageID]; ok {
		a.mu.Unlock()
		if j.reply != nil {
			j.reply <- res
		}
		return
	}
	a.mu.Unlock()

	var result ApplyResult
	switch env.Kind {
	case InboundApplyPatch:
		result = a.applyPatch(env)
	case InboundReportProgress:
		a.reportProgress(env)
	case InboundMarkSectionState:
		a.markSectionState(env)
	case InboundMergeCanon:
		a.mergeCanon(env)
	default:
		result = ApplyResult{Err: fmt.Errorf("writer: unknown envelope kind %q", env.Kind)}
	}

	a.mu.Lock()
	a.seen[env.MessageID] = result
	delete(a.inflight, env.MessageID)
	a.mu.Unlock()

	if j.reply != nil {
		j.reply <- result
	}

	if err := rundoc.Persist(a.runsDir, a.doc); err != nil {
		logger.Warn("[WriterActor] persist failed for run %s: %v", a.doc.RunID, err)
	}
}

func (a *Actor) applyPatch(env WriterInboundEnvelope) ApplyResult {
	v, ov, err := a.doc.ApplyPatch(env.Source, env.Ops, env.Proposal)
	if err != nil {
		return ApplyResult{Err: err}
	}

	payload := map[string]interface{}{
		"run_id":     a.doc.RunID,
		"source":     string(env.Source),
		"section_id": env.SectionID,
	}
	if v != nil {
		payload["target_version_id"] = v.VersionID
	}
	if ov != nil {
		payload["overlay_id"] = ov.OverlayID
		payload["base_version_id"] = ov.BaseVersionID
	}
	a.emit("writer.run.patch", payload)

	return ApplyResult{Version: v, Overlay: ov}
}

func (a *Actor) reportProgress(env WriterInboundEnvelope) {
	a.emit("writer.run.progress", map[string]interface{}{
		"run_id":     a.doc.RunID,
		"section_id": env.SectionID,
		"phase":      env.Phase,
		"message":    env.Message,
	})
}

func (a *Actor) markSectionState(env WriterInboundEnvelope) {
	a.mu.Lock()
	a.sectionStates[env.SectionID] = env.State
	a.mu.Unlock()

	a.emit("writer.run.status", map[string]interface{}{
		"run_id":     a.doc.RunID,
		"section_id": env.SectionID,
		"state":      string(env.State),
	})
}

func (a *Actor) mergeCanon(env WriterInboundEnvelope) {
	committed, err := a.doc.MergeCanon()
	if err != nil {
		logger.Warn("[WriterActor] merge_canon failed for run %s: %v", a.doc.RunID, err)
		return
	}
	for _, v := range committed {
		a.emit("writer.run.patch", map[string]interface{}{
			"run_id":            a.doc.RunID,
			"source":            "MergeCanon",
			"target_version_id": v.VersionID,
		})
	}
}

// HeadContent returns a best-effort snapshot of the run document's current
// canonical content, for callers composing a proposal to submit via
// SubmitApplyPatch. It is not synchronized with the actor's processing
// loop, so it may read content that is about to be superseded; callers
// relying on it (e.g. writerchild) anchor proposals rather than direct
// commits for exactly this reason.
func (a *Actor) HeadContent() string {
	return a.doc.HeadContent()
}

// SectionState returns the most recently recorded state for sectionID
// (SectionStatePending if never reported).
func (a *Actor) SectionState(sectionID string) SectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sectionStates[sectionID]; ok {
		return s
	}
	return SectionStatePending
}

func (a *Actor) emitRunStarted() {
	a.emit("writer.run.started", map[string]interface{}{
		"run_id":    a.doc.RunID,
		"objective": a.doc.Objective,
	})
}

func (a *Actor) emit(eventType string, payload map[string]interface{}) {
	if a.events == nil {
		return
	}
	a.events.AppendAsync(context.Background(), eventstore.Event{
		EventType: eventType,
		ActorID:   "writer-" + a.doc.RunID,
		Payload:   payload,
	})
}
