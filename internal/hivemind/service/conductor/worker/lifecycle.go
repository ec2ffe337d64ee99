package worker

import (
	"context"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
)

// Lifecycle emits the worker.task.* and worker.tool.* event stream a
// capability call is expected to produce, generalizing the AgentEvent
// shape echoryn streams over an in-process channel into Event-Store
// writes any observer (including the Watcher) can subscribe to.
type Lifecycle struct {
	events eventstore.Store
	runID  string
	callID string
	actor  string
}

// NewLifecycle binds a Lifecycle to one capability call. actorID should be
// a stable name like "worker:terminal:<call_id>" so Event Store queries
// filtered by actor can isolate one call's event stream from another's.
func NewLifecycle(events eventstore.Store, runID, callID, actorID string) *Lifecycle {
	return &Lifecycle{events: events, runID: runID, callID: callID, actor: actorID}
}

func (l *Lifecycle) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if l.events == nil {
		return
	}
	payload["run_id"] = l.runID
	payload["call_id"] = l.callID
	l.events.AppendAsync(ctx, eventstore.Event{
		EventType: eventType,
		ActorID:   l.actor,
		Payload:   payload,
	})
}

func (l *Lifecycle) Started(ctx context.Context, objective string) {
	l.emit(ctx, "worker.task.started", map[string]interface{}{"objective": objective})
}

func (l *Lifecycle) Progress(ctx context.Context, phase, message string) {
	l.emit(ctx, "worker.task.progress", map[string]interface{}{"phase": phase, "message": message})
}

func (l *Lifecycle) Finding(ctx context.Context, summary string, meta map[string]interface{}) {
	payload := map[string]interface{}{"summary": summary}
	for k, v := range meta {
		payload[k] = v
	}
	l.emit(ctx, "worker.task.finding", payload)
}

func (l *Lifecycle) Learning(ctx context.Context, summary string) {
	l.emit(ctx, "worker.task.learning", map[string]interface{}{"summary": summary})
}

func (l *Lifecycle) Completed(ctx context.Context, res Result) {
	payload := map[string]interface{}{
		"summary":      res.Summary,
		"artifact_ids": res.ArtifactIDs,
		"success":      true,
	}
	if len(res.Citations) > 0 {
		payload["citations"] = res.Citations
	}
	l.emit(ctx, "worker.task.completed", payload)
}

func (l *Lifecycle) Failed(ctx context.Context, kind FailureKind, err error) {
	l.emit(ctx, "worker.task.failed", map[string]interface{}{
		"success":      false,
		"failure_kind": string(kind),
		"error":        err.Error(),
	})
}

// ToolCall records a tool invocation for the audit trail. ToolResult
// records its outcome, with success and duration_ms as structured payload
// fields rather than free text.
func (l *Lifecycle) ToolCall(ctx context.Context, tool string, args map[string]interface{}) {
	l.emit(ctx, "worker.tool.call", map[string]interface{}{"tool": tool, "args": args})
}

func (l *Lifecycle) ToolResult(ctx context.Context, tool string, success bool, durationMs int64, err error) {
	payload := map[string]interface{}{
		"tool":        tool,
		"success":     success,
		"duration_ms": durationMs,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	l.emit(ctx, "worker.tool.result", payload)
}
