// Package eventstore implements the conductor's append-only event log. It
// is the one piece of shared state every other conductor component
// observes: the Conductor actor emits lifecycle
// events here, the Agent Harness polls it for async tool results by
// correlation ID, and the Watcher scans it for failure/timeout patterns.
package eventstore

import (
	"context"
	"time"
)

// Event is the immutable primitive of the log. Once Append returns, an
// Event's fields never change — only new Events are appended.
type Event struct {
	Seq       uint64                 `json:"seq"`
	EventID   string                 `json:"event_id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	ActorID   string                 `json:"actor_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

// scopeField reads a string field out of Payload, checking both the
// top-level key and a nested "data" object: every event payload that
// belongs to a run carries run_id either at the top level or inside data.
func (e Event) scopeField(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if data, ok := e.Payload["data"].(map[string]interface{}); ok {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// RunID returns the event's embedded run_id, if any.
func (e Event) RunID() string { return e.scopeField("run_id") }

// CorrelationID returns the event's correlation id, checking both the
// "correlation_id" and legacy "corr_id" conventions: callers query by
// either, so this store indexes both.
func (e Event) CorrelationID() string {
	if v := e.scopeField("correlation_id"); v != "" {
		return v
	}
	return e.scopeField("corr_id")
}

// TaskID, CallID, SessionID, ThreadID read the remaining CorrelationScope
// fields.
func (e Event) TaskID() string    { return e.scopeField("task_id") }
func (e Event) CallID() string    { return e.scopeField("call_id") }
func (e Event) SessionID() string { return e.scopeField("session_id") }
func (e Event) ThreadID() string  { return e.scopeField("thread_id") }

// RecentQuery parameterizes GetRecent.
type RecentQuery struct {
	SinceSeq uint64
	Limit    int
	Prefix   string // event_type prefix match, e.g. "conductor.run."
	Actor    string
	User     string
}

// Scope parameterizes Subscribe: a consumer only receives events matching
// every non-empty field.
type Scope struct {
	RunID  string
	Actor  string
	Prefix string
}

func (s Scope) matches(e Event) bool {
	if s.RunID != "" && e.RunID() != s.RunID {
		return false
	}
	if s.Actor != "" && e.ActorID != s.Actor {
		return false
	}
	if s.Prefix != "" && !hasPrefix(e.EventType, s.Prefix) {
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Store is the append-only event log's operation contract.
type Store interface {
	// Append assigns the next seq, persists evt, and returns it. Fails with
	// ErrStoreFull (fatal) or ErrInvalidEvent (caller error).
	Append(ctx context.Context, evt Event) (uint64, error)

	// AppendAsync is a fire-and-forget variant for non-critical telemetry;
	// loss on process exit is acceptable. Ordering relative to Append calls
	// from the same caller is preserved.
	AppendAsync(ctx context.Context, evt Event)

	GetRecent(ctx context.Context, q RecentQuery) ([]Event, error)
	GetByCorrID(ctx context.Context, corrID string, prefix string) ([]Event, error)
	GetForActorScoped(ctx context.Context, actor, session, thread string, sinceSeq uint64) ([]Event, error)

	// Subscribe registers a live fan-out consumer matching scope. The
	// returned cancel func must be called to stop receiving and release
	// the channel.
	Subscribe(ctx context.Context, scope Scope) (<-chan Event, func())

	// Head returns the most recently assigned seq (0 if the log is empty).
	Head() uint64

	Close() error
}
