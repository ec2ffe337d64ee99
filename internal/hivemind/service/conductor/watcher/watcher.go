package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

const dedupRetentionSeqs = 10000

// Watcher periodically (and on demand) scans the event log for four
// deterministic failure patterns. It never calls an LLM: every rule is a
// threshold over recent worker.* events.
type Watcher struct {
	events  eventstore.Store
	cfg     Config
	metrics *Metrics

	mu       sync.Mutex
	lastSeq  uint64
	pending  map[string]startInfo // call_id -> worker.task.started not yet resolved
	dedup    map[string]uint64    // alert key -> seq it was recorded at

	stop chan struct{}
	done chan struct{}
}

// New constructs a Watcher. metrics may be nil.
func New(events eventstore.Store, cfg Config, metrics *Metrics) *Watcher {
	return &Watcher{
		events:  events,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		pending: map[string]startInfo{},
		dedup:   map[string]uint64{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the periodic scan loop as a detached goroutine.
func (w *Watcher) Start(ctx context.Context) {
	safego.Go(ctx, func() { w.loop(ctx) })
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.ScanNow(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the periodic scan loop.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}

// ScanNow runs one scan immediately, outside the periodic cadence.
func (w *Watcher) ScanNow(ctx context.Context) {
	w.metrics.observeScan()

	w.mu.Lock()
	sinceSeq := w.lastSeq
	w.mu.Unlock()

	events, err := w.events.GetRecent(ctx, eventstore.RecentQuery{SinceSeq: sinceSeq, Prefix: "worker."})
	if err != nil {
		logger.Error("watcher: scan failed to read recent events: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var failures, timeouts, retries []eventstore.Event
	headSeq := sinceSeq

	for _, e := range events {
		if e.Seq > headSeq {
			headSeq = e.Seq
		}
		callID := e.CallID()

		switch e.EventType {
		case "worker.task.started":
			if callID != "" {
				w.pending[callID] = startInfo{seq: e.Seq, at: e.Timestamp}
			}
		case "worker.task.completed":
			delete(w.pending, callID)
		case "worker.task.failed":
			delete(w.pending, callID)
			failures = append(failures, e)
			if errText, ok := e.Payload["error"].(string); ok && isTimeoutError(errText) {
				timeouts = append(timeouts, e)
			}
		case "worker.task.progress":
			if mentionsRetry(e.Payload) {
				retries = append(retries, e)
			}
		}
	}
	w.lastSeq = headSeq

	if len(failures) >= w.cfg.FailureSpikeThreshold {
		w.emitCountAlert(ctx, "failure_spike", failures, "failed_count")
	}
	if len(timeouts) >= w.cfg.TimeoutSpikeThreshold {
		w.emitCountAlert(ctx, "timeout_spike", timeouts, "timeout_count")
	}
	if len(retries) >= w.cfg.RetryStormThreshold {
		w.emitCountAlert(ctx, "retry_storm", retries, "retry_count")
	}

	now := time.Now()
	for callID, info := range w.pending {
		if now.Sub(info.at) >= w.cfg.StalledTaskTimeout {
			w.emitStalledAlert(ctx, callID, info.seq)
		}
	}

	w.pruneDedup(headSeq)
}

func isTimeoutError(errText string) bool {
	lower := strings.ToLower(errText)
	for _, needle := range []string{"timeout", "timed out", "deadline", "did not return within"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func mentionsRetry(payload map[string]interface{}) bool {
	for _, key := range []string{"phase", "status", "message"} {
		if s, ok := payload[key].(string); ok && strings.Contains(strings.ToLower(s), "retry") {
			return true
		}
	}
	return false
}

// emitCountAlert builds the {rule}:{first_seq}:{count} dedup key and emits
// the alert event if that key has not already been recorded. Caller holds
// w.mu.
func (w *Watcher) emitCountAlert(ctx context.Context, rule string, matched []eventstore.Event, countField string) {
	firstSeq := matched[0].Seq
	count := len(matched)
	key := fmt.Sprintf("%s:%d:%d", rule, firstSeq, count)
	if _, seen := w.dedup[key]; seen {
		return
	}
	w.dedup[key] = matched[len(matched)-1].Seq

	w.events.AppendAsync(ctx, eventstore.Event{
		EventType: "watcher.alert." + rule,
		ActorID:   watcherActorID,
		Payload: map[string]interface{}{
			"rule":     rule,
			"alert_key": key,
			countField: count,
			"first_seq": firstSeq,
		},
	})
	w.metrics.observeAlert(rule)
}

// emitStalledAlert uses the {rule}:{task_id}:{start_seq} dedup key variant.
// Caller holds w.mu.
func (w *Watcher) emitStalledAlert(ctx context.Context, callID string, startSeq uint64) {
	key := fmt.Sprintf("stalled_task:%s:%d", callID, startSeq)
	if _, seen := w.dedup[key]; seen {
		return
	}
	w.dedup[key] = startSeq

	w.events.AppendAsync(ctx, eventstore.Event{
		EventType: "watcher.alert.stalled_task",
		ActorID:   watcherActorID,
		Payload: map[string]interface{}{
			"rule":      "stalled_task",
			"alert_key": key,
			"call_id":   callID,
			"start_seq": startSeq,
		},
	})
	w.metrics.observeAlert("stalled_task")
}

func (w *Watcher) pruneDedup(currentSeq uint64) {
	for key, seq := range w.dedup {
		if currentSeq > seq && currentSeq-seq > dedupRetentionSeqs {
			delete(w.dedup, key)
		}
	}
}
