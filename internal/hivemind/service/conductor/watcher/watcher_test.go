package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
)

func seedFailure(t *testing.T, events eventstore.Store, callID, errText string) {
	t.Helper()
	_, err := events.Append(context.Background(), eventstore.Event{
		EventType: "worker.task.failed",
		ActorID:   "worker:terminal:" + callID,
		Payload: map[string]interface{}{
			"call_id": callID,
			"error":   errText,
		},
	})
	require.NoError(t, err)
}

func TestWatcher_FailureSpikeEmitsOnceThenStaysQuiet(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{FailureSpikeThreshold: 3}, nil)

	seedFailure(t, events, "c1", "boom")
	seedFailure(t, events, "c2", "boom")
	seedFailure(t, events, "c3", "boom")

	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "watcher.alert.failure_spike", recent[0].EventType)
	require.Equal(t, "watcher:default", recent[0].ActorID)
	require.EqualValues(t, 3, recent[0].Payload["failed_count"])

	// Second scan with no new failures: no further alert.
	w.ScanNow(context.Background())
	recent, err = events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestWatcher_FailureCountBelowThresholdEmitsNothing(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{FailureSpikeThreshold: 3}, nil)

	seedFailure(t, events, "c1", "boom")
	seedFailure(t, events, "c2", "boom")
	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestWatcher_TimeoutSpikeOnlyCountsTimeoutLikeFailures(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{FailureSpikeThreshold: 100, TimeoutSpikeThreshold: 2}, nil)

	seedFailure(t, events, "c1", "operation deadline exceeded")
	seedFailure(t, events, "c2", "request timed out")
	seedFailure(t, events, "c3", "permission denied")

	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "watcher.alert.timeout_spike", recent[0].EventType)
	require.EqualValues(t, 2, recent[0].Payload["timeout_count"])
}

func TestWatcher_RetryStormDetectsPhaseStatusOrMessage(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{RetryStormThreshold: 2}, nil)

	for i, field := range []string{"phase", "status", "message"} {
		_, err := events.Append(context.Background(), eventstore.Event{
			EventType: "worker.task.progress",
			ActorID:   "worker:terminal:p",
			Payload:   map[string]interface{}{field: "retrying attempt", "n": i},
		})
		require.NoError(t, err)
	}

	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "watcher.alert.retry_storm", recent[0].EventType)
	require.EqualValues(t, 3, recent[0].Payload["retry_count"])
}

func TestWatcher_StalledTaskFiresOncePerTask(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{StalledTaskTimeout: 10 * time.Millisecond}, nil)

	_, err := events.Append(context.Background(), eventstore.Event{
		EventType: "worker.task.started",
		ActorID:   "worker:terminal:c1",
		Timestamp: time.Now().Add(-time.Second),
		Payload:   map[string]interface{}{"call_id": "c1"},
	})
	require.NoError(t, err)

	w.ScanNow(context.Background())
	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "watcher.alert.stalled_task", recent[0].EventType)
	require.Equal(t, "c1", recent[0].Payload["call_id"])
}

func TestWatcher_StalledTaskClearsOnCompletion(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	w := New(events, Config{StalledTaskTimeout: 10 * time.Millisecond}, nil)

	_, err := events.Append(context.Background(), eventstore.Event{
		EventType: "worker.task.started",
		ActorID:   "worker:terminal:c1",
		Timestamp: time.Now().Add(-time.Second),
		Payload:   map[string]interface{}{"call_id": "c1"},
	})
	require.NoError(t, err)
	_, err = events.Append(context.Background(), eventstore.Event{
		EventType: "worker.task.completed",
		ActorID:   "worker:terminal:c1",
		Payload:   map[string]interface{}{"call_id": "c1"},
	})
	require.NoError(t, err)

	w.ScanNow(context.Background())

	recent, err := events.GetRecent(context.Background(), eventstore.RecentQuery{Prefix: "watcher.alert."})
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestIsTimeoutError(t *testing.T) {
	require.True(t, isTimeoutError("request timed out"))
	require.True(t, isTimeoutError("context deadline exceeded"))
	require.True(t, isTimeoutError("sandbox did not return within budget"))
	require.False(t, isTimeoutError("permission denied"))
}

func TestMentionsRetry(t *testing.T) {
	require.True(t, mentionsRetry(map[string]interface{}{"phase": "retrying"}))
	require.True(t, mentionsRetry(map[string]interface{}{"message": "will retry shortly"}))
	require.False(t, mentionsRetry(map[string]interface{}{"phase": "searching"}))
}
