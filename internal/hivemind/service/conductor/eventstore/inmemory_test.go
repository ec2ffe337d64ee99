package eventstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_MonotonicSeq(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seq, err := s.Append(ctx, Event{
			EventType: "conductor.run.created",
			ActorID:   "conductor",
			Payload:   map[string]interface{}{"run_id": "r1"},
		})
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), seq)
	}
	require.Equal(t, uint64(5), s.Head())
}

func TestInMemoryStore_RejectsInvalidEvent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.Append(ctx, Event{ActorID: "conductor"})
	require.ErrorIs(t, err, ErrInvalidEvent)

	_, err = s.Append(ctx, Event{EventType: "x"})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestInMemoryStore_CorrIDBothConventions(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.Append(ctx, Event{
		EventType: "harness.tool.dispatched",
		ActorID:   "harness-1",
		Payload:   map[string]interface{}{"correlation_id": "abc"},
	})
	require.NoError(t, err)

	_, err = s.Append(ctx, Event{
		EventType: "harness.tool.result",
		ActorID:   "harness-1",
		Payload:   map[string]interface{}{"corr_id": "abc"},
	})
	require.NoError(t, err)

	events, err := s.GetByCorrID(ctx, "abc", "")
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestInMemoryStore_GetRecentFiltersByPrefixAndSinceSeq(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.Append(ctx, Event{EventType: "conductor.run.created", ActorID: "conductor"})
	}
	for i := 0; i < 2; i++ {
		_, _ = s.Append(ctx, Event{EventType: "worker.task.started", ActorID: "worker-1"})
	}

	recent, err := s.GetRecent(ctx, RecentQuery{SinceSeq: 2, Prefix: "worker."})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, e := range recent {
		require.True(t, hasPrefix(e.EventType, "worker."))
	}
}

func TestInMemoryStore_SubscribeScopeIsolation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	chA, cancelA := s.Subscribe(ctx, Scope{RunID: "runA"})
	defer cancelA()
	chB, cancelB := s.Subscribe(ctx, Scope{RunID: "runB"})
	defer cancelB()

	_, err := s.Append(ctx, Event{
		EventType: "conductor.run.progress",
		ActorID:   "conductor",
		Payload:   map[string]interface{}{"run_id": "runA"},
	})
	require.NoError(t, err)

	select {
	case e := <-chA:
		require.Equal(t, "runA", e.RunID())
	case <-time.After(time.Second):
		t.Fatal("expected event on scoped subscriber chA")
	}

	select {
	case e := <-chB:
		t.Fatalf("unexpected event delivered to unrelated scope: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryStore_CloseStopsSubscribers(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	ch, _ := s.Subscribe(ctx, Scope{})
	require.NoError(t, s.Close())

	_, open := <-ch
	require.False(t, open)

	_, err := s.Append(ctx, Event{EventType: "x", ActorID: "y"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestInMemoryStore_GetForActorScoped(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.Append(ctx, Event{
			EventType: fmt.Sprintf("harness.turn.%d", i),
			ActorID:   "harness-1",
			Payload:   map[string]interface{}{"session_id": "sess-1", "thread_id": "thread-1"},
		})
	}
	_, _ = s.Append(ctx, Event{
		EventType: "harness.turn.other",
		ActorID:   "harness-1",
		Payload:   map[string]interface{}{"session_id": "sess-2"},
	})

	events, err := s.GetForActorScoped(ctx, "harness-1", "sess-1", "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
}
