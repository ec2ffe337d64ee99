package eventstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltStore_MonotonicSeqAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, Event{EventType: "conductor.run.created", ActorID: "conductor"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s2, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, uint64(3), s2.Head())

	seq, err := s2.Append(ctx, Event{EventType: "conductor.run.created", ActorID: "conductor"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), seq)
}

func TestBoltStore_CorrIDIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path)
	require.NoError(t, err)

	_, err = s.Append(ctx, Event{
		EventType: "harness.tool.dispatched",
		ActorID:   "harness-1",
		Payload:   map[string]interface{}{"correlation_id": "corr-1"},
	})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{
		EventType: "harness.tool.result",
		ActorID:   "harness-1",
		Payload:   map[string]interface{}{"corr_id": "corr-1"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s2.Close()

	events, err := s2.GetByCorrID(ctx, "corr-1", "")
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestBoltStore_GetRecentSinceSeq(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		lastSeq, err = s.Append(ctx, Event{EventType: "watcher.scan.tick", ActorID: "watcher"})
		require.NoError(t, err)
	}

	events, err := s.GetRecent(ctx, RecentQuery{SinceSeq: lastSeq - 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestBoltStore_InvalidEventRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(context.Background(), Event{ActorID: "x"})
	require.ErrorIs(t, err, ErrInvalidEvent)
}
