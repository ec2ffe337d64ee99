package writer

import (
	"context"
	"testing"
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/stretchr/testify/require"
)

func newTestActor(t *testing.T) (*Actor, eventstore.Store) {
	t.Helper()
	doc := rundoc.NewRunDocument("run-1", "write the report", "body")
	events := eventstore.NewInMemoryStore()
	a := NewActor(doc, t.TempDir(), events, 4)
	ctx := context.Background()
	a.Start(ctx)
	t.Cleanup(a.Stop)
	return a, events
}

func TestActor_ApplyPatchAndPersist(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	res, err := a.SubmitApplyPatch(ctx, WriterInboundEnvelope{
		MessageID: "msg-1",
		Kind:      InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		SectionID: "intro",
		Ops:       []rundoc.PatchOp{{Kind: rundoc.PatchOpInsert, Pos: 4, Text: " extended"}},
	})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Version)
	require.Equal(t, "body extended", res.Version.Content)
}

func TestActor_DuplicateMessageIDNotReapplied(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	env := WriterInboundEnvelope{
		MessageID: "msg-dup",
		Kind:      InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		Ops:       []rundoc.PatchOp{{Kind: rundoc.PatchOpInsert, Pos: 0, Text: "x"}},
	}

	res1, err := a.SubmitApplyPatch(ctx, env)
	require.NoError(t, err)
	require.NoError(t, res1.Err)
	firstVersion := res1.Version.VersionID

	res2, err := a.SubmitApplyPatch(ctx, env)
	require.NoError(t, err)
	require.Equal(t, firstVersion, res2.Version.VersionID)

	require.Equal(t, 2, len(a.doc.Versions)) // only one mutation actually applied
}

func TestActor_EnqueueInboundQueueFull(t *testing.T) {
	doc := rundoc.NewRunDocument("run-2", "obj", "body")
	a := NewActor(doc, t.TempDir(), nil, 1)
	// Actor never Start()ed, so nothing drains the single-slot queue.

	res1, err := a.EnqueueInbound(WriterInboundEnvelope{MessageID: "m1", Kind: InboundReportProgress})
	require.NoError(t, err)
	require.True(t, res1.Accepted)

	_, err = a.EnqueueInbound(WriterInboundEnvelope{MessageID: "m2", Kind: InboundReportProgress})
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestActor_EmitsWriterEvents(t *testing.T) {
	a, events := newTestActor(t)
	ctx := context.Background()

	_, err := a.SubmitApplyPatch(ctx, WriterInboundEnvelope{
		MessageID: "msg-2",
		Kind:      InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		Ops:       []rundoc.PatchOp{{Kind: rundoc.PatchOpInsert, Pos: 0, Text: "y"}},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recent, _ := events.GetRecent(ctx, eventstore.RecentQuery{Prefix: "writer.run."})
		return len(recent) >= 2 // started + patch
	}, time.Second, 10*time.Millisecond)
}

func TestActor_MarkSectionState(t *testing.T) {
	a, _ := newTestActor(t)

	res, err := a.EnqueueInbound(WriterInboundEnvelope{
		MessageID: "msg-3",
		Kind:      InboundMarkSectionState,
		SectionID: "body",
		State:     SectionStateRunning,
	})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	require.Eventually(t, func() bool {
		return a.SectionState("body") == SectionStateRunning
	}, time.Second, 10*time.Millisecond)
}
