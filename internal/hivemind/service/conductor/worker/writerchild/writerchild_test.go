package writerchild

import (
	"context"
	"errors"
	"testing"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
	"github.com/stretchr/testify/require"
)

type fakeDrafter struct {
	text string
	err  error
}

func (f *fakeDrafter) Draft(ctx context.Context, objective, headContent string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newActor(t *testing.T) *writer.Actor {
	t.Helper()
	doc := rundoc.NewRunDocument("run-1", "write the report", "intro")
	a := writer.NewActor(doc, t.TempDir(), eventstore.NewInMemoryStore(), 4)
	a.Start(context.Background())
	t.Cleanup(a.Stop)
	return a
}

func TestWriterChildWorker_ProposesOverlay(t *testing.T) {
	actor := newActor(t)
	w := New(actor, &fakeDrafter{text: "some drafted prose"}, nil)

	res := w.Run(context.Background(), worker.Request{
		RunID:  "run-1",
		CallID: "call-1",
		Objective: "draft the intro",
		Params:    map[string]interface{}{"section_id": "intro"},
	})

	require.NoError(t, res.Err)
	require.Len(t, res.ArtifactIDs, 1)
	require.Contains(t, res.Summary, "drafted prose")
}

func TestWriterChildWorker_DraftFailure(t *testing.T) {
	actor := newActor(t)
	w := New(actor, &fakeDrafter{err: errors.New("llm unavailable")}, nil)

	res := w.Run(context.Background(), worker.Request{RunID: "run-1", CallID: "call-2", Objective: "x"})
	require.Error(t, res.Err)
}

func TestWriterChildWorker_NoActorBound(t *testing.T) {
	w := New(nil, &fakeDrafter{text: "x"}, nil)
	res := w.Run(context.Background(), worker.Request{RunID: "run-1", CallID: "call-3", Objective: "x"})
	require.Error(t, res.Err)
}
