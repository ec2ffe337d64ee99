package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeProvider embeds text deterministically by bag-of-words counts over a
// small fixed vocabulary, so cosine similarity behaves predictably in
// tests without a real embedding backend.
type fakeProvider struct{}

var vocab = []string{"deploy", "rollback", "database", "frontend", "test"}

func (fakeProvider) ID() string    { return "fake" }
func (fakeProvider) Model() string { return "fake-v1" }

func (fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab))
	for i, w := range vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	return vec, nil
}

func (p fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = p.EmbedQuery(ctx, t)
	}
	return out, nil
}

func TestInProcessStore_IngestDedupByHash(t *testing.T) {
	s := NewInProcessStore(fakeProvider{})
	ctx := context.Background()

	id1, inserted1, err := s.Ingest(ctx, IngestRequest{
		Collection: CollectionUserInputs,
		RunID:      "run-1",
		Text:       "deploy the frontend",
	})
	require.NoError(t, err)
	require.True(t, inserted1)

	id2, inserted2, err := s.Ingest(ctx, IngestRequest{
		Collection: CollectionUserInputs,
		RunID:      "run-1",
		Text:       "deploy the frontend",
	})
	require.NoError(t, err)
	require.False(t, inserted2)
	require.Equal(t, id1, id2)

	count, err := s.Count(ctx, "run-1", CollectionUserInputs)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestInProcessStore_SnapshotRanksByRelevance(t *testing.T) {
	s := NewInProcessStore(fakeProvider{})
	ctx := context.Background()

	_, _, err := s.Ingest(ctx, IngestRequest{Collection: CollectionRunTrajectories, RunID: "run-1", Text: "rollback the database migration"})
	require.NoError(t, err)
	_, _, err = s.Ingest(ctx, IngestRequest{Collection: CollectionRunTrajectories, RunID: "run-1", Text: "run the frontend test suite"})
	require.NoError(t, err)

	result, err := s.Snapshot(ctx, "run-1", nil, "database rollback failure", 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Items)
	require.Contains(t, result.Items[0].Item.Text, "rollback")
}

func TestInProcessStore_SnapshotScopedByRunID(t *testing.T) {
	s := NewInProcessStore(fakeProvider{})
	ctx := context.Background()

	_, _, err := s.Ingest(ctx, IngestRequest{Collection: CollectionUserInputs, RunID: "run-A", Text: "deploy database"})
	require.NoError(t, err)
	_, _, err = s.Ingest(ctx, IngestRequest{Collection: CollectionUserInputs, RunID: "run-B", Text: "deploy database"})
	require.NoError(t, err)

	result, err := s.Snapshot(ctx, "run-A", nil, "deploy", 10)
	require.NoError(t, err)
	for _, item := range result.Items {
		require.Equal(t, "run-A", item.Item.RunID)
	}
}

func TestCosineSimilarity_OrthogonalAndIdentical(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	require.Equal(t, float64(0), cosineSimilarity(a, b))

	c := []float32{1, 1, 1}
	require.InDelta(t, 1.0, cosineSimilarity(c, c), 1e-9)
}
