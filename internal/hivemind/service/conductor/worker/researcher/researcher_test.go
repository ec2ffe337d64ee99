package researcher

import (
	"context"
	"errors"
	"testing"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	hits    []SearchResult
	err     error
	fetched string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeProvider) FetchURL(ctx context.Context, url string, maxChars int) (string, error) {
	return f.fetched, nil
}

func TestResearcherWorker_MergesCitationsAcrossProviders(t *testing.T) {
	events := eventstore.NewInMemoryStore()
	p1 := &fakeProvider{name: "tavily", hits: []SearchResult{{Title: "A", URL: "http://a"}}}
	p2 := &fakeProvider{name: "brave", hits: []SearchResult{{Title: "B", URL: "http://b"}}}
	w := New([]Provider{p1, p2}, events, 8)

	res := w.Run(context.Background(), worker.Request{RunID: "r1", CallID: "c1", Objective: "rust ownership"})
	require.NoError(t, res.Err)
	require.Len(t, res.Citations, 2)
	require.Equal(t, "tavily", res.Citations[0].Provider)
	require.Equal(t, "brave", res.Citations[1].Provider)
}

func TestResearcherWorker_OneProviderFailsOthersSucceed(t *testing.T) {
	p1 := &fakeProvider{name: "tavily", err: errors.New("rate limited")}
	p2 := &fakeProvider{name: "exa", hits: []SearchResult{{Title: "C", URL: "http://c"}}}
	w := New([]Provider{p1, p2}, nil, 8)

	res := w.Run(context.Background(), worker.Request{RunID: "r1", CallID: "c1", Objective: "x"})
	require.NoError(t, res.Err)
	require.Len(t, res.Citations, 1)
}

func TestResearcherWorker_AllProvidersFail(t *testing.T) {
	p1 := &fakeProvider{name: "tavily", err: errors.New("down")}
	w := New([]Provider{p1}, nil, 8)

	res := w.Run(context.Background(), worker.Request{RunID: "r1", CallID: "c1", Objective: "x"})
	require.Error(t, res.Err)
	require.Equal(t, worker.FailureKindError, res.FailureKind)
}

func TestResearcherWorker_NoProvidersConfigured(t *testing.T) {
	w := New(nil, nil, 8)
	res := w.Run(context.Background(), worker.Request{RunID: "r1", CallID: "c1", Objective: "x"})
	require.Error(t, res.Err)
}
