// Package researcher implements the web-research capability worker: a
// chain of Provider backends tried in priority order, with citations
// merged across whichever providers actually returned results, grounded
// on original_source's researcher provider fan-out behavior (no single
// provider is load-bearing; the worker degrades gracefully as providers
// fail).
package researcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
)

// Worker is the Researcher capability worker. Providers are tried in the
// order given and do not stop at the first success: citations accumulate
// across backends until maxResults citations have been gathered, mirroring
// the "auto sequential" selection mode from the original researcher actor.
type Worker struct {
	providers []Provider
	events    eventstore.Store
	maxResults int
}

// New constructs a Researcher worker over providers, tried in the given
// order. maxResults <= 0 defaults to 8.
func New(providers []Provider, events eventstore.Store, maxResults int) *Worker {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Worker{providers: providers, events: events, maxResults: maxResults}
}

func (w *Worker) Capability() worker.Capability { return worker.CapabilityResearcher }

// Run issues req.Objective as a search query against every configured
// provider, merging citations, then (if req.Params["url"] is set) fetches
// that page, recording the fetch as a worker.tool.* event pair. The fetched
// text is not added to the result; the Summary only counts sources.
func (w *Worker) Run(ctx context.Context, req worker.Request) worker.Result {
	lc := worker.NewLifecycle(w.events, req.RunID, req.CallID, fmt.Sprintf("worker:researcher:%s", req.CallID))
	lc.Started(ctx, req.Objective)

	if len(w.providers) == 0 {
		err := fmt.Errorf("researcher: no search providers configured")
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}

	var citations []worker.Citation
	var lastErr error
	succeeded := 0

	for _, p := range w.providers {
		lc.ToolCall(ctx, "web_search", map[string]interface{}{"provider": p.Name(), "query": req.Objective})
		start := time.Now()
		hits, err := p.Search(ctx, SearchRequest{Query: req.Objective, MaxResults: w.maxResults})
		lc.ToolResult(ctx, "web_search", err == nil, time.Since(start).Milliseconds(), err)

		if err != nil {
			lastErr = err
			lc.Progress(ctx, "search_failed", fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		succeeded++
		for _, h := range hits {
			citations = append(citations, worker.Citation{
				ID:       uuid.New().String(),
				Provider: p.Name(),
				Title:    h.Title,
				URL:      h.URL,
				Snippet:  h.Snippet,
				Score:    h.Score,
			})
		}
		lc.Finding(ctx, fmt.Sprintf("%s returned %d results", p.Name(), len(hits)), map[string]interface{}{
			"provider":     p.Name(),
			"result_count": len(hits),
		})
		if len(citations) >= w.maxResults {
			break
		}
	}

	if succeeded == 0 {
		err := fmt.Errorf("researcher: all providers failed, last error: %w", lastErr)
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}

	if len(citations) > w.maxResults {
		citations = citations[:w.maxResults]
	}

	if url, ok := req.Params["url"].(string); ok && url != "" {
		w.fetchURL(ctx, lc, url, req)
	}

	lc.Learning(ctx, fmt.Sprintf("gathered %d citations for %q", len(citations), req.Objective))

	res := worker.Result{
		Summary:   fmt.Sprintf("found %d sources for %q", len(citations), req.Objective),
		Citations: citations,
	}
	lc.Completed(ctx, res)
	return res
}

func (w *Worker) fetchURL(ctx context.Context, lc *worker.Lifecycle, url string, req worker.Request) {
	maxChars := 4000
	if mc, ok := req.Params["max_chars"].(int); ok && mc > 0 {
		maxChars = mc
	}
	for _, p := range w.providers {
		lc.ToolCall(ctx, "fetch_url", map[string]interface{}{"url": url})
		start := time.Now()
		_, err := p.FetchURL(ctx, url, maxChars)
		lc.ToolResult(ctx, "fetch_url", err == nil, time.Since(start).Milliseconds(), err)
		if err == nil {
			return
		}
	}
}
