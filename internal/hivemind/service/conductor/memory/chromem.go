package memory

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/google/uuid"
	"github.com/kiosk404/echoryn/internal/hivemind/service/plugin/builtin/memory-core/embedding"
)

// ChromemStore is the persistent Memory Store backend: one chromem-go
// collection per (runID, Collection) pair, with dedup tracked the same
// way InProcessStore does it (content hash, not chromem's own ID scheme,
// since embeddings are precomputed and inserted by ID).
type ChromemStore struct {
	provider embedding.Provider
	db       *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
	seen        map[string]string // dedupKey -> item id
}

// NewChromemStore opens (or creates) a chromem-go database at path. An
// empty path keeps everything in memory with no file persistence.
func NewChromemStore(provider embedding.Provider, path string, compress bool) (*ChromemStore, error) {
	var db *chromem.DB
	if path != "" {
		loaded, err := chromem.NewPersistentDB(path, compress)
		if err != nil {
			db = chromem.NewDB()
		} else {
			db = loaded
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemStore{
		provider:    provider,
		db:          db,
		collections: make(map[string]*chromem.Collection),
		seen:        make(map[string]string),
	}, nil
}

// identityEmbed refuses to embed: every document is inserted with a
// precomputed vector, so chromem should never need to call its own
// embedding function.
func identityEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("memory: chromem embedding func invoked unexpectedly")
}

func (s *ChromemStore) getCollection(bucket string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[bucket]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(bucket, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("memory: get/create collection %q: %w", bucket, err)
	}
	s.collections[bucket] = col
	return col, nil
}

func (s *ChromemStore) Ingest(ctx context.Context, req IngestRequest) (string, bool, error) {
	if req.Text == "" {
		return "", false, fmt.Errorf("memory: ingest requires non-empty text")
	}
	hash := contentHash(req.Text)
	bucket := bucketKey(req.RunID, req.Collection)
	dedupKey := bucket + "/" + hash

	s.mu.Lock()
	if id, ok := s.seen[dedupKey]; ok {
		s.mu.Unlock()
		return id, false, nil
	}
	s.mu.Unlock()

	vec, err := s.provider.EmbedQuery(ctx, req.Text)
	if err != nil {
		return "", false, fmt.Errorf("memory: embed ingest text: %w", err)
	}

	col, err := s.getCollection(bucket)
	if err != nil {
		return "", false, err
	}

	id := uuid.New().String()
	strMeta := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		strMeta[k] = fmt.Sprint(v)
	}
	strMeta["hash"] = hash

	doc := chromem.Document{
		ID:        id,
		Content:   req.Text,
		Metadata:  strMeta,
		Embedding: vec,
	}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return "", false, fmt.Errorf("memory: add document: %w", err)
	}

	s.mu.Lock()
	s.seen[dedupKey] = id
	s.mu.Unlock()

	return id, true, nil
}

func (s *ChromemStore) Snapshot(ctx context.Context, runID string, collections []Collection, query string, k int) (SnapshotResult, error) {
	if len(collections) == 0 {
		collections = []Collection{
			CollectionUserInputs, CollectionVersionSnapshots,
			CollectionRunTrajectories, CollectionDocTrajectories,
		}
	}
	if k <= 0 {
		k = 6
	}

	queryVec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("memory: embed query: %w", err)
	}

	var scored []ScoredItem
	for _, col := range collections {
		bucket := bucketKey(runID, col)
		chromemCol, err := s.getCollection(bucket)
		if err != nil {
			continue
		}
		n := chromemCol.Count()
		if n == 0 {
			continue
		}
		limit := k
		if n < limit {
			limit = n
		}
		results, err := chromemCol.QueryEmbedding(ctx, queryVec, limit, nil, nil)
		if err != nil {
			continue
		}
		for _, r := range results {
			scored = append(scored, ScoredItem{
				Item: MemoryItem{
					ID:         r.ID,
					Collection: col,
					RunID:      runID,
					Hash:       r.Metadata["hash"],
					Text:       r.Content,
				},
				Score: float64(r.Similarity),
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return SnapshotResult{Items: scored}, nil
}

func (s *ChromemStore) Count(ctx context.Context, runID string, collection Collection) (int, error) {
	col, err := s.getCollection(bucketKey(runID, collection))
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (s *ChromemStore) Close() error {
	return nil
}
