package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/echoryn/internal/hivemind/service/plugin/builtin/memory-core/embedding"
)

// InProcessStore is the default Memory Store backend: an in-memory index
// per (runID, Collection) with SHA-256 content-hash dedup and hand-rolled
// cosine KNN search, grounded on memory-core's ingest-then-embed pipeline
// and its internal.CosineSimilarity helper.
type InProcessStore struct {
	provider embedding.Provider

	mu    sync.RWMutex
	items map[string][]MemoryItem // key: runID + "/" + collection
	seen  map[string]struct{}     // key: runID + "/" + collection + "/" + hash
}

// NewInProcessStore constructs a store that embeds ingested text through
// provider.
func NewInProcessStore(provider embedding.Provider) *InProcessStore {
	return &InProcessStore{
		provider: provider,
		items:    make(map[string][]MemoryItem),
		seen:     make(map[string]struct{}),
	}
}

func bucketKey(runID string, collection Collection) string {
	return runID + "/" + string(collection)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (s *InProcessStore) Ingest(ctx context.Context, req IngestRequest) (string, bool, error) {
	if req.Text == "" {
		return "", false, fmt.Errorf("memory: ingest requires non-empty text")
	}
	hash := contentHash(req.Text)
	bucket := bucketKey(req.RunID, req.Collection)
	dedupKey := bucket + "/" + hash

	s.mu.RLock()
	_, alreadySeen := s.seen[dedupKey]
	s.mu.RUnlock()
	if alreadySeen {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, it := range s.items[bucket] {
			if it.Hash == hash {
				return it.ID, false, nil
			}
		}
		return "", false, nil
	}

	vec, err := s.provider.EmbedQuery(ctx, req.Text)
	if err != nil {
		return "", false, fmt.Errorf("memory: embed ingest text: %w", err)
	}

	item := MemoryItem{
		ID:         uuid.New().String(),
		Collection: req.Collection,
		RunID:      req.RunID,
		Hash:       hash,
		Text:       req.Text,
		Embedding:  vec,
		Metadata:   req.Metadata,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[dedupKey]; ok {
		for _, it := range s.items[bucket] {
			if it.Hash == hash {
				return it.ID, false, nil
			}
		}
	}
	s.seen[dedupKey] = struct{}{}
	s.items[bucket] = append(s.items[bucket], item)
	return item.ID, true, nil
}

func (s *InProcessStore) Snapshot(ctx context.Context, runID string, collections []Collection, query string, k int) (SnapshotResult, error) {
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredItem
	for _, col := range collections {
		bucket := bucketKey(runID, col)
		for _, item := range s.items[bucket] {
			score := cosineSimilarity(queryVec, item.Embedding)
			scored = append(scored, ScoredItem{Item: item, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return SnapshotResult{Items: scored}, nil
}

func (s *InProcessStore) Count(ctx context.Context, runID string, collection Collection) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[bucketKey(runID, collection)]), nil
}

func (s *InProcessStore) Close() error { return nil }

// cosineSimilarity mirrors memory-core/internal.CosineSimilarity: dot
// product over the shared prefix length, normalized by vector magnitudes.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	length := len(a)
	if len(b) < length {
		length = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < length; i++ {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
