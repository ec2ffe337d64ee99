// Package memory implements the conductor's Memory Store: four
// content-addressed collections that the Agent Harness can query through
// a single Snapshot call, adapted from the echoryn memory-core plugin's
// content hashing, embedding, and hybrid-search building blocks.
package memory

import (
	"context"
	"time"
)

// Collection names the four fixed collections a run's memory is split
// across.
type Collection string

const (
	CollectionUserInputs      Collection = "user_inputs"
	CollectionVersionSnapshots Collection = "version_snapshots"
	CollectionRunTrajectories Collection = "run_trajectories"
	CollectionDocTrajectories Collection = "doc_trajectories"
)

// MemoryItem is one content-addressed entry in a collection.
type MemoryItem struct {
	ID         string     `json:"id"`
	Collection Collection `json:"collection"`
	RunID      string     `json:"run_id"`
	Hash       string     `json:"hash"`
	Text       string     `json:"text"`
	Embedding  []float32  `json:"embedding,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IngestRequest adds a piece of content to a collection. Ingestion is
// idempotent on Hash: re-ingesting the same content for the same run and
// collection is a no-op.
type IngestRequest struct {
	Collection Collection
	RunID      string
	Text       string
	Metadata   map[string]interface{}
}

// SnapshotResult is the context-window-sized bundle the harness's
// MemoryQuery(q) context source assembles its prompt fragment from.
type SnapshotResult struct {
	Items []ScoredItem `json:"items"`
}

// ScoredItem pairs a MemoryItem with its cosine-similarity score against
// the query embedding.
type ScoredItem struct {
	Item  MemoryItem `json:"item"`
	Score float64    `json:"score"`
}

// Store is the Memory Store's operation contract.
type Store interface {
	// Ingest adds content to a collection, returning the stored item's ID
	// and whether it was a fresh insert (false means a dedup hit).
	Ingest(ctx context.Context, req IngestRequest) (id string, inserted bool, err error)

	// Snapshot embeds query and returns the k highest-scoring items across
	// the given collections (all four if collections is empty), scoped to
	// runID (an empty runID matches only items ingested with an empty RunID).
	Snapshot(ctx context.Context, runID string, collections []Collection, query string, k int) (SnapshotResult, error)

	// Count returns the number of items stored for runID in collection.
	Count(ctx context.Context, runID string, collection Collection) (int, error)

	Close() error
}
