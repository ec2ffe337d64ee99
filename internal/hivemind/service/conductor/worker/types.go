// Package worker holds the shared contract and lifecycle plumbing used by
// every capability worker (terminal, researcher, writer-child): a Worker
// owns one capability call from Pending through a terminal outcome,
// reports its progress as lifecycle events in the Event Store, and returns
// its final Result from Run; the Conductor runs each Worker on its own
// goroutine and reads that Result from a channel.
package worker

import "context"

// Capability names the worker classes the Conductor can dispatch by.
type Capability string

const (
	CapabilityTerminal    Capability = "terminal"
	CapabilityResearcher  Capability = "researcher"
	CapabilityWriterChild Capability = "writer"
	// CapabilityHarness drives a bounded-turn Agent Harness loop over the
	// other capabilities rather than performing one action directly; it is
	// the Conductor's escape hatch for an agenda item whose objective needs
	// several rounds of tool use to resolve.
	CapabilityHarness Capability = "harness"
)

// Request is the objective a capability call asks a worker to pursue.
type Request struct {
	RunID      string
	CallID     string
	Objective  string
	DesktopID  string
	Params     map[string]interface{}
}

// FailureKind classifies a worker failure for the Conductor's
// WorkerFailed/WorkerBlocked distinction.
type FailureKind string

const (
	FailureKindError   FailureKind = "error"
	FailureKindTimeout FailureKind = "timeout"
	FailureKindBlocked FailureKind = "blocked"
)

// Result is what a worker hands back once its capability call reaches a
// terminal state. Blocked is set when the worker itself decided it cannot
// proceed (WorkerBlocked), distinct from Err (WorkerFailed).
type Result struct {
	Summary     string
	ArtifactIDs []string
	Citations   []Citation
	Blocked     bool
	BlockReason string
	Err         error
	FailureKind FailureKind
}

// Citation is a single sourced reference a worker (typically the
// researcher) attaches to its result metadata.
type Citation struct {
	ID        string  `json:"id"`
	Provider  string  `json:"provider"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score,omitempty"`
}

// Worker executes one capability call to completion. Implementations must
// respect ctx cancellation/deadline (the Conductor enforces the call's
// budget via ctx) and must not block past it.
type Worker interface {
	Capability() Capability
	Run(ctx context.Context, req Request) Result
}
