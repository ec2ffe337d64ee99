// Package harness implements the Agent Harness: a bounded-turn loop that
// asks an LLM for the next tool call, executes inline-safe tools
// synchronously, dispatches slow/interactive tools asynchronously (ending
// the turn), and resumes on a later turn by reading pending results from
// the Event Store. Generalized from echoryn's AgentRunner/TurnExecutor/
// ContextBuilder/Compactor pipeline (domain/service/runtime) to a
// capability-worker-backed, Port-abstracted model.
package harness

import (
	"context"
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/harness/dag"
)

// ToolMode tags whether a tool executes inline or is dispatched
// asynchronously and ends the turn, per the tool execution policy table.
type ToolMode string

const (
	ToolModeSync  ToolMode = "sync"
	ToolModeAsync ToolMode = "async"
)

// ToolPolicy is the fixed, centrally-enforced mapping of tool name to
// execution mode — never left to per-tool-author discretion, per the
// shell-isolation invariant ("bash" and "spawn_harness" are the
// async-dispatched tools, and only the Terminal capability worker ever
// actually execs a shell).
var ToolPolicy = map[string]ToolMode{
	"file_read":     ToolModeSync,
	"file_write":    ToolModeSync,
	"bash":          ToolModeAsync,
	"web_search":    ToolModeSync,
	"fetch_url":     ToolModeSync,
	"spawn_harness": ToolModeAsync,
}

// ToolCall is one tool invocation the LLM requested for the current turn.
type ToolCall struct {
	Name string
	Args map[string]interface{}
}

// ToolOutcome is what executing (or dispatching) a ToolCall produced.
type ToolOutcome struct {
	// Output is the synchronous result ("full content", "byte count
	// written", serialized JSON, ...). For an async dispatch this is the
	// literal "dispatched:corr_id:<id>" string.
	Output string
	// CorrID is set when the tool was dispatched asynchronously.
	CorrID string
	Err    error
}

// ContextSourceKind tags the four context source variants the harness can
// resolve for a turn.
type ContextSourceKind string

const (
	ContextSourceDocument     ContextSourceKind = "Document"
	ContextSourceToolOutput   ContextSourceKind = "ToolOutput"
	ContextSourcePreviousTurn ContextSourceKind = "PreviousTurn"
	ContextSourceMemoryQuery  ContextSourceKind = "MemoryQuery"
)

// ContextSource is a single resolvable input a turn's prompt can draw on.
type ContextSource struct {
	Kind ContextSourceKind
	// Document
	Path string
	// ToolOutput
	CorrID string
	// PreviousTurn
	TurnsBack int
	// MemoryQuery
	Query string
}

// ContextLookupTimeout bounds a single ToolOutput store lookup; it applies
// per lookup, not per turn.
const ContextLookupTimeout = 2 * time.Second

// LLMDecision is what the harness's Port.CallLLM returns for one turn:
// either a next ToolCall to make, a DAG to run, or a terminal "finished"
// call with a summary. DAGSteps, when non-empty, takes precedence over
// ToolCalls: the turn compiles and executes the graph in one shot instead
// of dispatching a single tool call.
type LLMDecision struct {
	ToolCalls []ToolCall
	DAGSteps  []dag.Step
	Finished  bool
	Summary   string
}

// Port is the seam the harness consumes; it knows nothing about which
// concrete worker or store fulfills a capability.
type Port interface {
	ResolveContext(ctx context.Context, src ContextSource) (string, bool, error)
	ExecuteInlineTool(ctx context.Context, call ToolCall) ToolOutcome
	DispatchAsyncTool(ctx context.Context, call ToolCall) (corrID string, err error)
	CallLLM(ctx context.Context, transcript []Turn, tools []string) (LLMDecision, error)
	// CallRawLLM issues a single free-form prompt, for the DAG sub-mode's
	// LlmCall steps (which have no ToolCall/transcript shape of their own).
	CallRawLLM(ctx context.Context, prompt string) (string, error)
	EmitMessage(ctx context.Context, message string)
	WriteCheckpoint(ctx context.Context, cp Checkpoint)
	SpawnSubHarness(ctx context.Context, objective string) (corrID string, err error)
}

// Turn is one resolved round of the harness loop, retained in-memory for
// PreviousTurn(N) context resolution.
type Turn struct {
	Number       int
	ToolCalls    []ToolCall
	ToolOutcomes []ToolOutcome
	Decision     LLMDecision
}

// Checkpoint is the harness.checkpoint event payload written after every
// turn: the turn number and every correlation ID still outstanding.
type Checkpoint struct {
	TurnNumber         int
	PendingCorrIDs     []string
	Finished           bool
}

// Outcome is what Run returns once the harness loop terminates.
type Outcome struct {
	Completed bool
	Summary   string
	Turns     int
	Err       error
}
