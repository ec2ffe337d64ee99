// Package conductor implements the Conductor Actor: the component that owns
// a Run end to end — builds its agenda, consults the policy for the next
// action, dispatches capability workers, folds their results back in, and
// finalizes the run. It generalizes the single-run-per-goroutine ownership
// model echoryn's AgentRunner uses into a three-tier Run/AgendaItem/
// CapabilityCall state machine, serialized behind one inbound message loop
// the way the Writer Actor serializes document mutation.
package conductor

import (
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
)

// RunStatus is the top-level state of one Run.
type RunStatus string

const (
	RunQueued          RunStatus = "Queued"
	RunRunning         RunStatus = "Running"
	RunWaitingForCalls RunStatus = "WaitingForCalls"
	RunCompleted       RunStatus = "Completed"
	RunFailed          RunStatus = "Failed"
	RunBlocked         RunStatus = "Blocked"
)

// Terminal reports whether status is one of the absorbing terminal states.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunBlocked
}

// AgendaItemStatus is the lifecycle of one unit of planned work.
type AgendaItemStatus string

const (
	AgendaPending   AgendaItemStatus = "Pending"
	AgendaReady     AgendaItemStatus = "Ready"
	AgendaRunning   AgendaItemStatus = "Running"
	AgendaCompleted AgendaItemStatus = "Completed"
	AgendaFailed    AgendaItemStatus = "Failed"
	AgendaBlocked   AgendaItemStatus = "Blocked"
)

func (s AgendaItemStatus) Terminal() bool {
	return s == AgendaCompleted || s == AgendaFailed || s == AgendaBlocked
}

// CapabilityCallStatus is the lifecycle of one dispatched worker invocation.
type CapabilityCallStatus string

const (
	CallPending   CapabilityCallStatus = "Pending"
	CallRunning   CapabilityCallStatus = "Running"
	CallCompleted CapabilityCallStatus = "Completed"
	CallFailed    CapabilityCallStatus = "Failed"
	CallBlocked   CapabilityCallStatus = "Blocked"
)

func (s CapabilityCallStatus) Terminal() bool {
	return s == CallCompleted || s == CallFailed || s == CallBlocked
}

// OutputMode controls whether a finished run writes a final report artifact
// to the Writer.
type OutputMode string

const (
	OutputAuto                OutputMode = "auto"
	OutputMarkdownReportWriter OutputMode = "markdown_report_to_writer"
)

// ArtifactKind enumerates the shapes of artifact a capability call can emit.
type ArtifactKind string

const (
	ArtifactSearchResults  ArtifactKind = "SearchResults"
	ArtifactTerminalOutput ArtifactKind = "TerminalOutput"
	ArtifactDocument       ArtifactKind = "Document"
)

// Artifact is an immutable-once-emitted output of a capability call.
type Artifact struct {
	ArtifactID  string                 `json:"artifact_id"`
	Kind        ArtifactKind           `json:"kind"`
	Reference   string                 `json:"reference"`
	MimeType    string                 `json:"mime_type,omitempty"`
	SourceCallID string                `json:"source_call_id"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// AgendaItem is one planned unit of capability work within a Run.
type AgendaItem struct {
	ItemID     string
	Capability worker.Capability
	Objective  string
	Priority   int
	DependsOn  []string
	Status     AgendaItemStatus
	CreatedAt  time.Time
}

// CapabilityCall is one dispatched (or about-to-be-dispatched) worker
// invocation backing an AgendaItem.
type CapabilityCall struct {
	CallID       string
	Capability   worker.Capability
	Objective    string
	Status       CapabilityCallStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	AgendaItemID string
	ParentCallID string
	ArtifactIDs  []string
	Error        string
}

// DecisionKind is one of the policy loop's five possible actions.
type DecisionKind string

const (
	DecisionSpawnWorker DecisionKind = "SpawnWorker"
	DecisionAwaitWorker DecisionKind = "AwaitWorker"
	DecisionMergeCanon  DecisionKind = "MergeCanon"
	DecisionComplete    DecisionKind = "Complete"
	DecisionBlock       DecisionKind = "Block"
)

// Decision is what a policy invocation returns: an action plus, for
// SpawnWorker, the capability and objective to dispatch.
type Decision struct {
	Kind       DecisionKind
	Capability worker.Capability
	Objective  string
	Reason     string
}

// DecisionRecord is a Decision as recorded in a Run's audit trail.
type DecisionRecord struct {
	Decision  Decision
	Timestamp time.Time
}

// Run is the Conductor's full state for one executing objective.
type Run struct {
	RunID       string
	DesktopID   string
	Objective   string
	OutputMode  OutputMode
	Status      RunStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Agenda      []*AgendaItem
	Calls       map[string]*CapabilityCall
	Decisions   []DecisionRecord
	Artifacts   []Artifact
	ActiveCalls map[string]bool
	FailReason  string
}

// TaskState is the externally visible snapshot returned by ExecuteTask and
// GetTaskState: a read-only copy, never a pointer into live Conductor state.
type TaskState struct {
	RunID      string
	Status     RunStatus
	Objective  string
	Agenda     []AgendaItem
	Decisions  []DecisionRecord
	Artifacts  []Artifact
	FailReason string
}

// ExecuteTaskRequest is the input to ExecuteTask.
type ExecuteTaskRequest struct {
	// RunID, when set, is used as the new Run's identity instead of
	// generating one, so a caller can create run-scoped infrastructure
	// (a RunDocument, a bound Writer Actor) before the first dispatch cycle
	// fires.
	RunID      string
	DesktopID  string
	Objective  string
	OutputMode OutputMode
}

func snapshot(r *Run) TaskState {
	agenda := make([]AgendaItem, len(r.Agenda))
	for i, a := range r.Agenda {
		agenda[i] = *a
	}
	return TaskState{
		RunID:      r.RunID,
		Status:     r.Status,
		Objective:  r.Objective,
		Agenda:     agenda,
		Decisions:  append([]DecisionRecord{}, r.Decisions...),
		Artifacts:  append([]Artifact{}, r.Artifacts...),
		FailReason: r.FailReason,
	}
}
