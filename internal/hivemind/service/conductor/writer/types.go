// Package writer implements the Writer Actor: a bounded inbound-message
// queue and section-state tracker layered over a rundoc.RunDocument,
// owned by a single goroutine the way an AgentRunner owns its run —
// every mutation to the document happens on that one goroutine, so the
// rundoc package itself never needs its own locking.
package writer

import (
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
)

// SectionState is the coarse lifecycle of one document section.
type SectionState string

const (
	SectionStatePending  SectionState = "Pending"
	SectionStateRunning  SectionState = "Running"
	SectionStateComplete SectionState = "Complete"
	SectionStateFailed   SectionState = "Failed"
)

// InboundKind tags what a WriterInboundEnvelope asks the actor to do.
type InboundKind string

const (
	InboundApplyPatch        InboundKind = "ApplyPatch"
	InboundReportProgress    InboundKind = "ReportProgress"
	InboundMarkSectionState  InboundKind = "MarkSectionState"
	InboundMergeCanon        InboundKind = "MergeCanon"
)

// WriterInboundEnvelope is the single message shape the actor's inbound
// channel carries. MessageID makes enqueue idempotent: a duplicate
// MessageID is acknowledged without being reapplied.
type WriterInboundEnvelope struct {
	MessageID string
	Kind      InboundKind

	// ApplyPatch fields.
	Source        rundoc.Author
	SectionID     string
	Ops           []rundoc.PatchOp
	Proposal      bool
	BaseVersionID int

	// ReportProgress fields.
	Phase   string
	Message string

	// MarkSectionState fields.
	State SectionState

	EnqueuedAt time.Time
}

// EnqueueResult is returned synchronously from EnqueueInbound — it never
// waits for the envelope to actually be processed, only for it to be
// accepted into (or recognized as a duplicate of) the queue.
type EnqueueResult struct {
	Accepted  bool
	Duplicate bool
}

// ApplyResult is the outcome of one ApplyPatch envelope once the actor's
// loop has processed it.
type ApplyResult struct {
	Version *rundoc.DocumentVersion
	Overlay *rundoc.Overlay
	Err     error
}
