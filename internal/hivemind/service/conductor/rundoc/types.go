// Package rundoc implements the Run Document Runtime: a per-run markdown
// document versioned as a linear chain, with pending overlays representing
// in-flight multi-source proposals collapsed into new versions on commit.
//
// The model is deliberately not a general CRDT: at most one canonical head
// exists at a time, and pending overlays are superseded (not merged) the
// moment a new version advances past their base. See RunDocument.
package rundoc

import "time"

// Author identifies who produced an overlay.
type Author string

const (
	AuthorWriter     Author = "Writer"
	AuthorUser       Author = "User"
	AuthorResearcher Author = "Researcher"
	AuthorTerminal   Author = "Terminal"
)

// OverlayKind distinguishes an in-flight edit proposal from a sidebar note.
type OverlayKind string

const (
	OverlayKindProposal  OverlayKind = "Proposal"
	OverlayKindAnnotation OverlayKind = "Annotation"
)

// OverlayStatus tracks an overlay's lifecycle.
type OverlayStatus string

const (
	OverlayStatusPending    OverlayStatus = "Pending"
	OverlayStatusCommitted  OverlayStatus = "Committed"
	OverlayStatusRejected   OverlayStatus = "Rejected"
	OverlayStatusSuperseded OverlayStatus = "Superseded"
)

// PatchOpKind tags the two character-oriented patch primitives.
type PatchOpKind string

const (
	PatchOpInsert PatchOpKind = "Insert"
	PatchOpDelete PatchOpKind = "Delete"
)

// PatchOp is a single character-oriented edit. Insert uses Pos/Text;
// Delete uses Pos/Len. All storage is in this form — legacy line-oriented
// ops (see legacy.go) are converted to PatchOp before they ever reach
// ApplyPatch or CreateOverlay.
type PatchOp struct {
	Kind PatchOpKind `json:"kind"`
	Pos  int         `json:"pos"`
	Text string      `json:"text,omitempty"` // Insert only
	Len  int         `json:"len,omitempty"`  // Delete only
}

// DocumentVersion is one immutable snapshot in the chain.
type DocumentVersion struct {
	VersionID      int       `json:"version_id"`
	ParentVersionID *int     `json:"parent_version_id,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Overlay is a caller-proposed (or worker-proposed) set of diff ops
// relative to a base version, pending merge into the canonical chain.
type Overlay struct {
	OverlayID     string        `json:"overlay_id"`
	BaseVersionID int           `json:"base_version_id"`
	Author        Author        `json:"author"`
	Kind          OverlayKind   `json:"kind"`
	DiffOps       []PatchOp     `json:"diff_ops"`
	Status        OverlayStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RunDocument is the full runtime state for one run's document: the
// version chain, the current head, and the set of overlays (of any
// status — superseded/rejected/committed overlays are retained for
// audit, not deleted).
type RunDocument struct {
	RunID         string            `json:"run_id"`
	Objective     string            `json:"objective"`
	Versions      []DocumentVersion `json:"versions"`
	HeadVersionID int               `json:"head_version_id"`
	Overlays      []Overlay         `json:"overlays"`
	Revision      int               `json:"revision"`
}

// HeadContent returns the canonical document content at HeadVersionID.
func (d *RunDocument) HeadContent() string {
	for _, v := range d.Versions {
		if v.VersionID == d.HeadVersionID {
			return v.Content
		}
	}
	return ""
}

func (d *RunDocument) version(id int) (*DocumentVersion, bool) {
	for i := range d.Versions {
		if d.Versions[i].VersionID == id {
			return &d.Versions[i], true
		}
	}
	return nil, false
}

func (d *RunDocument) nextVersionID() int {
	max := 0
	for _, v := range d.Versions {
		if v.VersionID > max {
			max = v.VersionID
		}
	}
	return max + 1
}
