package rundoc

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// NewRunDocument creates the initial single-version document for a run.
func NewRunDocument(runID, objective, initialContent string) *RunDocument {
	v0 := DocumentVersion{
		VersionID: 1,
		Content:   initialContent,
		CreatedAt: time.Now(),
	}
	return &RunDocument{
		RunID:         runID,
		Objective:     objective,
		Versions:      []DocumentVersion{v0},
		HeadVersionID: v0.VersionID,
		Revision:      1,
	}
}

// applyOps applies a sequence of PatchOp to content, in the order given.
// Positions in each op are interpreted against the content as it stands
// after the previous op in the same call has been applied.
func applyOps(content string, ops []PatchOp) (string, error) {
	runes := []rune(content)
	for _, op := range ops {
		switch op.Kind {
		case PatchOpInsert:
			if op.Pos < 0 || op.Pos > len(runes) {
				return "", fmt.Errorf("rundoc: insert pos %d out of range [0,%d]", op.Pos, len(runes))
			}
			ins := []rune(op.Text)
			merged := make([]rune, 0, len(runes)+len(ins))
			merged = append(merged, runes[:op.Pos]...)
			merged = append(merged, ins...)
			merged = append(merged, runes[op.Pos:]...)
			runes = merged
		case PatchOpDelete:
			if op.Pos < 0 || op.Len < 0 || op.Pos+op.Len > len(runes) {
				return "", fmt.Errorf("rundoc: delete range [%d,%d) out of range [0,%d]", op.Pos, op.Pos+op.Len, len(runes))
			}
			merged := make([]rune, 0, len(runes)-op.Len)
			merged = append(merged, runes[:op.Pos]...)
			merged = append(merged, runes[op.Pos+op.Len:]...)
			runes = merged
		default:
			return "", fmt.Errorf("rundoc: unknown patch op kind %q", op.Kind)
		}
	}
	return string(runes), nil
}

// ApplyPatch is the single entry point for both direct commits
// (proposal=false) and overlay proposals (proposal=true).
//
// proposal=false: the new content is computed from head + ops, a new
// DocumentVersion is created with parent=head, head advances, and every
// Pending overlay based on the old head becomes Superseded.
//
// proposal=true: delegates to CreateOverlay.
func (d *RunDocument) ApplyPatch(author Author, ops []PatchOp, proposal bool) (*DocumentVersion, *Overlay, error) {
	if proposal {
		ov, err := d.CreateOverlay(d.HeadVersionID, author, OverlayKindProposal, ops)
		return nil, ov, err
	}

	if len(ops) == 0 {
		return nil, nil, ErrInvalidPatch
	}

	base, ok := d.version(d.HeadVersionID)
	if !ok {
		return nil, nil, ErrUnknownBaseVersion
	}

	newContent, err := applyOps(base.Content, ops)
	if err != nil {
		return nil, nil, err
	}

	v := d.commitVersion(d.HeadVersionID, newContent)
	return v, nil, nil
}

// commitVersion creates a new DocumentVersion parented at parentID,
// advances head, supersedes pending overlays based on parentID, and bumps
// revision. Callers must have already validated parentID exists.
func (d *RunDocument) commitVersion(parentID int, content string) *DocumentVersion {
	parent := parentID
	v := DocumentVersion{
		VersionID:       d.nextVersionID(),
		ParentVersionID: &parent,
		Content:         content,
		CreatedAt:       time.Now(),
	}
	d.Versions = append(d.Versions, v)
	d.HeadVersionID = v.VersionID
	d.Revision++

	for i := range d.Overlays {
		ov := &d.Overlays[i]
		if ov.Status == OverlayStatusPending && ov.BaseVersionID == parentID {
			ov.Status = OverlayStatusSuperseded
		}
	}

	return &v
}

// CreateOverlay records a caller-supplied proposal against baseVersionID
// without touching the canonical chain.
func (d *RunDocument) CreateOverlay(baseVersionID int, author Author, kind OverlayKind, ops []PatchOp) (*Overlay, error) {
	if len(ops) == 0 {
		return nil, ErrInvalidPatch
	}
	if _, ok := d.version(baseVersionID); !ok {
		return nil, ErrUnknownBaseVersion
	}

	ov := Overlay{
		OverlayID:     newOverlayID(d),
		BaseVersionID: baseVersionID,
		Author:        author,
		Kind:          kind,
		DiffOps:       ops,
		Status:        OverlayStatusPending,
		CreatedAt:     time.Now(),
	}
	d.Overlays = append(d.Overlays, ov)
	return &d.Overlays[len(d.Overlays)-1], nil
}

// CommitOverlay collapses a Pending overlay into a new DocumentVersion.
// Every other Pending overlay whose base equals this overlay's base is
// Superseded, same as a direct ApplyPatch commit.
func (d *RunDocument) CommitOverlay(overlayID string) (*DocumentVersion, error) {
	idx := -1
	for i := range d.Overlays {
		if d.Overlays[i].OverlayID == overlayID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrOverlayNotFound
	}
	ov := &d.Overlays[idx]
	if ov.Status != OverlayStatusPending {
		return nil, ErrOverlayNotPending
	}

	base, ok := d.version(ov.BaseVersionID)
	if !ok {
		return nil, ErrUnknownBaseVersion
	}

	newContent, err := applyOps(base.Content, ov.DiffOps)
	if err != nil {
		return nil, err
	}

	v := d.commitVersion(ov.BaseVersionID, newContent)
	ov.Status = OverlayStatusCommitted
	return v, nil
}

// RejectOverlay marks a Pending overlay Rejected without affecting the
// chain or other overlays.
func (d *RunDocument) RejectOverlay(overlayID string) error {
	for i := range d.Overlays {
		if d.Overlays[i].OverlayID == overlayID {
			if d.Overlays[i].Status != OverlayStatusPending {
				return ErrOverlayNotPending
			}
			d.Overlays[i].Status = OverlayStatusRejected
			return nil
		}
	}
	return ErrOverlayNotFound
}

// PendingOverlaysBySection groups the document's currently Pending
// overlays by the BaseVersionID they're anchored to.
func (d *RunDocument) PendingOverlaysBySection() map[int][]Overlay {
	out := make(map[int][]Overlay)
	for _, ov := range d.Overlays {
		if ov.Status == OverlayStatusPending {
			out[ov.BaseVersionID] = append(out[ov.BaseVersionID], ov)
		}
	}
	return out
}

// MergeCanon commits every currently Pending Proposal overlay, oldest
// first, skipping overlays whose base has already been superseded by an
// earlier commit in the same call (CommitOverlay naturally leaves those
// Superseded once their base stops being head-adjacent).
func (d *RunDocument) MergeCanon() ([]DocumentVersion, error) {
	var pending []Overlay
	for _, ov := range d.Overlays {
		if ov.Status == OverlayStatusPending && ov.Kind == OverlayKindProposal {
			pending = append(pending, ov)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	var committed []DocumentVersion
	for _, ov := range pending {
		cur, ok := d.overlayByID(ov.OverlayID)
		if !ok || cur.Status != OverlayStatusPending {
			continue
		}
		v, err := d.CommitOverlay(ov.OverlayID)
		if err != nil {
			if err == ErrOverlayNotPending {
				continue
			}
			return committed, err
		}
		committed = append(committed, *v)
	}
	return committed, nil
}

func (d *RunDocument) overlayByID(id string) (*Overlay, bool) {
	for i := range d.Overlays {
		if d.Overlays[i].OverlayID == id {
			return &d.Overlays[i], true
		}
	}
	return nil, false
}

func newOverlayID(d *RunDocument) string {
	return fmt.Sprintf("%s-ov-%s", d.RunID, uuid.New().String())
}
