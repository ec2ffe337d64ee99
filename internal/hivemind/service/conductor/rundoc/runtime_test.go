package rundoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyPatch_DirectCommitAdvancesHead(t *testing.T) {
	d := NewRunDocument("run-1", "write a report", "hello")

	v, ov, err := d.ApplyPatch(AuthorWriter, []PatchOp{{Kind: PatchOpInsert, Pos: 5, Text: " world"}}, false)
	require.NoError(t, err)
	require.Nil(t, ov)
	require.Equal(t, "hello world", v.Content)
	require.Equal(t, d.HeadVersionID, v.VersionID)
	require.Equal(t, 2, d.Revision)
}

func TestApplyPatch_EmptyOpsProposalFails(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "content")
	_, _, err := d.ApplyPatch(AuthorUser, nil, true)
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestApplyPatch_EmptyOpsDirectFails(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "content")
	_, _, err := d.ApplyPatch(AuthorWriter, nil, false)
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestCreateOverlay_SupersededOnHeadAdvance(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base content")
	head := d.HeadVersionID

	ov1, err := d.CreateOverlay(head, AuthorResearcher, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "A: "}})
	require.NoError(t, err)
	ov2, err := d.CreateOverlay(head, AuthorTerminal, OverlayKindAnnotation, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "B: "}})
	require.NoError(t, err)

	_, _, err = d.ApplyPatch(AuthorWriter, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "direct: "}}, false)
	require.NoError(t, err)

	got1, _ := d.overlayByID(ov1.OverlayID)
	got2, _ := d.overlayByID(ov2.OverlayID)
	require.Equal(t, OverlayStatusSuperseded, got1.Status)
	require.Equal(t, OverlayStatusSuperseded, got2.Status)
}

func TestCommitOverlay_SupersedesSiblingsAtSameBase(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base")
	head := d.HeadVersionID

	ov1, err := d.CreateOverlay(head, AuthorWriter, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "one "}})
	require.NoError(t, err)
	ov2, err := d.CreateOverlay(head, AuthorResearcher, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "two "}})
	require.NoError(t, err)

	v, err := d.CommitOverlay(ov1.OverlayID)
	require.NoError(t, err)
	require.Equal(t, "one base", v.Content)

	committed, _ := d.overlayByID(ov1.OverlayID)
	require.Equal(t, OverlayStatusCommitted, committed.Status)

	superseded, _ := d.overlayByID(ov2.OverlayID)
	require.Equal(t, OverlayStatusSuperseded, superseded.Status)
}

func TestCommitOverlay_AlreadyResolvedFails(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base")
	ov, err := d.CreateOverlay(d.HeadVersionID, AuthorWriter, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "x"}})
	require.NoError(t, err)

	_, err = d.CommitOverlay(ov.OverlayID)
	require.NoError(t, err)

	_, err = d.CommitOverlay(ov.OverlayID)
	require.ErrorIs(t, err, ErrOverlayNotPending)
}

func TestRejectOverlay(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base")
	ov, err := d.CreateOverlay(d.HeadVersionID, AuthorUser, OverlayKindAnnotation, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "note"}})
	require.NoError(t, err)

	require.NoError(t, d.RejectOverlay(ov.OverlayID))
	got, _ := d.overlayByID(ov.OverlayID)
	require.Equal(t, OverlayStatusRejected, got.Status)

	require.ErrorIs(t, d.RejectOverlay(ov.OverlayID), ErrOverlayNotPending)
	require.ErrorIs(t, d.RejectOverlay("missing"), ErrOverlayNotFound)
}

func TestMergeCanon_CommitsAllPendingProposals(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base")
	head := d.HeadVersionID

	_, err := d.CreateOverlay(head, AuthorWriter, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "first "}})
	require.NoError(t, err)
	_, err = d.CreateOverlay(head, AuthorResearcher, OverlayKindAnnotation, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "note: "}})
	require.NoError(t, err)

	committed, err := d.MergeCanon()
	require.NoError(t, err)
	require.Len(t, committed, 1)
	require.Equal(t, "first base", committed[0].Content)

	var pendingCount int
	for _, ov := range d.Overlays {
		if ov.Status == OverlayStatusPending {
			pendingCount++
		}
	}
	require.Equal(t, 0, pendingCount) // the commit also supersedes the Annotation on the old head
}

func TestVersionChainInvariant_HeadRefersToExistingVersion(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "base")
	for i := 0; i < 5; i++ {
		_, _, err := d.ApplyPatch(AuthorWriter, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "x"}}, false)
		require.NoError(t, err)
	}

	_, ok := d.version(d.HeadVersionID)
	require.True(t, ok)

	seen := make(map[int]bool)
	for _, v := range d.Versions {
		require.False(t, seen[v.VersionID], "version ids must be unique")
		seen[v.VersionID] = true
		if v.ParentVersionID != nil {
			_, ok := d.version(*v.ParentVersionID)
			require.True(t, ok, "parent version must exist")
		}
	}
}

func TestApplyPatch_OutOfRangeDeleteFails(t *testing.T) {
	d := NewRunDocument("run-1", "obj", "short")
	_, _, err := d.ApplyPatch(AuthorWriter, []PatchOp{{Kind: PatchOpDelete, Pos: 0, Len: 100}}, false)
	require.Error(t, err)
}
