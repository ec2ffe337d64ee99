package rundoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersistAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := NewRunDocument("run-1", "summarize the incident", "initial content")

	_, _, err := d.ApplyPatch(AuthorWriter, []PatchOp{{Kind: PatchOpInsert, Pos: 7, Text: "draft "}}, false)
	require.NoError(t, err)
	_, err = d.CreateOverlay(d.HeadVersionID, AuthorResearcher, OverlayKindProposal, []PatchOp{{Kind: PatchOpInsert, Pos: 0, Text: "note: "}})
	require.NoError(t, err)

	require.NoError(t, Persist(dir, d))

	reloaded, err := Load(dir, d.RunID)
	require.NoError(t, err)
	require.Equal(t, d.HeadVersionID, reloaded.HeadVersionID)
	require.Equal(t, d.Revision, reloaded.Revision)
	require.Len(t, reloaded.Versions, len(d.Versions))
	require.Len(t, reloaded.Overlays, len(d.Overlays))
	require.Equal(t, d.HeadContent(), reloaded.HeadContent())
}

func TestPersist_MarkdownHasRevisionMarker(t *testing.T) {
	dir := t.TempDir()
	d := NewRunDocument("run-2", "obj", "body text")

	require.NoError(t, Persist(dir, d))

	data, err := os.ReadFile(DraftPath(dir, d.RunID))
	require.NoError(t, err)

	n, ok := ParseRevisionMarker(string(data))
	require.True(t, ok)
	require.Equal(t, d.Revision, n)
}

func TestAtomicWrite_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.md")
	require.NoError(t, atomicWrite(path, []byte("content")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "draft.md", entries[0].Name())
}
