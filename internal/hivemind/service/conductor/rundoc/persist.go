package rundoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kiosk404/echoryn/pkg/utils/json"
)

// revisionMarker returns the "<!-- revision:N -->" first line required by
// the persisted markdown.
func revisionMarker(revision int) string {
	return "<!-- revision:" + strconv.Itoa(revision) + " -->"
}

// DraftPath and SidecarPath give the fixed artifact layout:
// conductor/runs/{run_id}/draft.md and draft.writer-state.json.
func DraftPath(runsDir, runID string) string {
	return filepath.Join(runsDir, runID, "draft.md")
}

func SidecarPath(runsDir, runID string) string {
	return filepath.Join(runsDir, runID, "draft.writer-state.json")
}

// Persist atomically writes both the canonical markdown (with its
// revision marker prepended) and the JSON sidecar (version chain +
// overlays + revision) for d, under runsDir/{run_id}/.
func Persist(runsDir string, d *RunDocument) error {
	dir := filepath.Join(runsDir, d.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("rundoc: create run directory: %w", err)
	}

	markdown := revisionMarker(d.Revision) + "\n" + d.HeadContent()
	if err := atomicWrite(DraftPath(runsDir, d.RunID), []byte(markdown)); err != nil {
		return fmt.Errorf("rundoc: persist draft.md: %w", err)
	}

	sidecar, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("rundoc: marshal sidecar: %w", err)
	}
	if err := atomicWrite(SidecarPath(runsDir, d.RunID), sidecar); err != nil {
		return fmt.Errorf("rundoc: persist sidecar: %w", err)
	}

	return nil
}

// Load reconstructs a RunDocument from its sidecar JSON. The markdown
// file is the human-facing artifact; the sidecar is authoritative for
// reload since it carries the full version chain and overlay set.
func Load(runsDir, runID string) (*RunDocument, error) {
	data, err := os.ReadFile(SidecarPath(runsDir, runID))
	if err != nil {
		return nil, fmt.Errorf("rundoc: read sidecar: %w", err)
	}
	var d RunDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("rundoc: unmarshal sidecar: %w", err)
	}
	return &d, nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename, so a concurrent reader never observes a partial
// write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ParseRevisionMarker extracts N from a "<!-- revision:N -->" first line,
// for callers that only have the markdown artifact on hand.
func ParseRevisionMarker(markdown string) (int, bool) {
	firstLine, _, _ := strings.Cut(markdown, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if !strings.HasPrefix(firstLine, "<!-- revision:") || !strings.HasSuffix(firstLine, "-->") {
		return 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(firstLine, "<!-- revision:"), "-->")
	inner = strings.TrimSpace(inner)
	n, err := strconv.Atoi(inner)
	if err != nil {
		return 0, false
	}
	return n, true
}
