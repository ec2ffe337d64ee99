package rundoc

import "errors"

var (
	// ErrInvalidPatch covers a malformed apply_patch call, e.g. an empty
	// diff_ops list on a proposal.
	ErrInvalidPatch = errors.New("rundoc: diff_ops cannot be empty")
	// ErrUnknownBaseVersion is returned when an overlay or patch references
	// a version_id not present in the chain.
	ErrUnknownBaseVersion = errors.New("rundoc: base version not found")
	// ErrOverlayNotFound is returned by commit_overlay/reject_overlay for an
	// unknown overlay_id.
	ErrOverlayNotFound = errors.New("rundoc: overlay not found")
	// ErrOverlayNotPending is returned when committing/rejecting an overlay
	// that has already left the Pending state.
	ErrOverlayNotPending = errors.New("rundoc: overlay is not pending")
)
