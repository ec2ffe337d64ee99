// Package writerchild implements the capability worker whose product is a
// document mutation: it composes its objective's output directly into the
// run's RunDocument as an overlay proposal, rather than handing back plain
// text for the Conductor to forward elsewhere.
package writerchild

import (
	"context"
	"fmt"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
)

// Drafter produces the prose for req.Objective given the document's
// current head content — typically an LLM call, injected so the worker
// stays testable without one.
type Drafter interface {
	Draft(ctx context.Context, objective, headContent string) (string, error)
}

// Worker is the Writer-child capability worker.
type Worker struct {
	actor   *writer.Actor
	drafter Drafter
	events  eventstore.Store
}

// New constructs a Writer-child worker bound to the run's Writer Actor.
func New(actor *writer.Actor, drafter Drafter, events eventstore.Store) *Worker {
	return &Worker{actor: actor, drafter: drafter, events: events}
}

func (w *Worker) Capability() worker.Capability { return worker.CapabilityWriterChild }

// Run drafts prose for req.Objective and submits it to the Writer Actor as
// a proposal overlay anchored at the document's current head, so it merges
// through the normal CommitOverlay/MergeCanon path rather than racing a
// concurrent direct commit.
func (w *Worker) Run(ctx context.Context, req worker.Request) worker.Result {
	lc := worker.NewLifecycle(w.events, req.RunID, req.CallID, fmt.Sprintf("worker:writer:%s", req.CallID))
	lc.Started(ctx, req.Objective)

	if w.actor == nil {
		err := fmt.Errorf("writerchild: no writer actor bound")
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}

	head := w.actor.HeadContent()
	text, err := w.drafter.Draft(ctx, req.Objective, head)
	if err != nil {
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}

	sectionID, _ := req.Params["section_id"].(string)

	result, err := w.actor.SubmitApplyPatch(ctx, writer.WriterInboundEnvelope{
		MessageID: req.CallID,
		Kind:      writer.InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		SectionID: sectionID,
		Proposal:  true,
		Ops:       []rundoc.PatchOp{{Kind: rundoc.PatchOpInsert, Pos: len([]rune(head)), Text: "\n\n" + text}},
	})
	if err != nil {
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}
	if result.Err != nil {
		lc.Failed(ctx, worker.FailureKindError, result.Err)
		return worker.Result{Err: result.Err, FailureKind: worker.FailureKindError}
	}

	lc.Learning(ctx, fmt.Sprintf("proposed %d chars for section %q", len([]rune(text)), sectionID))

	artifacts := []string{}
	if result.Overlay != nil {
		artifacts = append(artifacts, result.Overlay.OverlayID)
	}
	res := worker.Result{Summary: text, ArtifactIDs: artifacts}
	lc.Completed(ctx, res)
	return res
}
