package harness

import (
	"context"
	"fmt"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/harness/dag"
	"github.com/kiosk404/echoryn/pkg/logger"
)

// Config tunes one Harness run.
type Config struct {
	MaxTurns int
	// ContextRetries bounds how many times a ToolOutput context source may
	// come back not-ready before the run fails with
	// ErrContextResolutionFailed.
	ContextRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 20
	}
	if c.ContextRetries <= 0 {
		c.ContextRetries = 5
	}
	return c
}

// Harness runs the bounded-turn agent loop over a Port.
type Harness struct {
	port   Port
	cfg    Config
	tools  []string

	transcript []Turn
	pending    map[string]int // corr_id -> retries remaining
}

// New constructs a Harness. tools names the tool set the LLM is offered;
// any name absent from ToolPolicy is rejected at dispatch time with
// ErrCapabilityUnavailable.
func New(port Port, cfg Config, tools []string) *Harness {
	return &Harness{
		port:    port,
		cfg:     cfg.withDefaults(),
		tools:   tools,
		pending: make(map[string]int),
	}
}

// Run drives the loop to a terminal outcome: the LLM calling "finished",
// the turn counter hitting max_turns, or a context source exhausting its
// retries.
func (h *Harness) Run(ctx context.Context) Outcome {
	for turnNum := 1; turnNum <= h.cfg.MaxTurns; turnNum++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Err: err, Turns: turnNum - 1}
		}

		if err := h.resolvePending(ctx); err != nil {
			return Outcome{Err: err, Turns: turnNum - 1}
		}

		decision, err := h.port.CallLLM(ctx, h.transcript, h.tools)
		if err != nil {
			return Outcome{Err: fmt.Errorf("harness: call_llm failed: %w", err), Turns: turnNum - 1}
		}

		if decision.Finished {
			h.port.EmitMessage(ctx, decision.Summary)
			h.writeCheckpoint(ctx, turnNum, true)
			return Outcome{Completed: true, Summary: decision.Summary, Turns: turnNum}
		}

		if len(decision.DAGSteps) > 0 {
			if fatalErr := h.executeDAG(ctx, turnNum, decision); fatalErr != nil {
				return Outcome{Err: fatalErr, Turns: turnNum}
			}
			h.writeCheckpoint(ctx, turnNum, false)
			continue
		}

		outcomes, fatalErr := h.executeTurn(ctx, decision.ToolCalls)
		h.transcript = append(h.transcript, Turn{
			Number:       turnNum,
			ToolCalls:    decision.ToolCalls[:len(outcomes)],
			ToolOutcomes: outcomes,
			Decision:     decision,
		})
		h.writeCheckpoint(ctx, turnNum, false)

		if fatalErr != nil {
			return Outcome{Err: fatalErr, Turns: turnNum}
		}
	}

	return Outcome{Err: ErrMaxTurnsExceeded, Turns: h.cfg.MaxTurns}
}

// executeTurn runs decision.ToolCalls in order: synchronous tools run to
// completion, but the first asynchronous dispatch ends the turn
// immediately (the async rule — a turn that dispatches any async tool
// must terminate).
func (h *Harness) executeTurn(ctx context.Context, calls []ToolCall) ([]ToolOutcome, error) {
	var outcomes []ToolOutcome
	for _, call := range calls {
		mode, known := ToolPolicy[call.Name]
		if !known {
			return outcomes, fmt.Errorf("%w: unknown tool %q", ErrCapabilityUnavailable, call.Name)
		}

		if mode == ToolModeAsync {
			corrID, err := h.port.DispatchAsyncTool(ctx, call)
			if err != nil {
				return append(outcomes, ToolOutcome{Err: err}), nil
			}
			h.pending[corrID] = h.cfg.ContextRetries
			outcomes = append(outcomes, ToolOutcome{
				Output: fmt.Sprintf("dispatched:corr_id:%s", corrID),
				CorrID: corrID,
			})
			return outcomes, nil // turn ends here
		}

		outcome := h.port.ExecuteInlineTool(ctx, call)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// resolvePending polls every outstanding correlation ID once per turn;
// a corr_id that keeps coming back not-ready eventually exhausts its
// retries and fails the run.
func (h *Harness) resolvePending(ctx context.Context) error {
	for corrID, retries := range h.pending {
		lookupCtx, cancel := context.WithTimeout(ctx, ContextLookupTimeout)
		output, ready, err := h.port.ResolveContext(lookupCtx, ContextSource{Kind: ContextSourceToolOutput, CorrID: corrID})
		cancel()

		if err != nil {
			logger.Warn("[Harness] context resolution error for corr_id %s: %v", corrID, err)
		}
		if ready {
			delete(h.pending, corrID)
			h.transcript = append(h.transcript, Turn{
				ToolOutcomes: []ToolOutcome{{Output: output, CorrID: corrID}},
			})
			continue
		}

		retries--
		if retries <= 0 {
			return fmt.Errorf("%w: corr_id %s never resolved", ErrContextResolutionFailed, corrID)
		}
		h.pending[corrID] = retries
	}
	return nil
}

func (h *Harness) writeCheckpoint(ctx context.Context, turnNum int, finished bool) {
	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	h.port.WriteCheckpoint(ctx, Checkpoint{TurnNumber: turnNum, PendingCorrIDs: ids, Finished: finished})
}

// executeDAG compiles and runs decision.DAGSteps as one turn, recording
// every step's result as a ToolOutcome so PreviousTurn(N) resolution sees
// the DAG turn the same shape as an ordinary tool-call turn.
func (h *Harness) executeDAG(ctx context.Context, turnNum int, decision LLMDecision) error {
	graph, err := dag.Compile(decision.DAGSteps, len(decision.DAGSteps))
	if err != nil {
		return fmt.Errorf("harness: dag compile failed: %w", err)
	}

	results, err := graph.Execute(ctx, &dagExecutor{port: h.port})
	if err != nil {
		return fmt.Errorf("harness: dag execute failed: %w", err)
	}

	outcomes := make([]ToolOutcome, len(results))
	for i, r := range results {
		outcomes[i] = ToolOutcome{Output: r.Output, Err: r.Err}
	}
	h.transcript = append(h.transcript, Turn{
		Number:       turnNum,
		ToolOutcomes: outcomes,
		Decision:     decision,
	})
	return nil
}

// dagExecutor bridges a DAG's ToolCall/LlmCall steps back onto the same
// Port every ordinary turn uses, so a DAG step and a single tool call hit
// identical capability workers.
type dagExecutor struct {
	port Port
}

func (e *dagExecutor) ExecuteTool(ctx context.Context, tool string, args map[string]string) (string, error) {
	callArgs := make(map[string]interface{}, len(args))
	for k, v := range args {
		callArgs[k] = v
	}
	outcome := e.port.ExecuteInlineTool(ctx, ToolCall{Name: tool, Args: callArgs})
	return outcome.Output, outcome.Err
}

func (e *dagExecutor) CallLLM(ctx context.Context, prompt string) (string, error) {
	return e.port.CallRawLLM(ctx, prompt)
}
