// Package agentharness adapts the bounded-turn Agent Harness loop into a
// capability worker: it implements harness.Port over the already-wired
// pieces (the run's Writer Actor for file_read/file_write, the terminal and
// researcher workers for bash/web_search/fetch_url, an eino chat model for
// CallLLM) so the Conductor can dispatch a "harness" agenda item the same
// way it dispatches terminal/researcher/writer ones.
package agentharness

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/eventstore"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/harness"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/rundoc"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/researcher"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker/terminal"
	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/writer"
	"github.com/kiosk404/echoryn/pkg/utils/json"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

// WriterLookup resolves the run-scoped Writer Actor a harness call should
// read from and patch, mirroring the lookup the writer-child capability
// uses for the same run.
type WriterLookup func(runID string) (*writer.Actor, bool)

// Worker is the "harness" capability worker.
type Worker struct {
	cm         model.BaseChatModel
	writerFor  WriterLookup
	terminal   *terminal.Worker // nil disables "bash"
	researcher *researcher.Worker // nil disables "web_search"/"fetch_url"
	events     eventstore.Store
	cfg        harness.Config
}

// New constructs the harness capability worker. terminalWorker/
// researcherWorker may be nil, in which case the corresponding tools are
// left off the tool set offered to the LLM for every run this worker
// services.
func New(cm model.BaseChatModel, writerFor WriterLookup, terminalWorker *terminal.Worker, researcherWorker *researcher.Worker, events eventstore.Store, cfg harness.Config) *Worker {
	return &Worker{cm: cm, writerFor: writerFor, terminal: terminalWorker, researcher: researcherWorker, events: events, cfg: cfg}
}

func (w *Worker) Capability() worker.Capability { return worker.CapabilityHarness }

func (w *Worker) Run(ctx context.Context, req worker.Request) worker.Result {
	lc := worker.NewLifecycle(w.events, req.RunID, req.CallID, fmt.Sprintf("worker:harness:%s", req.CallID))
	lc.Started(ctx, req.Objective)

	doc, ok := w.writerFor(req.RunID)
	if !ok {
		err := fmt.Errorf("harness: no writer actor bound for run %s", req.RunID)
		lc.Failed(ctx, worker.FailureKindError, err)
		return worker.Result{Err: err, FailureKind: worker.FailureKindError}
	}

	tools := []string{"file_read", "file_write"}
	if w.terminal != nil {
		tools = append(tools, "bash")
	}
	if w.researcher != nil {
		tools = append(tools, "web_search", "fetch_url")
	}

	p := &port{
		worker:    w,
		runID:     req.RunID,
		desktopID: req.DesktopID,
		callID:    req.CallID,
		doc:       doc,
	}

	h := harness.New(p, w.cfg, tools)
	outcome := h.Run(ctx)

	if outcome.Err != nil {
		lc.Failed(ctx, worker.FailureKindError, outcome.Err)
		return worker.Result{Err: outcome.Err, FailureKind: worker.FailureKindError}
	}

	res := worker.Result{Summary: outcome.Summary}
	lc.Completed(ctx, res)
	return res
}

// port is the harness.Port implementation bound to one capability call.
type port struct {
	worker    *Worker
	runID     string
	desktopID string
	callID    string
	doc       *writer.Actor
}

func (p *port) ResolveContext(ctx context.Context, src harness.ContextSource) (string, bool, error) {
	switch src.Kind {
	case harness.ContextSourceDocument:
		return p.doc.HeadContent(), true, nil
	case harness.ContextSourceToolOutput:
		return p.resolveToolOutput(ctx, src.CorrID)
	default:
		// PreviousTurn and MemoryQuery sources are resolved by the harness
		// loop itself from its in-memory transcript; this Port never sees
		// them.
		return "", false, nil
	}
}

func (p *port) resolveToolOutput(ctx context.Context, corrID string) (string, bool, error) {
	events, err := p.worker.events.GetByCorrID(ctx, corrID, "worker.task.")
	if err != nil {
		return "", false, err
	}
	for _, e := range events {
		if e.CorrelationID() != corrID {
			continue
		}
		switch e.EventType {
		case "worker.task.completed":
			output, _ := e.Payload["output"].(string)
			return output, true, nil
		case "worker.task.failed":
			errMsg, _ := e.Payload["error"].(string)
			return "", true, fmt.Errorf("harness: async tool call %s failed: %s", corrID, errMsg)
		}
	}
	return "", false, nil
}

func (p *port) ExecuteInlineTool(ctx context.Context, call harness.ToolCall) harness.ToolOutcome {
	switch call.Name {
	case "file_read":
		return harness.ToolOutcome{Output: p.doc.HeadContent()}
	case "file_write":
		return p.fileWrite(ctx, call)
	case "web_search", "fetch_url":
		return p.researchCall(ctx, call)
	default:
		return harness.ToolOutcome{Err: fmt.Errorf("harness: tool %q is not available for this run", call.Name)}
	}
}

func (p *port) fileWrite(ctx context.Context, call harness.ToolCall) harness.ToolOutcome {
	content, _ := call.Args["content"].(string)
	if content == "" {
		return harness.ToolOutcome{Err: fmt.Errorf("harness: file_write requires a non-empty content arg")}
	}
	head := p.doc.HeadContent()
	res, err := p.doc.SubmitApplyPatch(ctx, writer.WriterInboundEnvelope{
		MessageID: p.callID + ":" + uuid.New().String(),
		Kind:      writer.InboundApplyPatch,
		Source:    rundoc.AuthorWriter,
		SectionID: "harness",
		Ops: []rundoc.PatchOp{
			{Kind: rundoc.PatchOpInsert, Pos: len(head), Text: content},
		},
	})
	if err != nil {
		return harness.ToolOutcome{Err: err}
	}
	if res.Err != nil {
		return harness.ToolOutcome{Err: res.Err}
	}
	return harness.ToolOutcome{Output: fmt.Sprintf("wrote %d bytes", len(content))}
}

func (p *port) researchCall(ctx context.Context, call harness.ToolCall) harness.ToolOutcome {
	if p.worker.researcher == nil {
		return harness.ToolOutcome{Err: fmt.Errorf("harness: researcher capability not configured")}
	}
	query, _ := call.Args["query"].(string)
	params := map[string]interface{}{}
	if url, ok := call.Args["url"].(string); ok {
		params["url"] = url
	}
	res := p.worker.researcher.Run(ctx, worker.Request{
		RunID:     p.runID,
		CallID:    p.callID + ":" + call.Name,
		Objective: query,
		DesktopID: p.desktopID,
		Params:    params,
	})
	if res.Err != nil {
		return harness.ToolOutcome{Err: res.Err}
	}
	return harness.ToolOutcome{Output: res.Summary}
}

func (p *port) DispatchAsyncTool(ctx context.Context, call harness.ToolCall) (string, error) {
	if p.worker.terminal == nil {
		return "", fmt.Errorf("harness: terminal capability not configured")
	}
	corrID := uuid.New().String()
	command, _ := call.Args["command"].(string)
	req := worker.Request{
		RunID:     p.runID,
		CallID:    corrID,
		Objective: fmt.Sprintf("bash: %s", command),
		DesktopID: p.desktopID,
		Params:    call.Args,
	}
	safego.Go(ctx, func() {
		res := p.worker.terminal.Run(ctx, req)
		p.emitAsyncResult(ctx, corrID, res)
	})
	return corrID, nil
}

func (p *port) emitAsyncResult(ctx context.Context, corrID string, res worker.Result) {
	eventType := "worker.task.completed"
	payload := map[string]interface{}{
		"correlation_id": corrID,
		"run_id":         p.runID,
	}
	if res.Err != nil {
		eventType = "worker.task.failed"
		payload["error"] = res.Err.Error()
	} else {
		payload["output"] = res.Summary
	}
	p.worker.events.AppendAsync(ctx, eventstore.Event{
		EventType: eventType,
		ActorID:   fmt.Sprintf("harness:%s", p.callID),
		Payload:   payload,
	})
}

func (p *port) CallLLM(ctx context.Context, transcript []harness.Turn, tools []string) (harness.LLMDecision, error) {
	if p.worker.cm == nil {
		return harness.LLMDecision{}, fmt.Errorf("harness: no chat model configured")
	}
	msgs := []*schema.Message{
		{Role: schema.System, Content: harnessSystemPrompt(tools)},
		{Role: schema.User, Content: harnessUserPrompt(transcript)},
	}
	out, err := p.worker.cm.Generate(ctx, msgs)
	if err != nil {
		return harness.LLMDecision{}, fmt.Errorf("harness: call_llm generate failed: %w", err)
	}
	return decodeLLMDecision(out.Content)
}

// CallRawLLM issues one free-form prompt for a DAG step's LlmCall kind,
// which has no ToolCall/transcript shape of its own to feed CallLLM.
func (p *port) CallRawLLM(ctx context.Context, prompt string) (string, error) {
	if p.worker.cm == nil {
		return "", fmt.Errorf("harness: no chat model configured")
	}
	out, err := p.worker.cm.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("harness: call_raw_llm generate failed: %w", err)
	}
	return out.Content, nil
}

func (p *port) EmitMessage(ctx context.Context, message string) {
	p.worker.events.AppendAsync(ctx, eventstore.Event{
		EventType: "harness.message",
		ActorID:   fmt.Sprintf("harness:%s", p.callID),
		Payload:   map[string]interface{}{"run_id": p.runID, "message": message},
	})
}

func (p *port) WriteCheckpoint(ctx context.Context, cp harness.Checkpoint) {
	p.worker.events.AppendAsync(ctx, eventstore.Event{
		EventType: "harness.checkpoint",
		ActorID:   fmt.Sprintf("harness:%s", p.callID),
		Payload: map[string]interface{}{
			"run_id":           p.runID,
			"turn_number":      cp.TurnNumber,
			"pending_corr_ids": cp.PendingCorrIDs,
			"finished":         cp.Finished,
		},
	})
}

// SpawnSubHarness runs a nested Harness loop over the same Port for a
// narrower objective, completing asynchronously the same way an async tool
// dispatch does: the parent loop polls for its corr_id via ResolveContext.
func (p *port) SpawnSubHarness(ctx context.Context, objective string) (string, error) {
	corrID := uuid.New().String()
	subPort := &port{
		worker:    p.worker,
		runID:     p.runID,
		desktopID: p.desktopID,
		callID:    corrID,
		doc:       p.doc,
	}
	tools := []string{"file_read", "file_write"}
	if p.worker.terminal != nil {
		tools = append(tools, "bash")
	}
	if p.worker.researcher != nil {
		tools = append(tools, "web_search", "fetch_url")
	}

	safego.Go(ctx, func() {
		sub := harness.New(subPort, p.worker.cfg, tools)
		outcome := sub.Run(ctx)
		res := worker.Result{Summary: outcome.Summary, Err: outcome.Err}
		p.emitAsyncResult(ctx, corrID, res)
	})
	return corrID, nil
}

func harnessSystemPrompt(tools []string) string {
	return "You are the Agent Harness for one capability call inside an agentic run. " +
		"Reply with a single JSON object: {\"finished\": bool, \"summary\": string " +
		"(required iff finished), \"tool_calls\": [{\"name\": one of [" +
		strings.Join(tools, ", ") + "], \"args\": object}] (required iff not finished, " +
		"at most one entry)}. No prose outside the JSON object."
}

func harnessUserPrompt(transcript []harness.Turn) string {
	var b strings.Builder
	if len(transcript) == 0 {
		b.WriteString("No turns yet.\n")
	}
	for _, t := range transcript {
		fmt.Fprintf(&b, "Turn %d:\n", t.Number)
		for i, call := range t.ToolCalls {
			fmt.Fprintf(&b, "  called %s(%v)\n", call.Name, call.Args)
			if i < len(t.ToolOutcomes) {
				o := t.ToolOutcomes[i]
				if o.Err != nil {
					fmt.Fprintf(&b, "    -> error: %v\n", o.Err)
				} else {
					fmt.Fprintf(&b, "    -> %s\n", o.Output)
				}
			}
		}
	}
	return b.String()
}

type rawToolCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

type rawDecision struct {
	Finished  bool          `json:"finished"`
	Summary   string        `json:"summary,omitempty"`
	ToolCalls []rawToolCall `json:"tool_calls,omitempty"`
}

func decodeLLMDecision(content string) (harness.LLMDecision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw rawDecision
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return harness.LLMDecision{}, fmt.Errorf("decode: %w", err)
	}

	if raw.Finished {
		return harness.LLMDecision{Finished: true, Summary: raw.Summary}, nil
	}
	if len(raw.ToolCalls) == 0 {
		return harness.LLMDecision{}, fmt.Errorf("decode: not finished but no tool_calls given")
	}
	calls := make([]harness.ToolCall, len(raw.ToolCalls))
	for i, c := range raw.ToolCalls {
		calls[i] = harness.ToolCall{Name: c.Name, Args: c.Args}
	}
	return harness.LLMDecision{ToolCalls: calls}, nil
}
