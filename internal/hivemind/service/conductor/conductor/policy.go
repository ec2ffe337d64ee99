package conductor

import (
	"context"
	"fmt"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/json"
)

// PolicyAdvisor decides the next action for a Run. It is consulted once per
// dispatch_ready cycle with a read-only view of the run and the set of
// capabilities currently backed by a live worker.
type PolicyAdvisor interface {
	Advise(ctx context.Context, r *Run, availableCapabilities []worker.Capability) Decision
}

// policyChatModel is the thin wrapper around an eino chat model that asks it
// for a structured decision and falls back deterministically to Block on
// anything that doesn't parse. It treats the chat model as just another
// einoModel.BaseChatModel, the same way the turn executor's fallback
// dispatch does, rather than a bespoke client.
type policyChatModel struct {
	cm einoModel.BaseChatModel
}

// NewLLMPolicyAdvisor wraps cm as a PolicyAdvisor.
func NewLLMPolicyAdvisor(cm einoModel.BaseChatModel) PolicyAdvisor {
	return &policyChatModel{cm: cm}
}

type rawDecision struct {
	Action     string `json:"action"`
	Capability string `json:"capability,omitempty"`
	Objective  string `json:"objective,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func (p *policyChatModel) Advise(ctx context.Context, r *Run, available []worker.Capability) Decision {
	if p.cm == nil {
		return Decision{Kind: DecisionBlock, Reason: ErrPolicyMalformed.Error()}
	}

	msgs := []*schema.Message{
		{Role: schema.System, Content: policySystemPrompt(available)},
		{Role: schema.User, Content: policyUserPrompt(r)},
	}

	out, err := p.cm.Generate(ctx, msgs)
	if err != nil {
		logger.Error("conductor: policy generate failed for run %s: %v", r.RunID, err)
		return Decision{Kind: DecisionBlock, Reason: fmt.Sprintf("%s: %v", ErrPolicyMalformed, err)}
	}

	decoded, err := decodeDecision(out.Content)
	if err != nil {
		logger.Error("conductor: policy output malformed for run %s: %v", r.RunID, err)
		return Decision{Kind: DecisionBlock, Reason: fmt.Sprintf("%s: %v", ErrPolicyMalformed, err)}
	}
	return decoded
}

func policySystemPrompt(available []worker.Capability) string {
	names := make([]string, len(available))
	for i, c := range available {
		names[i] = string(c)
	}
	return "You are the Conductor policy for an agentic run orchestrator. " +
		"Reply with a single JSON object {\"action\": one of " +
		"\"SpawnWorker\"|\"AwaitWorker\"|\"MergeCanon\"|\"Complete\"|\"Block\", " +
		"\"capability\": required iff action is SpawnWorker, one of [" +
		strings.Join(names, ", ") + "], \"objective\": the sub-objective for " +
		"that worker, \"reason\": a short justification}. No prose outside the JSON object."
}

func policyUserPrompt(r *Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", r.Objective)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	fmt.Fprintf(&b, "Agenda (%d items):\n", len(r.Agenda))
	for _, item := range r.Agenda {
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", item.Status, item.ItemID, item.Capability, item.Objective)
	}
	fmt.Fprintf(&b, "Active calls: %d\n", len(r.ActiveCalls))
	return b.String()
}

func decodeDecision(content string) (Decision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw rawDecision
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Decision{}, fmt.Errorf("decode: %w", err)
	}

	kind := DecisionKind(raw.Action)
	switch kind {
	case DecisionSpawnWorker:
		if raw.Capability == "" || raw.Objective == "" {
			return Decision{}, fmt.Errorf("SpawnWorker requires capability and objective")
		}
	case DecisionAwaitWorker, DecisionMergeCanon, DecisionComplete, DecisionBlock:
		// no additional fields required
	default:
		return Decision{}, fmt.Errorf("unknown action %q", raw.Action)
	}

	return Decision{
		Kind:       kind,
		Capability: worker.Capability(raw.Capability),
		Objective:  raw.Objective,
		Reason:     raw.Reason,
	}, nil
}
