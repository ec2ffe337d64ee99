package conductor

import (
	"context"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/echoryn/internal/hivemind/service/conductor/worker"
)

type fakeChatModel struct {
	reply string
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestDecodeDecision_SpawnWorkerRequiresCapabilityAndObjective(t *testing.T) {
	_, err := decodeDecision(`{"action":"SpawnWorker"}`)
	require.Error(t, err)

	d, err := decodeDecision(`{"action":"SpawnWorker","capability":"researcher","objective":"find docs"}`)
	require.NoError(t, err)
	require.Equal(t, DecisionSpawnWorker, d.Kind)
	require.Equal(t, worker.Capability("researcher"), d.Capability)
}

func TestDecodeDecision_StripsCodeFence(t *testing.T) {
	d, err := decodeDecision("```json\n{\"action\":\"Complete\",\"reason\":\"all done\"}\n```")
	require.NoError(t, err)
	require.Equal(t, DecisionComplete, d.Kind)
	require.Equal(t, "all done", d.Reason)
}

func TestDecodeDecision_UnknownActionRejected(t *testing.T) {
	_, err := decodeDecision(`{"action":"DoSomethingElse"}`)
	require.Error(t, err)
}

func TestLLMPolicyAdvisor_MalformedOutputFallsBackToBlock(t *testing.T) {
	advisor := NewLLMPolicyAdvisor(&fakeChatModel{reply: "not json at all"})
	decision := advisor.Advise(context.Background(), &Run{RunID: "r1"}, nil)
	require.Equal(t, DecisionBlock, decision.Kind)
}

func TestLLMPolicyAdvisor_GenerateErrorFallsBackToBlock(t *testing.T) {
	advisor := NewLLMPolicyAdvisor(&fakeChatModel{err: context.DeadlineExceeded})
	decision := advisor.Advise(context.Background(), &Run{RunID: "r1"}, nil)
	require.Equal(t, DecisionBlock, decision.Kind)
}

func TestLLMPolicyAdvisor_WellFormedDecisionPassesThrough(t *testing.T) {
	advisor := NewLLMPolicyAdvisor(&fakeChatModel{reply: `{"action":"AwaitWorker","reason":"waiting on researcher"}`})
	decision := advisor.Advise(context.Background(), &Run{RunID: "r1"}, []worker.Capability{worker.CapabilityResearcher})
	require.Equal(t, DecisionAwaitWorker, decision.Kind)
}

func TestLLMPolicyAdvisor_NilModelBlocks(t *testing.T) {
	advisor := NewLLMPolicyAdvisor(nil)
	decision := advisor.Advise(context.Background(), &Run{RunID: "r1"}, nil)
	require.Equal(t, DecisionBlock, decision.Kind)
}
