package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	toolOutputs map[string]string
	llmOutputs  map[string]string
}

func (f *fakeExecutor) ExecuteTool(ctx context.Context, tool string, args map[string]string) (string, error) {
	return f.toolOutputs[tool], nil
}

func (f *fakeExecutor) CallLLM(ctx context.Context, prompt string) (string, error) {
	return f.llmOutputs[prompt], nil
}

func TestDAG_LinearExecutionWithSubstitution(t *testing.T) {
	steps := []Step{
		{ID: "search", Kind: StepToolCall, Tool: "web_search", Args: map[string]string{"q": "rust ownership"}},
		{ID: "summarize", Kind: StepLlmCall, DependsOn: []string{"search"}, Prompt: "summarize: ${search}"},
		{ID: "emit", Kind: StepEmit, DependsOn: []string{"summarize"}, EmitText: "result: ${summarize}"},
	}
	exec := &fakeExecutor{
		toolOutputs: map[string]string{"web_search": "raw search results"},
		llmOutputs:  map[string]string{"summarize: raw search results": "ownership is move semantics"},
	}
	g, err := Compile(steps, 0)
	require.NoError(t, err)

	results, err := g.Execute(context.Background(), exec)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "result: ownership is move semantics", results[2].Output)
}

func TestDAG_GateFalseSkipsDependent(t *testing.T) {
	steps := []Step{
		{ID: "check", Kind: StepGate, GateKind: GateContains, GateInput: "no mentions here", GateValue: "rust"},
		{ID: "followup", Kind: StepEmit, Condition: "check", EmitText: "should not run"},
	}
	g, err := Compile(steps, 0)
	require.NoError(t, err)

	results, err := g.Execute(context.Background(), &fakeExecutor{})
	require.NoError(t, err)
	require.Equal(t, StatusSkipped, results[1].Status)
	require.Equal(t, "(skipped)", results[1].Output)
}

func TestDAG_GateTrueRunsDependent(t *testing.T) {
	steps := []Step{
		{ID: "check", Kind: StepGate, GateKind: GateContains, GateInput: "mentions rust here", GateValue: "rust"},
		{ID: "followup", Kind: StepEmit, Condition: "check", EmitText: "ran"},
	}
	g, err := Compile(steps, 0)
	require.NoError(t, err)

	results, err := g.Execute(context.Background(), &fakeExecutor{})
	require.NoError(t, err)
	require.Equal(t, StatusOK, results[1].Status)
	require.Equal(t, "ran", results[1].Output)
}

func TestDAG_MaxStepsExceeded(t *testing.T) {
	steps := []Step{
		{ID: "a", Kind: StepEmit, EmitText: "1"},
		{ID: "b", Kind: StepEmit, DependsOn: []string{"a"}, EmitText: "2"},
		{ID: "c", Kind: StepEmit, DependsOn: []string{"b"}, EmitText: "3"},
	}
	g, err := Compile(steps, 2)
	require.NoError(t, err)

	_, err = g.Execute(context.Background(), &fakeExecutor{})
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestDAG_CycleDetected(t *testing.T) {
	steps := []Step{
		{ID: "a", Kind: StepEmit, DependsOn: []string{"b"}},
		{ID: "b", Kind: StepEmit, DependsOn: []string{"a"}},
	}
	_, err := Compile(steps, 0)
	require.ErrorIs(t, err, ErrCycle)
}

func TestDAG_UnknownDependencyRejected(t *testing.T) {
	steps := []Step{
		{ID: "a", Kind: StepEmit, DependsOn: []string{"ghost"}},
	}
	_, err := Compile(steps, 0)
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestDAG_TransformTruncateAndJSONExtract(t *testing.T) {
	steps := []Step{
		{ID: "raw", Kind: StepEmit, EmitText: `{"result":{"title":"hello world"}}`},
		{ID: "extract", Kind: StepTransform, DependsOn: []string{"raw"}, TransformKind: TransformJSONPath, Input: "${raw}", Pattern: "result.title"},
		{ID: "trunc", Kind: StepTransform, DependsOn: []string{"extract"}, TransformKind: TransformTruncate, Input: "${extract}", MaxLen: 5},
	}
	g, err := Compile(steps, 0)
	require.NoError(t, err)

	results, err := g.Execute(context.Background(), &fakeExecutor{})
	require.NoError(t, err)
	require.Equal(t, "hello world", results[1].Output)
	require.Equal(t, "hello", results[2].Output)
}
