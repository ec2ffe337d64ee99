// Package dag implements the Agent Harness's DAG sub-mode: a single turn
// may contain a compiled graph of ToolCall/LlmCall/Transform/Gate/Emit
// steps with ${step_id} variable substitution, executed in topological
// order. Grounded on eino's agentflow graph-compilation style
// (agentflow.NewAgentFlowBuilder — see
// internal/hivemind/service/agents/domain/service/runtime/agentflow),
// generalized from "always build the same 3-node graph" to an arbitrary
// caller-declared step graph.
package dag

import "context"

// StepKind is the operator a Step performs.
type StepKind string

const (
	StepToolCall  StepKind = "ToolCall"
	StepLlmCall   StepKind = "LlmCall"
	StepTransform StepKind = "Transform"
	StepGate      StepKind = "Gate"
	StepEmit      StepKind = "Emit"
)

// TransformKind is a Transform step's operation.
type TransformKind string

const (
	TransformRegex    TransformKind = "regex"
	TransformTruncate TransformKind = "truncate"
	TransformJSONPath TransformKind = "json_extract"
)

// GatePredicateKind is a Gate step's predicate.
type GatePredicateKind string

const (
	GateContains GatePredicateKind = "contains"
	GateEquals   GatePredicateKind = "equals"
)

// Step is one node in the DAG. DependsOn lists prior step IDs whose
// Output must be available (via ${step_id} substitution) before this step
// runs. Condition, when set, marks this step as Gate-governed: if the
// named Gate step evaluated false, this step is skipped.
type Step struct {
	ID        string
	Kind      StepKind
	DependsOn []string

	// ToolCall
	Tool string
	Args map[string]string // values may contain ${step_id} references

	// LlmCall
	Prompt string

	// Transform
	TransformKind TransformKind
	Input         string // may contain ${step_id}
	Pattern       string // regex pattern, or json path
	MaxLen        int    // truncate length

	// Gate
	GateKind  GatePredicateKind
	GateInput string // may contain ${step_id}
	GateValue string

	// Emit
	EmitText string // may contain ${step_id}

	// Condition names a Gate step this step is conditioned on.
	Condition string
}

// StepStatus is a step's terminal disposition after execution.
type StepStatus string

const (
	StatusOK      StepStatus = "ok"
	StatusSkipped StepStatus = "skipped"
	StatusFailed  StepStatus = "failed"
)

// StepResult is what one step produced.
type StepResult struct {
	StepID string
	Status StepStatus
	Output string
	Err    error
}

// Executor performs the side-effecting operators (ToolCall, LlmCall) a
// Graph cannot itself perform; Transform/Gate/Emit are pure and need no
// executor seam.
type Executor interface {
	ExecuteTool(ctx context.Context, tool string, args map[string]string) (string, error)
	CallLLM(ctx context.Context, prompt string) (string, error)
}

const skippedOutput = "(skipped)"
