package dag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Graph is a compiled, topologically-ordered step sequence.
type Graph struct {
	steps   []Step
	byID    map[string]*Step
	order   []string // topological order of step IDs
	maxSteps int
}

// Compile validates steps (resolvable DependsOn/Condition references, no
// cycles) and produces an executable Graph. Step IDs are not checked for
// uniqueness. maxSteps <= 0 means unlimited.
func Compile(steps []Step, maxSteps int) (*Graph, error) {
	byID := make(map[string]*Step, len(steps))
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("%w: step %q depends on unknown step %q", ErrUnknownStep, s.ID, dep)
			}
		}
		if s.Condition != "" {
			if _, ok := byID[s.Condition]; !ok {
				return nil, fmt.Errorf("%w: step %q conditioned on unknown gate %q", ErrUnknownStep, s.ID, s.Condition)
			}
		}
	}

	order, err := topoSort(steps, byID)
	if err != nil {
		return nil, err
	}

	return &Graph{steps: steps, byID: byID, order: order, maxSteps: maxSteps}, nil
}

func topoSort(steps []Step, byID map[string]*Step) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("%w: step %q", ErrCycle, id)
		}
		color[id] = gray
		s := byID[id]
		deps := s.DependsOn
		if s.Condition != "" {
			deps = append(append([]string{}, deps...), s.Condition)
		}
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, s := range steps {
		if err := visit(s.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Execute runs every step in topological order, substituting ${step_id}
// references from already-executed steps' Output. A step whose Condition
// gate evaluated false is marked Skipped with the literal "(skipped)"
// output and does not count against maxSteps. Exceeding maxSteps fails the
// whole run with ErrLimitExceeded.
func (g *Graph) Execute(ctx context.Context, exec Executor) ([]StepResult, error) {
	outputs := make(map[string]string, len(g.steps))
	gateResults := make(map[string]bool, len(g.steps))
	var results []StepResult
	executed := 0

	for _, id := range g.order {
		s := g.byID[id]

		if s.Condition != "" && !gateResults[s.Condition] {
			results = append(results, StepResult{StepID: id, Status: StatusSkipped, Output: skippedOutput})
			outputs[id] = skippedOutput
			continue
		}

		if g.maxSteps > 0 && executed >= g.maxSteps {
			return results, fmt.Errorf("%w: step %q exceeds max_steps=%d", ErrLimitExceeded, id, g.maxSteps)
		}
		executed++

		res := g.executeStep(ctx, exec, s, outputs, gateResults)
		results = append(results, res)
		outputs[id] = res.Output
		if res.Status == StatusFailed {
			return results, res.Err
		}
	}

	return results, nil
}

func (g *Graph) executeStep(ctx context.Context, exec Executor, s *Step, outputs map[string]string, gateResults map[string]bool) StepResult {
	switch s.Kind {
	case StepToolCall:
		args := make(map[string]string, len(s.Args))
		for k, v := range s.Args {
			args[k] = substitute(v, outputs)
		}
		out, err := exec.ExecuteTool(ctx, s.Tool, args)
		if err != nil {
			return StepResult{StepID: s.ID, Status: StatusFailed, Err: err}
		}
		return StepResult{StepID: s.ID, Status: StatusOK, Output: out}

	case StepLlmCall:
		prompt := substitute(s.Prompt, outputs)
		out, err := exec.CallLLM(ctx, prompt)
		if err != nil {
			return StepResult{StepID: s.ID, Status: StatusFailed, Err: err}
		}
		return StepResult{StepID: s.ID, Status: StatusOK, Output: out}

	case StepTransform:
		out, err := applyTransform(s, outputs)
		if err != nil {
			return StepResult{StepID: s.ID, Status: StatusFailed, Err: err}
		}
		return StepResult{StepID: s.ID, Status: StatusOK, Output: out}

	case StepGate:
		input := substitute(s.GateInput, outputs)
		pass := evaluateGate(s, input)
		gateResults[s.ID] = pass
		return StepResult{StepID: s.ID, Status: StatusOK, Output: fmt.Sprintf("%v", pass)}

	case StepEmit:
		return StepResult{StepID: s.ID, Status: StatusOK, Output: substitute(s.EmitText, outputs)}

	default:
		return StepResult{StepID: s.ID, Status: StatusFailed, Err: fmt.Errorf("dag: unknown step kind %q", s.Kind)}
	}
}

func applyTransform(s *Step, outputs map[string]string) (string, error) {
	input := substitute(s.Input, outputs)
	switch s.TransformKind {
	case TransformTruncate:
		runes := []rune(input)
		if s.MaxLen > 0 && len(runes) > s.MaxLen {
			return string(runes[:s.MaxLen]), nil
		}
		return input, nil
	case TransformRegex:
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return "", fmt.Errorf("dag: invalid regex %q: %w", s.Pattern, err)
		}
		if m := re.FindString(input); m != "" {
			return m, nil
		}
		return "", nil
	case TransformJSONPath:
		return extractJSONPath(input, s.Pattern)
	default:
		return "", fmt.Errorf("dag: unknown transform kind %q", s.TransformKind)
	}
}

func evaluateGate(s *Step, input string) bool {
	switch s.GateKind {
	case GateContains:
		return strings.Contains(input, s.GateValue)
	case GateEquals:
		return input == s.GateValue
	default:
		return false
	}
}

var stepRefPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_\-]+)\}`)

// substitute replaces every ${step_id} reference in s with that step's
// recorded output; an unresolved reference (step not yet run, or unknown)
// is left untouched.
func substitute(s string, outputs map[string]string) string {
	return stepRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		id := stepRefPattern.FindStringSubmatch(match)[1]
		if out, ok := outputs[id]; ok {
			return out
		}
		return match
	})
}
