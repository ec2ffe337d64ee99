package dag

import "errors"

var (
	// ErrLimitExceeded is returned when a graph's executed step count
	// exceeds its configured max_steps.
	ErrLimitExceeded = errors.New("dag: step limit exceeded")
	// ErrCycle is returned when a graph's DependsOn edges do not form a
	// DAG (topological sort cannot complete).
	ErrCycle = errors.New("dag: dependency cycle")
	// ErrUnknownStep is returned when a DependsOn entry or Condition names
	// a step that does not exist in the graph. ${step_id} references in
	// step text are not checked.
	ErrUnknownStep = errors.New("dag: unknown step reference")
)
