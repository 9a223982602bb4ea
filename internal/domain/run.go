package domain

import "fmt"

type RunState string

const (
	RunLoading   RunState = "loading"
	RunPlanning  RunState = "planning"
	RunExecuting RunState = "executing"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
)

func (s RunState) IsTerminal() bool {
	return s == RunCompleted || s == RunAborted
}

func (s RunState) order() int {
	switch s {
	case RunLoading:
		return 0
	case RunPlanning:
		return 1
	case RunExecuting:
		return 2
	case RunCompleted, RunAborted:
		return 3
	default:
		return -1
	}
}

// CanTransition allows forward moves only. Any live state may abort; a dry
// run completes straight from planning.
func (s RunState) CanTransition(next RunState) bool {
	if s.IsTerminal() || next.order() < 0 {
		return false
	}
	if next == RunAborted {
		return true
	}
	return next.order() > s.order()
}

func ParseRunState(value string) (RunState, error) {
	state := RunState(value)
	if state.order() < 0 {
		return "", fmt.Errorf("invalid run state: %s", value)
	}
	return state, nil
}

// RunTracker records the state of one run. It is not safe for concurrent use.
type RunTracker struct {
	state RunState
}

func NewRunTracker() *RunTracker {
	return &RunTracker{state: RunLoading}
}

func (t *RunTracker) State() RunState {
	return t.state
}

func (t *RunTracker) Transition(next RunState) error {
	if !t.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, next)
	}
	t.state = next
	return nil
}
