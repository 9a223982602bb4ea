package executor

import (
	"time"

	"github.com/osvaldoandrade/provision/internal/domain"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusNotRun  Status = "not_run"
)

const (
	ReasonAlreadyExists = "already exists"
	ReasonCancelled     = "cancelled"
	ReasonPriorFailure  = "earlier operation on collection failed"
)

// Outcome is what happened to one plan operation.
type Outcome struct {
	Op       domain.PlanOperation
	Status   Status
	Attempts int
	Retries  int
	Duration time.Duration
	Reason   string
	Err      error
}

// Result holds one outcome per plan operation, in plan order.
type Result struct {
	Outcomes []Outcome
}

func (r Result) Count(status Status) int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Status == status {
			n++
		}
	}
	return n
}

func (r Result) Retries() int {
	n := 0
	for _, outcome := range r.Outcomes {
		n += outcome.Retries
	}
	return n
}

// FirstFailure returns the earliest failed operation in plan order.
func (r Result) FirstFailure() (Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// NotRunOutcomes marks every operation of plan as not run with reason.
func NotRunOutcomes(plan domain.Plan, reason string) Result {
	outcomes := make([]Outcome, len(plan.Operations))
	for i, op := range plan.Operations {
		outcomes[i] = Outcome{Op: op, Status: StatusNotRun, Reason: reason}
	}
	return Result{Outcomes: outcomes}
}
