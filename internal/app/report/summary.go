package report

import (
	"errors"
	"time"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/domain"
)

// StatusPlanned marks operations of a dry run.
const StatusPlanned = "planned"

type Counts struct {
	Planned int `json:"planned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	NotRun  int `json:"not_run"`
	Retries int `json:"retries"`
}

type Line struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	Detail     string `json:"detail,omitempty"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	Retries    int    `json:"retries"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Failure struct {
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
	Message   string `json:"message"`
}

// Summary is the outcome of one run in a form fit for rendering and storage.
type Summary struct {
	RunID         string    `json:"run_id"`
	State         string    `json:"state"`
	DryRun        bool      `json:"dry_run"`
	Database      string    `json:"database,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	Revision      string    `json:"revision,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Counts        Counts    `json:"counts"`
	Warnings      []string  `json:"warnings,omitempty"`
	Operations    []Line    `json:"operations"`
	FirstFailure  *Failure  `json:"first_failure,omitempty"`
}

func (s Summary) Succeeded() bool {
	return s.State == string(domain.RunCompleted)
}

// Input gathers everything a run produced. Model is nil when loading failed.
type Input struct {
	RunID      string
	State      domain.RunState
	DryRun     bool
	Model      *domain.SchemaModel
	Plan       domain.Plan
	Result     executor.Result
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

func Build(in Input) Summary {
	summary := Summary{
		RunID:      in.RunID,
		State:      string(in.State),
		DryRun:     in.DryRun,
		StartedAt:  in.StartedAt,
		FinishedAt: in.FinishedAt,
		Warnings:   append([]string(nil), in.Plan.Warnings...),
		Operations: []Line{},
	}
	if in.Model != nil {
		summary.Database = in.Model.Database()
		summary.SchemaVersion = in.Model.Version()
		summary.Fingerprint = in.Model.Fingerprint()
		summary.Revision = in.Model.Revision().String()
	}

	if len(in.Result.Outcomes) == len(in.Plan.Operations) && len(in.Result.Outcomes) > 0 {
		for _, outcome := range in.Result.Outcomes {
			summary.Operations = append(summary.Operations, outcomeLine(outcome))
		}
	} else {
		status := StatusPlanned
		if !in.DryRun {
			status = string(executor.StatusNotRun)
		}
		for _, op := range in.Plan.Operations {
			summary.Operations = append(summary.Operations, Line{
				Collection: op.Collection,
				Operation:  string(op.Kind),
				Detail:     op.Detail(),
				Status:     status,
			})
		}
	}
	summary.Counts = count(summary.Operations)

	if in.State == domain.RunAborted {
		summary.FirstFailure = firstFailure(in.Result, in.Err)
	}
	return summary
}

func outcomeLine(outcome executor.Outcome) Line {
	line := Line{
		Collection: outcome.Op.Collection,
		Operation:  string(outcome.Op.Kind),
		Detail:     outcome.Op.Detail(),
		Status:     string(outcome.Status),
		Attempts:   outcome.Attempts,
		Retries:    outcome.Retries,
		DurationMS: outcome.Duration.Milliseconds(),
		Reason:     outcome.Reason,
	}
	if outcome.Err != nil {
		line.Error = outcome.Err.Error()
	}
	return line
}

func count(lines []Line) Counts {
	var counts Counts
	for _, line := range lines {
		counts.Retries += line.Retries
		switch line.Status {
		case StatusPlanned:
			counts.Planned++
		case string(executor.StatusCreated):
			counts.Created++
		case string(executor.StatusSkipped):
			counts.Skipped++
		case string(executor.StatusFailed):
			counts.Failed++
		case string(executor.StatusNotRun):
			counts.NotRun++
		}
	}
	return counts
}

func firstFailure(result executor.Result, err error) *Failure {
	if outcome, ok := result.FirstFailure(); ok {
		return &Failure{
			Operation: string(outcome.Op.Kind),
			Target:    outcome.Op.Collection,
			Message:   outcome.Err.Error(),
		}
	}
	if err == nil {
		return nil
	}

	failure := &Failure{Message: err.Error()}
	var configErr *domain.ConfigError
	var planErr *domain.PlanError
	var driverErr *domain.DriverError
	switch {
	case errors.As(err, &configErr):
		failure.Operation = "load"
		failure.Target = configErr.Source
	case errors.As(err, &planErr):
		failure.Operation = "plan"
		failure.Target = planErr.Collection
	case errors.As(err, &driverErr):
		failure.Operation = driverErr.Op
		failure.Target = driverErr.Target
	default:
		failure.Operation = "run"
	}
	return failure
}
