package provision

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/app/loader"
	"github.com/osvaldoandrade/provision/internal/app/planner"
	"github.com/osvaldoandrade/provision/internal/app/report"
	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/platform"
)

type RunOptions struct {
	ConfigPath  string
	Load        loader.Options
	DryRun      bool
	Concurrency int
	Retry       platform.RetryPolicy
	OpTimeout   time.Duration
}

type Deps struct {
	Loader    Loader
	Connector Connector
	IDs       IDGenerator
	Clock     clockwork.Clock
	Recorder  Recorder
	Logger    *slog.Logger
}

type Service struct {
	loader    Loader
	connector Connector
	ids       IDGenerator
	clock     clockwork.Clock
	recorder  Recorder
	logger    *slog.Logger
}

func NewService(deps Deps) (*Service, error) {
	if deps.Loader == nil {
		return nil, ErrLoaderRequired
	}
	if deps.Connector == nil {
		return nil, ErrConnectorRequired
	}
	if deps.IDs == nil {
		return nil, ErrIDGeneratorRequired
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Service{
		loader:    deps.Loader,
		connector: deps.Connector,
		ids:       deps.IDs,
		clock:     deps.Clock,
		recorder:  deps.Recorder,
		logger:    platform.Logger(deps.Logger),
	}, nil
}

// Validate runs the loading stage only. It never connects to the cluster.
func (s *Service) Validate(ctx context.Context, path string, opts loader.Options) (domain.SchemaModel, error) {
	return s.loader.Load(ctx, path, opts)
}

// Run drives one provisioning run from loading to a terminal state. The
// returned summary is always populated, also when err is not nil.
func (s *Service) Run(ctx context.Context, opts RunOptions) (report.Summary, error) {
	runID, err := s.ids.NewRunID()
	if err != nil {
		return report.Summary{}, err
	}
	r := &run{
		svc:     s,
		tracker: domain.NewRunTracker(),
		logger:  s.logger.With("run_id", runID),
		in: report.Input{
			RunID:     runID,
			DryRun:    opts.DryRun,
			StartedAt: s.clock.Now().UTC(),
		},
	}
	r.logger.Info("run started", "config", opts.ConfigPath, "dry_run", opts.DryRun)

	if opts.Concurrency < 0 {
		return r.finish(ctx, &domain.ConfigError{Reason: "concurrency must be at least 1"})
	}

	model, err := s.loader.Load(ctx, opts.ConfigPath, opts.Load)
	if err != nil {
		return r.finish(ctx, err)
	}
	r.in.Model = &model
	r.logger.Info("config loaded",
		"database", model.Database(),
		"version", model.Version(),
		"collections", model.Len(),
	)

	if err := r.advance(domain.RunPlanning); err != nil {
		return r.finish(ctx, err)
	}
	store, err := s.connector.Connect(ctx, model.Database())
	if err != nil {
		return r.finish(ctx, err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("close store failed", "error", err)
		}
	}()

	plans, err := planner.NewService(store, planner.Options{
		Concurrency: opts.Concurrency,
		Retry:       opts.Retry,
		Logger:      r.logger,
	})
	if err != nil {
		return r.finish(ctx, err)
	}
	plan, _, err := plans.Plan(ctx, model)
	r.in.Plan = plan
	if err != nil {
		return r.finish(ctx, err)
	}
	r.logger.Info("plan ready",
		"operations", plan.Len(),
		"collections", plan.Collections(),
		"warnings", len(plan.Warnings),
	)

	if opts.DryRun || plan.IsEmpty() {
		return r.finish(ctx, nil)
	}

	if err := r.advance(domain.RunExecuting); err != nil {
		return r.finish(ctx, err)
	}
	exec, err := executor.NewService(store, executor.Options{
		Database:    model.Database(),
		Concurrency: opts.Concurrency,
		Retry:       opts.Retry,
		OpTimeout:   opts.OpTimeout,
		Clock:       s.clock,
		Logger:      r.logger,
	})
	if err != nil {
		return r.finish(ctx, err)
	}
	result, err := exec.Execute(ctx, plan)
	r.in.Result = result
	return r.finish(ctx, err)
}

type run struct {
	svc     *Service
	tracker *domain.RunTracker
	logger  *slog.Logger
	in      report.Input
}

func (r *run) advance(next domain.RunState) error {
	from := r.tracker.State()
	if err := r.tracker.Transition(next); err != nil {
		return err
	}
	r.logger.Debug("run state changed", "from", string(from), "to", string(next))
	return nil
}

func (r *run) finish(ctx context.Context, err error) (report.Summary, error) {
	final := domain.RunCompleted
	if err != nil {
		final = domain.RunAborted
	}
	if transitionErr := r.tracker.Transition(final); transitionErr != nil {
		r.logger.Error("run state", "error", transitionErr)
	}

	r.in.State = r.tracker.State()
	r.in.Err = err
	r.in.FinishedAt = r.svc.clock.Now().UTC()
	summary := report.Build(r.in)
	report.Log(r.logger, summary)
	r.record(context.WithoutCancel(ctx), summary)
	return summary, err
}

// record writes the run to the ledger. Ledger failures never change the
// outcome of the run.
func (r *run) record(ctx context.Context, summary report.Summary) {
	if r.svc.recorder == nil {
		return
	}
	record := history.RunRecord{
		RunID:         summary.RunID,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
		Database:      summary.Database,
		SchemaVersion: summary.SchemaVersion,
		Fingerprint:   summary.Fingerprint,
		Revision:      summary.Revision,
		State:         domain.RunState(summary.State),
		DryRun:        summary.DryRun,
		Counts: history.Counts{
			Planned: summary.Counts.Planned,
			Created: summary.Counts.Created,
			Skipped: summary.Counts.Skipped,
			Failed:  summary.Counts.Failed,
			NotRun:  summary.Counts.NotRun,
			Retries: summary.Counts.Retries,
		},
		Plan: r.in.Plan,
	}
	if f := summary.FirstFailure; f != nil {
		record.FailureOp = f.Operation
		record.FailureTarget = f.Target
		record.FailureMessage = f.Message
	}
	if err := r.svc.recorder.Record(ctx, record); err != nil {
		r.logger.Warn("record run failed", "error", err)
	}
}
