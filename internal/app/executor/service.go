package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/platform"
)

const (
	defaultConcurrency = 4
	defaultOpTimeout   = 60 * time.Second
)

type Options struct {
	Database    string
	Concurrency int
	Retry       platform.RetryPolicy
	OpTimeout   time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

type Service struct {
	driver      Driver
	database    string
	concurrency int
	retry       platform.RetryPolicy
	opTimeout   time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewService(driver Driver, opts Options) (*Service, error) {
	if driver == nil {
		return nil, ErrDriverRequired
	}
	if opts.Concurrency < 0 {
		return nil, ErrInvalidConcurrency
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = platform.DefaultRetryPolicy()
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		driver:      driver,
		database:    opts.Database,
		concurrency: opts.Concurrency,
		retry:       opts.Retry,
		opTimeout:   opts.OpTimeout,
		clock:       opts.Clock,
		logger:      platform.Logger(opts.Logger),
	}, nil
}

// Execute applies plan. Each collection is one task on a bounded pool and
// its operations run in plan order. A failed operation stops its own
// collection only. Once ctx is cancelled nothing new is dispatched, while
// store calls already in flight finish on a detached context bounded by the
// operation timeout.
//
// The returned Result always covers every operation. The error combines one
// ExecutionError per failed collection and ctx.Err() when cancellation left
// operations unapplied.
func (s *Service) Execute(ctx context.Context, plan domain.Plan) (Result, error) {
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}
	if s.database == "" && plan.Has(domain.OpEnableSharding) {
		return Result{}, ErrDatabaseRequired
	}

	outcomes := NotRunOutcomes(plan, "").Outcomes

	groups := groupByCollection(plan)
	failures := make([]error, len(groups))
	gate := &shardingGate{}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, indexes := range groups {
		i, indexes := i, indexes
		g.Go(func() error {
			failures[i] = s.runCollection(ctx, plan, indexes, outcomes, gate)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Outcomes: outcomes}
	err := multierr.Combine(failures...)
	if ctxErr := ctx.Err(); ctxErr != nil && result.hasCancelled() {
		err = multierr.Append(err, ctxErr)
	}

	s.logger.Info("plan executed",
		"created", result.Count(StatusCreated),
		"skipped", result.Count(StatusSkipped),
		"failed", result.Count(StatusFailed),
		"not_run", result.Count(StatusNotRun),
		"retries", result.Retries(),
	)
	return result, err
}

func (s *Service) runCollection(ctx context.Context, plan domain.Plan, indexes []int, outcomes []Outcome, gate *shardingGate) error {
	for i, idx := range indexes {
		if ctx.Err() != nil {
			markNotRun(outcomes, indexes[i:], ReasonCancelled)
			return nil
		}
		outcome := s.apply(ctx, plan.Operations[idx], gate)
		outcomes[idx] = outcome
		if outcome.Reason == ReasonCancelled {
			markNotRun(outcomes, indexes[i+1:], ReasonCancelled)
			return nil
		}
		if outcome.Status == StatusFailed {
			markNotRun(outcomes, indexes[i+1:], ReasonPriorFailure)
			return outcome.Err
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, op domain.PlanOperation, gate *shardingGate) Outcome {
	logger := s.logger.With("collection", op.Collection, "op", string(op.Kind))
	start := s.clock.Now()
	skipped := false

	attempts, err := platform.Retry(ctx, s.retry, domain.IsTransient, func(attempt int) error {
		if attempt > 1 {
			logger.Debug("retrying operation", "attempt", attempt)
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
		defer cancel()

		err := s.dispatch(callCtx, op, gate)
		if errors.Is(err, domain.ErrAlreadyExists) {
			skipped = true
			return nil
		}
		if err != nil {
			logger.Debug("operation attempt failed", "attempt", attempt, "error", err)
		}
		return err
	})

	outcome := Outcome{
		Op:       op,
		Attempts: attempts,
		Retries:  max(attempts-1, 0),
		Duration: s.clock.Now().Sub(start),
	}
	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Cancelled while waiting to retry: the operation never took effect.
		outcome.Status = StatusNotRun
		outcome.Reason = ReasonCancelled
		logger.Warn("operation cancelled", "attempts", attempts, "error", err)
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = &domain.ExecutionError{Op: op, Attempts: attempts, Err: err}
		logger.Error("operation failed", "attempts", attempts, "error", err)
	case skipped:
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonAlreadyExists
		logger.Info("operation skipped", "reason", ReasonAlreadyExists)
	default:
		outcome.Status = StatusCreated
		logger.Info("operation applied", "attempts", attempts, "detail", op.Detail())
	}
	return outcome
}

func (s *Service) dispatch(ctx context.Context, op domain.PlanOperation, gate *shardingGate) error {
	switch op.Kind {
	case domain.OpCreateCollection:
		return s.driver.CreateCollection(ctx, op.Collection)
	case domain.OpEnableSharding:
		if op.ShardKey == nil {
			return ErrMissingOperationArgs
		}
		if err := gate.ensure(func() error { return s.driver.EnableSharding(ctx, s.database) }); err != nil {
			return err
		}
		return s.driver.ShardCollection(ctx, op.Collection, op.ShardKey.Field, op.ShardKey.Hashed())
	case domain.OpCreateIndex:
		if op.Index == nil {
			return ErrMissingOperationArgs
		}
		return s.driver.CreateIndex(ctx, op.Collection, *op.Index)
	default:
		return ErrMissingOperationArgs
	}
}

// shardingGate runs database-level sharding at most once per run.
type shardingGate struct {
	mu   sync.Mutex
	done bool
}

func (g *shardingGate) ensure(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	if err := fn(); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	g.done = true
	return nil
}

func groupByCollection(plan domain.Plan) [][]int {
	position := make(map[string]int)
	var groups [][]int
	for i, op := range plan.Operations {
		pos, ok := position[op.Collection]
		if !ok {
			pos = len(groups)
			position[op.Collection] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], i)
	}
	return groups
}

func markNotRun(outcomes []Outcome, indexes []int, reason string) {
	for _, idx := range indexes {
		outcomes[idx].Status = StatusNotRun
		outcomes[idx].Reason = reason
	}
}

func (r Result) hasCancelled() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Reason == ReasonCancelled {
			return true
		}
	}
	return false
}
