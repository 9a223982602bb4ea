package planner

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/platform"
)

const defaultSnapshotConcurrency = 4

type Options struct {
	Concurrency int
	Retry       platform.RetryPolicy
	Logger      *slog.Logger
}

type Service struct {
	reader      StateReader
	concurrency int
	retry       platform.RetryPolicy
	logger      *slog.Logger
}

func NewService(reader StateReader, opts Options) (*Service, error) {
	if reader == nil {
		return nil, ErrStateReaderRequired
	}
	if opts.Concurrency < 0 {
		return nil, ErrInvalidConcurrency
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaultSnapshotConcurrency
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = platform.DefaultRetryPolicy()
	}
	return &Service{
		reader:      reader,
		concurrency: opts.Concurrency,
		retry:       opts.Retry,
		logger:      platform.Logger(opts.Logger),
	}, nil
}

// Plan snapshots the cluster and diffs it against model.
func (s *Service) Plan(ctx context.Context, model domain.SchemaModel) (domain.Plan, domain.ClusterState, error) {
	state, err := s.Snapshot(ctx, model)
	if err != nil {
		return domain.Plan{}, domain.ClusterState{}, err
	}
	plan, err := Build(model, state)
	if err != nil {
		return domain.Plan{}, state, err
	}
	for _, warning := range plan.Warnings {
		s.logger.Warn("plan drift", "detail", warning)
	}
	s.logger.Debug("plan built", "operations", plan.Len(), "collections", model.Len())
	return plan, state, nil
}

// Snapshot reads the live state of the collections the model declares.
// Collections the model does not mention are never inspected.
func (s *Service) Snapshot(ctx context.Context, model domain.SchemaModel) (domain.ClusterState, error) {
	var existing []string
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		existing, err = s.reader.ListCollections(ctx)
		return err
	})
	if err != nil {
		return domain.ClusterState{}, err
	}

	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}

	var mu sync.Mutex
	states := make(map[string]domain.CollectionState, model.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, name := range model.Names() {
		if _, ok := present[name]; !ok {
			continue
		}
		name := name
		g.Go(func() error {
			state, err := s.collectionState(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			states[name] = state
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ClusterState{}, err
	}
	return domain.NewClusterState(states), nil
}

func (s *Service) collectionState(ctx context.Context, name string) (domain.CollectionState, error) {
	state := domain.CollectionState{Exists: true}

	err := s.read(ctx, func(ctx context.Context) error {
		indexes, err := s.reader.ListIndexes(ctx, name)
		if err != nil {
			return err
		}
		state.Indexes = indexes
		return nil
	})
	if err != nil {
		return domain.CollectionState{}, err
	}

	err = s.read(ctx, func(ctx context.Context) error {
		key, ok, err := s.reader.GetShardKey(ctx, name)
		if err != nil {
			return err
		}
		if ok {
			state.ShardKey = &key
		}
		return nil
	})
	if err != nil {
		return domain.CollectionState{}, err
	}
	return state, nil
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts, err := platform.Retry(ctx, s.retry, domain.IsTransient, func(attempt int) error {
		if attempt > 1 {
			s.logger.Debug("retrying state read", "attempt", attempt)
		}
		return fn(ctx)
	})
	if err != nil && attempts > 1 {
		s.logger.Warn("state read failed after retries", "attempts", attempts, "error", err)
	}
	return err
}
