package planner

import (
	"context"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// StateReader is the read side of the store driver.
type StateReader interface {
	ListCollections(ctx context.Context) ([]string, error)
	ListIndexes(ctx context.Context, collection string) ([]domain.IndexSpec, error)
	// GetShardKey reports the live shard key; ok is false for unsharded collections.
	GetShardKey(ctx context.Context, collection string) (key domain.ShardKey, ok bool, err error)
}
