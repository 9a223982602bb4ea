package executor

import (
	"context"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// Driver applies structural changes to the store. Implementations signal an
// "already exists" condition by wrapping domain.ErrAlreadyExists and report
// failures as *domain.DriverError.
type Driver interface {
	CreateCollection(ctx context.Context, name string) error
	EnableSharding(ctx context.Context, database string) error
	ShardCollection(ctx context.Context, name, key string, hashed bool) error
	CreateIndex(ctx context.Context, collection string, index domain.IndexSpec) error
}
