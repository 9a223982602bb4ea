package provision

import (
	"context"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/app/loader"
	"github.com/osvaldoandrade/provision/internal/app/planner"
	"github.com/osvaldoandrade/provision/internal/domain"
)

type Loader interface {
	Load(ctx context.Context, path string, opts loader.Options) (domain.SchemaModel, error)
}

// Store is a live connection to one database of the cluster.
type Store interface {
	executor.Driver
	planner.StateReader
	Close(ctx context.Context) error
}

type Connector interface {
	Connect(ctx context.Context, database string) (Store, error)
}

type IDGenerator interface {
	NewRunID() (string, error)
}

type Recorder interface {
	Record(ctx context.Context, record history.RunRecord) error
}
