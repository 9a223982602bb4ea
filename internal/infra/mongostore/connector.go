package mongostore

import (
	"context"
	"time"

	"github.com/osvaldoandrade/provision/internal/app/provision"
)

// Connector opens one Store per run.
type Connector struct {
	URI            string
	AppName        string
	ConnectTimeout time.Duration
}

func (c Connector) Connect(ctx context.Context, database string) (provision.Store, error) {
	store, err := Open(ctx, Options{
		URI:            c.URI,
		Database:       database,
		AppName:        c.AppName,
		ConnectTimeout: c.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
