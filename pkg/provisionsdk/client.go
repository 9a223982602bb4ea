package provisionsdk

import (
	"context"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/app/loader"
	"github.com/osvaldoandrade/provision/internal/app/provision"
	"github.com/osvaldoandrade/provision/internal/app/report"
	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/configformat"
	"github.com/osvaldoandrade/provision/internal/infra/filesystem"
	"github.com/osvaldoandrade/provision/internal/infra/fingerprint"
	"github.com/osvaldoandrade/provision/internal/infra/gitrev"
	"github.com/osvaldoandrade/provision/internal/infra/ident"
	"github.com/osvaldoandrade/provision/internal/infra/mongostore"
	"github.com/osvaldoandrade/provision/internal/infra/overlay"
	"github.com/osvaldoandrade/provision/internal/infra/plancodec"
	"github.com/osvaldoandrade/provision/internal/infra/schema"
	"github.com/osvaldoandrade/provision/internal/infra/sqliteledger"
	"github.com/osvaldoandrade/provision/internal/platform"
)

type (
	// Summary is the report of one run.
	Summary = report.Summary
	// Model is a validated schema config.
	Model = domain.SchemaModel
	// Run is one entry of the run ledger.
	Run = history.RunRecord
)

// Client runs provisioning in-process. Each Plan or Apply call opens its own
// cluster connection; the client only holds the optional run ledger.
type Client struct {
	cfg     Config
	service *provision.Service

	mu      sync.Mutex
	closed  bool
	ledger  *sqliteledger.Store
	history *history.Service
}

// Open validates cfg and opens the run ledger when HistoryPath is set.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	normalized, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := &Client{cfg: normalized}

	var recorder provision.Recorder
	if normalized.HistoryPath != "" {
		store, err := sqliteledger.OpenWithOptions(normalized.HistoryPath, sqliteledger.OpenOptions{Fast: true})
		if err != nil {
			return nil, err
		}
		client.ledger = store
		client.history = history.NewService(store, plancodec.Encoder{}, plancodec.Decoder{})
		recorder = client.history
	}

	service, err := provision.NewService(provision.Deps{
		Loader: loader.NewService(
			filesystem.ConfigSource{},
			configformat.Decoder{},
			overlay.Patcher{},
			schema.ConfigValidator{},
			fingerprint.Fingerprinter{},
			gitrev.Resolver{},
		),
		Connector: mongostore.Connector{
			URI:            normalized.URI,
			AppName:        normalized.AppName,
			ConnectTimeout: normalized.ConnectTimeout,
		},
		IDs:      ident.NewRunIDGenerator(clockwork.NewRealClock()),
		Recorder: recorder,
		Logger:   normalized.Logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	client.service = service
	return client, nil
}

// Close releases the run ledger. Calling it twice is safe.
func (c *Client) Close() error {
	c.mu.Lock()
	ledger := c.ledger
	c.ledger = nil
	c.history = nil
	c.closed = true
	c.mu.Unlock()

	if ledger != nil {
		return ledger.Close()
	}
	return nil
}

// Validate loads and validates the config at path without connecting.
func (c *Client) Validate(ctx context.Context, path string) (Model, error) {
	if err := c.ensureOpen(); err != nil {
		return Model{}, err
	}
	if strings.TrimSpace(path) == "" {
		return Model{}, ErrConfigRequired
	}
	return c.service.Validate(ctx, path, c.loadOptions())
}

// Plan reports what Apply would do against the live cluster.
func (c *Client) Plan(ctx context.Context, path string) (Summary, error) {
	return c.run(ctx, path, true)
}

// Apply provisions the cluster to match the config at path.
func (c *Client) Apply(ctx context.Context, path string) (Summary, error) {
	return c.run(ctx, path, false)
}

// History lists recorded runs, newest first. A limit of zero uses the
// ledger default.
func (c *Client) History(ctx context.Context, limit int) ([]Run, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	service := c.history
	c.mu.Unlock()
	if service == nil {
		return nil, ErrHistoryNotOpen
	}
	return service.List(ctx, limit)
}

func (c *Client) run(ctx context.Context, path string, dryRun bool) (Summary, error) {
	if err := c.ensureOpen(); err != nil {
		return Summary{}, err
	}
	if strings.TrimSpace(path) == "" {
		return Summary{}, ErrConfigRequired
	}
	retry := platform.DefaultRetryPolicy()
	retry.MaxAttempts = c.cfg.MaxAttempts
	return c.service.Run(ctx, provision.RunOptions{
		ConfigPath:  path,
		Load:        c.loadOptions(),
		DryRun:      dryRun,
		Concurrency: c.cfg.Concurrency,
		Retry:       retry,
		OpTimeout:   c.cfg.OpTimeout,
	})
}

func (c *Client) loadOptions() loader.Options {
	return loader.Options{Database: c.cfg.Database}
}

func (c *Client) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}
