package provisionsdk

import (
	"log/slog"
	"strings"
	"time"

	"github.com/osvaldoandrade/provision/internal/infra/mongostore"
)

// Config defines how the SDK reaches the cluster and where runs are recorded.
type Config struct {
	URI            string
	Database       string
	AppName        string
	Concurrency    int
	MaxAttempts    int
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	// HistoryPath enables the SQLite run ledger when set.
	HistoryPath string
	Logger      *slog.Logger
}

// DefaultConfig returns the settings the CLI uses when no flags are given.
func DefaultConfig(uri string) Config {
	return Config{
		URI:            uri,
		AppName:        "provisionsdk",
		Concurrency:    4,
		MaxAttempts:    3,
		ConnectTimeout: 30 * time.Second,
		OpTimeout:      60 * time.Second,
	}
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.URI = strings.TrimSpace(cfg.URI)
	if cfg.URI == "" {
		cfg.URI = mongostore.DefaultURI
	}
	cfg.Database = strings.TrimSpace(cfg.Database)
	cfg.HistoryPath = strings.TrimSpace(cfg.HistoryPath)
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxAttempts < 0 {
		return cfg, ErrInvalidAttempts
	}
	if cfg.ConnectTimeout < 0 || cfg.OpTimeout < 0 {
		return cfg, ErrInvalidTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = 60 * time.Second
	}
	return cfg, nil
}
