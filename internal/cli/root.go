package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/osvaldoandrade/provision/internal/infra/mongostore"
	"github.com/osvaldoandrade/provision/internal/platform"
)

type RootOptions struct {
	JSONOutput  bool
	LogLevel    string
	LogFormat   string
	MongoURI    string
	Database    string
	HistoryPath string

	logger *slog.Logger
}

// RunFlags are shared by the root command and plan.
type RunFlags struct {
	ConfigPath     string
	Overlays       []string
	Format         string
	DryRun         bool
	Concurrency    int
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	MaxAttempts    int
}

func newRootCmd() *cobra.Command {
	opts := &RootOptions{
		LogLevel:    envDefault("PROVISION_LOG_LEVEL", "info"),
		LogFormat:   envDefault("PROVISION_LOG_FORMAT", "text"),
		MongoURI:    envDefault("PROVISION_MONGO_URI", mongostore.DefaultURI),
		Database:    envDefault("PROVISION_MONGO_DB", ""),
		HistoryPath: envDefault("PROVISION_HISTORY_DB", ""),
	}
	flags := &RunFlags{}
	cmd := &cobra.Command{
		Use:           "provision",
		Short:         "Provision sharded collections and indexes from a declarative config",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := platform.ConfigureLogger(opts.LogLevel, opts.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return configExit(err)
			}
			opts.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvision(cmd, opts, flags, flags.DryRun)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configExit(err)
	})

	cmd.PersistentFlags().BoolVar(&opts.JSONOutput, "json", false, "Emit JSON output")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format (text, json)")
	cmd.PersistentFlags().StringVar(&opts.MongoURI, "uri", opts.MongoURI, "MongoDB connection string")
	cmd.PersistentFlags().StringVar(&opts.Database, "database", opts.Database, "Database name, overrides the config")
	cmd.PersistentFlags().StringVar(&opts.HistoryPath, "history", opts.HistoryPath, "Path to the SQLite run ledger")

	bindRunFlags(cmd.Flags(), flags)
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", envBoolDefault("PROVISION_DRY_RUN", false), "Print the plan without applying it")

	cmd.AddCommand(
		newPlanCmd(opts),
		newValidateCmd(opts),
		newHistoryCmd(opts),
	)

	return cmd
}

func bindRunFlags(fs *pflag.FlagSet, flags *RunFlags) {
	fs.StringVar(&flags.ConfigPath, "config", "", "Path to the schema config (- for stdin)")
	fs.StringArrayVar(&flags.Overlays, "overlay", nil, "Overlay file applied after the config, repeatable")
	fs.StringVar(&flags.Format, "format", "", "Config format (json, yaml, toml), detected from the extension by default")
	fs.IntVar(&flags.Concurrency, "concurrency", 4, "Collections processed in parallel")
	fs.DurationVar(&flags.ConnectTimeout, "timeout", 30*time.Second, "Connection timeout")
	fs.DurationVar(&flags.OpTimeout, "op-timeout", 60*time.Second, "Timeout for a single store operation")
	fs.IntVar(&flags.MaxAttempts, "max-attempts", 3, "Attempts per operation on transient errors")
}

func (f *RunFlags) validate() error {
	if strings.TrimSpace(f.ConfigPath) == "" {
		return configExit(fmt.Errorf("--config is required"))
	}
	if f.Concurrency < 1 {
		return configExit(fmt.Errorf("--concurrency must be at least 1, got %d", f.Concurrency))
	}
	if f.MaxAttempts < 1 {
		return configExit(fmt.Errorf("--max-attempts must be at least 1, got %d", f.MaxAttempts))
	}
	if f.ConnectTimeout <= 0 || f.OpTimeout <= 0 {
		return configExit(fmt.Errorf("timeouts must be positive"))
	}
	return nil
}

func envDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBoolDefault(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
