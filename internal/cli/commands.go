package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/osvaldoandrade/provision/internal/app/executor"
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

const timeLayout = "2006-01-02T15:04:05.999Z07:00"

func newPlanCmd(opts *RootOptions) *cobra.Command {
	flags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the operations a run would apply, without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvision(cmd, opts, flags, true)
		},
	}
	bindRunFlags(cmd.Flags(), flags)
	return cmd
}

func newValidateCmd(opts *RootOptions) *cobra.Command {
	flags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config without connecting to the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(flags.ConfigPath) == "" {
				return configExit(fmt.Errorf("--config is required"))
			}
			loadOpts, err := loadOptions(opts, flags)
			if err != nil {
				return err
			}
			service, err := newProvisionService(cmd, opts, flags, nil)
			if err != nil {
				return err
			}
			model, err := service.Validate(cmd.Context(), flags.ConfigPath, loadOpts)
			if err != nil {
				return err
			}
			return writeValidateResult(cmd, model, opts.JSONOutput)
		},
	}
	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "Path to the schema config (- for stdin)")
	cmd.Flags().StringArrayVar(&flags.Overlays, "overlay", nil, "Overlay file applied after the config, repeatable")
	cmd.Flags().StringVar(&flags.Format, "format", "", "Config format (json, yaml, toml)")
	return cmd
}

func newHistoryCmd(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.HistoryPath) == "" {
				return configExit(fmt.Errorf("--history or PROVISION_HISTORY_DB is required"))
			}
			store, err := sqliteledger.Open(opts.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			service := history.NewService(store, plancodec.Encoder{}, plancodec.Decoder{})
			runs, err := service.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeHistory(cmd, runs, opts.JSONOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", history.DefaultListLimit, "Maximum number of runs to list")
	return cmd
}

func runProvision(cmd *cobra.Command, opts *RootOptions, flags *RunFlags, dryRun bool) error {
	if err := flags.validate(); err != nil {
		return err
	}
	loadOpts, err := loadOptions(opts, flags)
	if err != nil {
		return err
	}

	recorder, closeLedger := openLedger(opts)
	defer closeLedger()

	service, err := newProvisionService(cmd, opts, flags, recorder)
	if err != nil {
		return err
	}

	retry := platform.DefaultRetryPolicy()
	retry.MaxAttempts = flags.MaxAttempts
	summary, runErr := service.Run(cmd.Context(), provision.RunOptions{
		ConfigPath:  flags.ConfigPath,
		Load:        loadOpts,
		DryRun:      dryRun,
		Concurrency: flags.Concurrency,
		Retry:       retry,
		OpTimeout:   flags.OpTimeout,
	})
	if summary.RunID != "" {
		if err := writeSummary(cmd, summary, opts.JSONOutput); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}

func newProvisionService(cmd *cobra.Command, opts *RootOptions, flags *RunFlags, recorder provision.Recorder) (*provision.Service, error) {
	return provision.NewService(provision.Deps{
		Loader: loader.NewService(
			filesystem.ConfigSource{Stdin: cmd.InOrStdin()},
			configformat.Decoder{},
			overlay.Patcher{},
			schema.ConfigValidator{},
			fingerprint.Fingerprinter{},
			gitrev.Resolver{},
		),
		Connector: mongostore.Connector{
			URI:            opts.MongoURI,
			ConnectTimeout: flags.ConnectTimeout,
		},
		IDs:      ident.NewRunIDGenerator(clockwork.NewRealClock()),
		Recorder: recorder,
		Logger:   opts.logger,
	})
}

func loadOptions(opts *RootOptions, flags *RunFlags) (loader.Options, error) {
	loadOpts := loader.Options{
		Database: strings.TrimSpace(opts.Database),
		Overlays: flags.Overlays,
	}
	if strings.TrimSpace(flags.Format) != "" {
		format, err := configformat.ParseFormat(flags.Format)
		if err != nil {
			return loader.Options{}, configExit(err)
		}
		loadOpts.Format = format
	}
	return loadOpts, nil
}

// openLedger opens the run ledger when one is configured. A ledger that
// cannot be opened is logged and the run goes on without it.
func openLedger(opts *RootOptions) (provision.Recorder, func()) {
	if strings.TrimSpace(opts.HistoryPath) == "" {
		return nil, func() {}
	}
	store, err := sqliteledger.OpenWithOptions(opts.HistoryPath, sqliteledger.OpenOptions{Fast: true})
	if err != nil {
		platform.Logger(opts.logger).Warn("run ledger unavailable", "path", opts.HistoryPath, "error", err)
		return nil, func() {}
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			platform.Logger(opts.logger).Warn("close run ledger failed", "error", err)
		}
	}
	return history.NewService(store, plancodec.Encoder{}, plancodec.Decoder{}), closeFn
}

func writeSummary(cmd *cobra.Command, summary report.Summary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return report.WriteJSON(out, summary)
	}
	if err := report.WriteText(out, summary); err != nil {
		return err
	}

	ui := newRenderer(out, asJSON)
	total := len(summary.Operations)
	done := summary.Counts.Created + summary.Counts.Skipped
	ratio := 1.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	state := ui.state(summary.State)
	if summary.DryRun {
		return writeKV(out, ui, "Result", fmt.Sprintf("%s, %d operation(s) planned", state, total))
	}
	line := fmt.Sprintf("%s %s %d/%d applied", state, ui.bar(20, ratio), done, total)
	if summary.Counts.Failed > 0 {
		line += fmt.Sprintf(", %d %s", summary.Counts.Failed, ui.status(string(executor.StatusFailed)))
	}
	if summary.Counts.NotRun > 0 {
		line += fmt.Sprintf(", %d %s", summary.Counts.NotRun, ui.status(string(executor.StatusNotRun)))
	}
	return writeKV(out, ui, "Result", line)
}

type validateOutput struct {
	Database    string             `json:"database"`
	Version     string             `json:"version"`
	Fingerprint string             `json:"fingerprint"`
	Revision    string             `json:"revision,omitempty"`
	Collections []collectionOutput `json:"collections"`
}

type collectionOutput struct {
	Name     string   `json:"name"`
	ShardKey string   `json:"shard_key,omitempty"`
	Indexes  []string `json:"indexes"`
}

func writeValidateResult(cmd *cobra.Command, model domain.SchemaModel, asJSON bool) error {
	out := cmd.OutOrStdout()
	output := validateOutput{
		Database:    model.Database(),
		Version:     model.Version(),
		Fingerprint: model.Fingerprint(),
		Revision:    model.Revision().String(),
		Collections: []collectionOutput{},
	}
	for _, spec := range model.Collections() {
		collection := collectionOutput{Name: spec.Name, Indexes: []string{}}
		if spec.ShardKey != nil {
			collection.ShardKey = spec.ShardKey.String()
		}
		for _, index := range spec.Indexes {
			name := index.Key().String()
			if index.Unique {
				name += " unique"
			}
			collection.Indexes = append(collection.Indexes, name)
		}
		output.Collections = append(output.Collections, collection)
	}
	if asJSON {
		return writeJSON(out, output)
	}

	ui := newRenderer(out, asJSON)
	if err := writeKV(out, ui, "Config", ui.ok("valid")); err != nil {
		return err
	}
	if err := writeKV(out, ui, "Database", output.Database); err != nil {
		return err
	}
	if err := writeKV(out, ui, "Version", output.Version); err != nil {
		return err
	}
	if err := writeKV(out, ui, "Fingerprint", output.Fingerprint); err != nil {
		return err
	}
	if output.Revision != "" {
		if err := writeKV(out, ui, "Revision", output.Revision); err != nil {
			return err
		}
	}
	for _, collection := range output.Collections {
		shard := ui.dim("unsharded")
		if collection.ShardKey != "" {
			shard = collection.ShardKey
		}
		line := fmt.Sprintf("%s %s", shard, strings.Join(collection.Indexes, ", "))
		if err := writeKV(out, ui, collection.Name, line); err != nil {
			return err
		}
	}
	return nil
}

type historyOutput struct {
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	DurationMS    int64  `json:"duration_ms"`
	Database      string `json:"database"`
	SchemaVersion string `json:"schema_version"`
	Revision      string `json:"revision,omitempty"`
	State         string `json:"state"`
	DryRun        bool   `json:"dry_run"`
	Operations    int    `json:"operations"`
	Created       int    `json:"created"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	NotRun        int    `json:"not_run"`
	Failure       string `json:"failure,omitempty"`
}

func writeHistory(cmd *cobra.Command, runs []history.RunRecord, asJSON bool) error {
	out := cmd.OutOrStdout()
	outputs := make([]historyOutput, 0, len(runs))
	for _, run := range runs {
		output := historyOutput{
			RunID:         run.RunID,
			StartedAt:     run.StartedAt.Format(timeLayout),
			DurationMS:    run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
			Database:      run.Database,
			SchemaVersion: run.SchemaVersion,
			Revision:      run.Revision,
			State:         string(run.State),
			DryRun:        run.DryRun,
			Operations:    run.Plan.Len(),
			Created:       run.Counts.Created,
			Skipped:       run.Counts.Skipped,
			Failed:        run.Counts.Failed,
			NotRun:        run.Counts.NotRun,
		}
		if run.FailureMessage != "" {
			output.Failure = strings.TrimSpace(run.FailureOp + " " + run.FailureTarget + ": " + run.FailureMessage)
		}
		outputs = append(outputs, output)
	}
	if asJSON {
		return writeJSON(out, outputs)
	}
	if len(outputs) == 0 {
		_, err := fmt.Fprintln(out, "no runs recorded")
		return err
	}
	return writeHistoryTable(out, outputs)
}

func writeHistoryTable(out io.Writer, outputs []historyOutput) error {
	table := tablewriter.NewWriter(out)
	table.SetBorder(false)
	table.SetColumnSeparator("|")
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Run", "Started", "Duration", "Database", "Version", "State", "Mode", "Ops", "Created", "Skipped", "Failed"})
	for _, output := range outputs {
		mode := "apply"
		if output.DryRun {
			mode = "dry-run"
		}
		table.Append([]string{
			output.RunID,
			output.StartedAt,
			(time.Duration(output.DurationMS) * time.Millisecond).String(),
			output.Database,
			output.SchemaVersion,
			output.State,
			mode,
			strconv.Itoa(output.Operations),
			strconv.Itoa(output.Created),
			strconv.Itoa(output.Skipped),
			strconv.Itoa(output.Failed),
		})
	}
	table.Render()
	return nil
}

func writeKV(out io.Writer, ui renderer, key, value string) error {
	_, err := fmt.Fprintf(out, "%s: %s\n", ui.key(key), value)
	return err
}
