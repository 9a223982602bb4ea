package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/osvaldoandrade/provision/pkg/provisionsdk"
)

func main() {
	configPath := os.Getenv("PROVISION_CONFIG")
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "PROVISION_CONFIG is required (path to a collection config)")
		os.Exit(1)
	}

	cfg := provisionsdk.DefaultConfig(os.Getenv("PROVISION_MONGO_URI"))
	cfg.Database = os.Getenv("PROVISION_MONGO_DB")
	cfg.HistoryPath = os.Getenv("PROVISION_HISTORY_DB")
	cfg.ConnectTimeout = 10 * time.Second

	ctx := context.Background()
	client, err := provisionsdk.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	plan, err := client.Plan(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("plan run=%s operations=%d warnings=%d\n", plan.RunID, len(plan.Operations), len(plan.Warnings))
	for _, line := range plan.Operations {
		fmt.Printf("  %s %s %s\n", line.Collection, line.Operation, line.Detail)
	}
	if len(plan.Operations) == 0 {
		return
	}

	summary, err := client.Apply(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apply: %v\n", err)
	}
	fmt.Printf("apply run=%s state=%s created=%d skipped=%d failed=%d\n",
		summary.RunID, summary.State, summary.Counts.Created, summary.Counts.Skipped, summary.Counts.Failed)

	if cfg.HistoryPath == "" {
		return
	}
	runs, err := client.History(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
		return
	}
	for _, run := range runs {
		fmt.Printf("ledger run=%s state=%s dry_run=%t operations=%d\n", run.RunID, run.State, run.DryRun, run.Plan.Len())
	}
}
