package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/olekukonko/tablewriter"
)

// WriteText renders a header block followed by the operations table.
func WriteText(w io.Writer, s Summary) error {
	mode := "apply"
	if s.DryRun {
		mode = "dry-run"
	}
	header := [][2]string{
		{"run", s.RunID},
		{"mode", mode},
		{"state", s.State},
		{"database", s.Database},
		{"version", s.SchemaVersion},
		{"revision", s.Revision},
	}
	for _, kv := range header {
		if kv[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-9s %s\n", kv[0]+":", kv[1]); err != nil {
			return err
		}
	}

	if len(s.Operations) == 0 {
		if _, err := fmt.Fprintln(w, "no changes"); err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(w)
		table.SetBorder(false)
		table.SetColumnSeparator("|")
		table.SetHeaderLine(false)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"Collection", "Operation", "Detail", "Status", "Attempts", "Note"})
		for _, line := range s.Operations {
			note := line.Reason
			if line.Error != "" {
				note = line.Error
			}
			table.Append([]string{
				line.Collection,
				line.Operation,
				line.Detail,
				line.Status,
				strconv.Itoa(line.Attempts),
				note,
			})
		}
		table.Render()
	}

	c := s.Counts
	if _, err := fmt.Fprintf(w, "planned=%d created=%d skipped=%d failed=%d not_run=%d retries=%d\n",
		c.Planned, c.Created, c.Skipped, c.Failed, c.NotRun, c.Retries); err != nil {
		return err
	}
	for _, warning := range s.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	if f := s.FirstFailure; f != nil {
		target := f.Operation
		if f.Target != "" {
			target += " " + f.Target
		}
		if _, err := fmt.Fprintf(w, "first failure: %s: %s\n", target, f.Message); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders the summary as indented JSON with a trailing newline.
func WriteJSON(w io.Writer, s Summary) error {
	data, err := json.Marshal(s, jsontext.WithIndent("  "), json.Deterministic(true))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Log emits the summary counts as one structured record.
func Log(logger *slog.Logger, s Summary) {
	level := slog.LevelInfo
	if !s.Succeeded() {
		level = slog.LevelError
	}
	attrs := []any{
		"run_id", s.RunID,
		"state", s.State,
		"dry_run", s.DryRun,
		"database", s.Database,
		"planned", s.Counts.Planned,
		"created", s.Counts.Created,
		"skipped", s.Counts.Skipped,
		"failed", s.Counts.Failed,
		"not_run", s.Counts.NotRun,
		"retries", s.Counts.Retries,
	}
	if f := s.FirstFailure; f != nil {
		attrs = append(attrs, "failed_op", f.Operation, "failed_target", f.Target, "error", f.Message)
	}
	logger.Log(context.Background(), level, "run summary", attrs...)
}
