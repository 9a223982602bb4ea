package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const reviewsConfig = `[
  {"name": "REVIEWS", "shardKey": "film_id", "indexFields": ["film_id", "text"]},
  {"name": "REVIEW_SCORES", "indexFields": [{"field": "score", "direction": 1, "unique": true}]}
]`

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("PROVISION_HISTORY_DB", "")
	t.Setenv("PROVISION_MONGO_DB", "")
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "ugc.json", reviewsConfig)

	code, stdout, stderr := runCLI(t, "", "validate", "--config", path, "--database", "UGC_DB", "--log-level", "error")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	for _, want := range []string{"valid", "UGC_DB", "REVIEWS", "film_id:hashed", "film_id:-1, text:-1", "score:1 unique"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestValidateCommandReadsStdinAsJSON(t *testing.T) {
	code, stdout, stderr := runCLI(t, reviewsConfig, "validate", "--config", "-", "--database", "UGC_DB", "--json", "--log-level", "error")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"UGC_DB"`) || !strings.Contains(stdout, `"REVIEW_SCORES"`) || !strings.Contains(stdout, `"score:1 unique"`) {
		t.Fatalf("unexpected JSON output:\n%s", stdout)
	}
}

func TestValidateRejectsDuplicateIndex(t *testing.T) {
	path := writeConfig(t, "dup.json", `[{"name": "REVIEWS", "indexFields": [{"field": "x", "direction": -1}, {"field": "x", "direction": -1}]}]`)

	code, _, stderr := runCLI(t, "", "validate", "--config", path, "--database", "UGC_DB", "--log-level", "error")
	if code != ExitConfig {
		t.Fatalf("expected exit %d, got %d", ExitConfig, code)
	}
	if !strings.Contains(stderr, "Error (config)") {
		t.Fatalf("expected config error on stderr, got %q", stderr)
	}
}

func TestRunFailsOnConfigErrorBeforeConnecting(t *testing.T) {
	path := writeConfig(t, "bad.json", `[{"indexFields": ["film_id"]}]`)

	code, _, stderr := runCLI(t, "", "--config", path, "--database", "UGC_DB", "--uri", "mongodb://127.0.0.1:1", "--log-level", "error", "--json")
	if code != ExitConfig {
		t.Fatalf("expected exit %d, got %d: %s", ExitConfig, code, stderr)
	}
	if !strings.Contains(stderr, `"kind"`) || !strings.Contains(stderr, `"config"`) {
		t.Fatalf("expected JSON error payload, got %q", stderr)
	}
}

func TestFlagErrorsAreConfigErrors(t *testing.T) {
	cases := [][]string{
		{"--config"},
		{"--bogus"},
		{"--concurrency", "0", "--config", "x.json"},
		{"--max-attempts", "0", "--config", "x.json"},
		{"--config", "x.json", "--format", "ini"},
		{"plan"},
		{"--config", "x.json", "--log-format", "xml"},
	}
	for _, args := range cases {
		code, _, stderr := runCLI(t, "", args...)
		if code != ExitConfig {
			t.Fatalf("expected exit %d for %v, got %d: %s", ExitConfig, args, code, stderr)
		}
	}
}

func TestHistoryCommand(t *testing.T) {
	code, _, _ := runCLI(t, "", "history")
	if code != ExitConfig {
		t.Fatalf("expected exit %d without a ledger path, got %d", ExitConfig, code)
	}

	ledger := filepath.Join(t.TempDir(), "runs.db")
	code, stdout, stderr := runCLI(t, "", "history", "--history", ledger)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "no runs recorded") {
		t.Fatalf("unexpected output %q", stdout)
	}

	code, _, _ = runCLI(t, "", "history", "--history", ledger, "--limit", "-1")
	if code != ExitConfig {
		t.Fatalf("expected exit %d for a negative limit, got %d", ExitConfig, code)
	}
}

func TestHelpExitsZero(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "plan") || !strings.Contains(stdout, "--dry-run") {
		t.Fatalf("unexpected help output:\n%s", stdout)
	}
}
