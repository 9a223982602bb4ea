package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/multierr"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/app/loader"
	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/configformat"
)

func TestNormalizeError(t *testing.T) {
	execErr := &domain.ExecutionError{
		Op:       domain.CreateCollectionOp("REVIEWS"),
		Attempts: 3,
		Err:      &domain.DriverError{Op: "create", Transient: true, Err: errors.New("reset")},
	}
	tests := []struct {
		err      error
		wantCode int
		wantKind ErrorKind
	}{
		{err: &domain.ConfigError{Source: "ugc.json", Reason: "duplicate"}, wantCode: ExitConfig, wantKind: KindConfig},
		{err: fmt.Errorf("load: %w", &domain.ConfigError{Reason: "bad"}), wantCode: ExitConfig, wantKind: KindConfig},
		{err: loader.ErrConfigPathRequired, wantCode: ExitConfig, wantKind: KindConfig},
		{err: configformat.ErrUnknownFormat, wantCode: ExitConfig, wantKind: KindConfig},
		{err: executor.ErrInvalidConcurrency, wantCode: ExitConfig, wantKind: KindConfig},
		{err: history.ErrInvalidLimit, wantCode: ExitConfig, wantKind: KindConfig},
		{err: &domain.PlanError{Collection: "FILM_BOOKMARKS", Err: domain.ErrShardKeyChange}, wantCode: ExitExecution, wantKind: KindPlan},
		{err: execErr, wantCode: ExitExecution, wantKind: KindExecution},
		{err: multierr.Combine(execErr, execErr), wantCode: ExitExecution, wantKind: KindExecution},
		{err: &domain.DriverError{Op: "ping", Err: errors.New("refused")}, wantCode: ExitExecution, wantKind: KindConnection},
		{err: context.Canceled, wantCode: ExitCancelled, wantKind: KindCancelled},
		{err: multierr.Combine(execErr, context.Canceled), wantCode: ExitCancelled, wantKind: KindCancelled},
		{err: errors.New("boom"), wantCode: ExitExecution, wantKind: KindInternal},
	}

	for _, tt := range tests {
		got := NormalizeError(tt.err)
		if got.Code != tt.wantCode {
			t.Fatalf("expected code %d, got %d for %v", tt.wantCode, got.Code, tt.err)
		}
		if got.Kind != tt.wantKind {
			t.Fatalf("expected kind %s, got %s for %v", tt.wantKind, got.Kind, tt.err)
		}
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("expected ExitCode(nil) == 0")
	}

	custom := ExitError{Code: 9, Kind: KindInternal, Message: "custom"}
	if ExitCode(custom) != 9 {
		t.Fatalf("expected ExitCode(custom) == 9")
	}

	wrapped := fmt.Errorf("wrapped: %w", configExit(errors.New("bad flag")))
	if ExitCode(wrapped) != ExitConfig {
		t.Fatalf("expected wrapped config exit to keep its code")
	}
}
