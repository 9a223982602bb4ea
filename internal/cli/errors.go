package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/osvaldoandrade/provision/internal/app/executor"
	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/app/loader"
	"github.com/osvaldoandrade/provision/internal/app/planner"
	"github.com/osvaldoandrade/provision/internal/domain"
	"github.com/osvaldoandrade/provision/internal/infra/configformat"
	"github.com/osvaldoandrade/provision/internal/infra/mongostore"
	"github.com/osvaldoandrade/provision/internal/platform"
)

type ErrorKind string

const (
	KindInternal   ErrorKind = "internal"
	KindConfig     ErrorKind = "config"
	KindPlan       ErrorKind = "plan"
	KindExecution  ErrorKind = "execution"
	KindConnection ErrorKind = "connection"
	KindCancelled  ErrorKind = "cancelled"
)

const (
	ExitConfig    = 1
	ExitExecution = 2
	ExitCancelled = 3
)

type ExitError struct {
	Code    int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e ExitError) Error() string {
	return errorMessage(e)
}

func (e ExitError) Unwrap() error {
	return e.Err
}

func configExit(err error) ExitError {
	return ExitError{Code: ExitConfig, Kind: KindConfig, Err: err}
}

func NormalizeError(err error) ExitError {
	if err == nil {
		return ExitError{Code: 0}
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			exitErr.Code = ExitExecution
		}
		return exitErr
	}

	var configErr *domain.ConfigError
	var planErr *domain.PlanError
	var execErr *domain.ExecutionError
	var driverErr *domain.DriverError
	switch {
	case errors.Is(err, context.Canceled):
		return ExitError{Code: ExitCancelled, Kind: KindCancelled, Err: err}
	case errors.As(err, &configErr),
		errors.Is(err, loader.ErrConfigPathRequired),
		errors.Is(err, configformat.ErrUnknownFormat),
		errors.Is(err, planner.ErrInvalidConcurrency),
		errors.Is(err, executor.ErrInvalidConcurrency),
		errors.Is(err, platform.ErrInvalidRetryPolicy),
		errors.Is(err, history.ErrInvalidLimit),
		errors.Is(err, mongostore.ErrURIRequired),
		errors.Is(err, domain.ErrDatabaseRequired),
		errors.Is(err, domain.ErrInvalidDatabaseName):
		return ExitError{Code: ExitConfig, Kind: KindConfig, Err: err}
	case errors.As(err, &planErr):
		return ExitError{Code: ExitExecution, Kind: KindPlan, Err: err}
	case errors.As(err, &execErr):
		return ExitError{Code: ExitExecution, Kind: KindExecution, Err: err}
	case errors.As(err, &driverErr):
		return ExitError{Code: ExitExecution, Kind: KindConnection, Err: err}
	default:
		return ExitError{Code: ExitExecution, Kind: KindInternal, Err: err}
	}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return NormalizeError(err).Code
}

func writeCLIError(w io.Writer, exitErr ExitError, asJSON bool) error {
	if exitErr.Code == 0 {
		return nil
	}
	message := errorMessage(exitErr)
	if asJSON {
		payload := struct {
			Code    int    `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}{
			Code:    exitErr.Code,
			Kind:    string(exitErr.Kind),
			Message: message,
		}
		return writeJSON(w, payload)
	}

	ui := newRenderer(w, false)
	prefix := "Error"
	if exitErr.Kind != "" {
		prefix = fmt.Sprintf("Error (%s)", exitErr.Kind)
	}
	prefix = ui.err(prefix)
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, message)
	return err
}

func errorMessage(exitErr ExitError) string {
	if exitErr.Message != "" {
		return exitErr.Message
	}
	if exitErr.Err != nil {
		return exitErr.Err.Error()
	}
	return "unknown error"
}
