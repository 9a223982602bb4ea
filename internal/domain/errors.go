package domain

import (
	"errors"
	"fmt"
)

var ErrCollectionRequired = errors.New("collection name is required")
var ErrInvalidCollectionName = errors.New("invalid collection name")
var ErrDatabaseRequired = errors.New("database name is required")
var ErrInvalidDatabaseName = errors.New("invalid database name")
var ErrDuplicateCollection = errors.New("duplicate collection")
var ErrDuplicateIndex = errors.New("duplicate index field and direction")
var ErrIndexFieldRequired = errors.New("index field is required")
var ErrShardKeyRequired = errors.New("shard key field is required")
var ErrShardKeyChange = errors.New("shard key change is not supported")
var ErrAlreadyExists = errors.New("already exists")
var ErrInvalidTransition = errors.New("invalid run state transition")

// ConfigError reports malformed or inconsistent configuration input. It is
// fatal and raised before any planning happens.
type ConfigError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", msg, e.Reason, e.Err)
	case e.Reason != "":
		return msg + ": " + e.Reason
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	default:
		return msg
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PlanError reports a desired state the planner refuses to reach, such as a
// different shard key on an already sharded collection.
type PlanError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *PlanError) Error() string {
	msg := "plan error"
	if e.Collection != "" {
		msg += " for " + e.Collection
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// DriverError is returned by store adapters. Transient errors are retried by
// the executor and the snapshot reader; everything else is permanent.
type DriverError struct {
	Op        string
	Target    string
	Transient bool
	Err       error
}

func (e *DriverError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Target != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Target, kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, kind, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a transient DriverError.
func IsTransient(err error) bool {
	var driverErr *DriverError
	if errors.As(err, &driverErr) {
		return driverErr.Transient
	}
	return false
}

// ExecutionError is the escalated failure of a single plan operation.
type ExecutionError struct {
	Op       PlanOperation
	Attempts int
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
