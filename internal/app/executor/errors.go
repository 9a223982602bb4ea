package executor

import "errors"

var ErrDriverRequired = errors.New("driver is required")
var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
var ErrDatabaseRequired = errors.New("database is required to shard collections")
var ErrMissingOperationArgs = errors.New("operation is missing its parameters")
