package provisionsdk

import "errors"

var (
	ErrClientClosed    = errors.New("client is closed")
	ErrConfigRequired  = errors.New("config path is required")
	ErrHistoryNotOpen  = errors.New("run ledger is not configured")
	ErrInvalidAttempts = errors.New("max attempts must be at least 1")
	ErrInvalidTimeout  = errors.New("timeouts must not be negative")
)
