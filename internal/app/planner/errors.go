package planner

import "errors"

var ErrStateReaderRequired = errors.New("state reader is required")
var ErrInvalidConcurrency = errors.New("invalid snapshot concurrency")
