package history

import "errors"

var ErrRunIDRequired = errors.New("run id is required")
var ErrInvalidState = errors.New("run record must be in a terminal state")
var ErrInvalidLimit = errors.New("limit must be positive")
