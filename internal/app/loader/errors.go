package loader

import "errors"

var ErrConfigPathRequired = errors.New("config path is required")
var ErrEmptyConfig = errors.New("config is empty")
var ErrOverlayUnavailable = errors.New("overlays are not configured")
