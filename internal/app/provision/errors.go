package provision

import "errors"

var ErrLoaderRequired = errors.New("loader is required")
var ErrConnectorRequired = errors.New("connector is required")
var ErrIDGeneratorRequired = errors.New("run id generator is required")
