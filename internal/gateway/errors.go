package gateway

import "errors"

var ErrInvalidConfig = errors.New("gateway: invalid config")
