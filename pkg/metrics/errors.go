package metrics

import "errors"

// Sentinel kinds for metrics errors.
var (
	ErrInvalidOption = errors.New("invalid metrics option")
)
