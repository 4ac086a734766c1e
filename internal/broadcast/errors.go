package broadcast

import "errors"

// Sentinel kinds for bus errors.
var (
	ErrClosed        = errors.New("bus closed")
	ErrEncodePayload = errors.New("encode payload failed")
)
