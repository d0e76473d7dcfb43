package broadcast

import "errors"

// Sentinel kinds for broadcast errors.
var (
	ErrClosed = errors.New("broker closed")
)
