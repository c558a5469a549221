package publisher

import "errors"

// Sentinel errors for result publishing.
var (
	ErrClosed = errors.New("publisher closed")
)
