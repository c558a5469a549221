package export

import "errors"

// Sentinel errors for exports.
var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrNotTabular    = errors.New("value has no text table rendering")
)
