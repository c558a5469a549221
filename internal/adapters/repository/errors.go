package repository

import "errors"

// Sentinel errors returned by the SQL store.
var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrClosed            = errors.New("store closed")
)
