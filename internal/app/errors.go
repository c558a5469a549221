package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("too many pending segmentation runs")
	ErrRunNotFound  = errors.New("segmentation run not found")
	ErrNoSource     = errors.New("no customer source configured")
)
