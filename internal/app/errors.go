package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoMeasurement     = errors.New("no measurement to save")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTooManySessions   = errors.New("too many sessions")
	ErrMissingDependency = errors.New("missing dependency")
	ErrServiceNotStarted = errors.New("service not started")
)
