package detector

import "errors"

// Sentinel kinds for detector errors.
var (
	ErrDetector      = errors.New("pose detector failure")
	ErrNotConfigured = errors.New("pose detector not configured")
)
