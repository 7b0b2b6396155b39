package calibration

import "errors"

// Sentinel kinds for calibration errors.
var (
	ErrInvalidInput = errors.New("invalid calibration input")
)
