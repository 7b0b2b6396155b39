package measurement

import "errors"

// Sentinel kinds for measurement errors.
var (
	ErrNotCalibrated    = errors.New("not calibrated")
	ErrMissingLandmarks = errors.New("missing landmarks")
)
