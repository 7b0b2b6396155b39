package landmark

import "errors"

// Sentinel kinds for landmark errors.
var (
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
	ErrUnknownName       = errors.New("unknown landmark name")
)
