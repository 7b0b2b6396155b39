package history

import "errors"

// Sentinel kinds for history errors.
var (
	ErrIO = errors.New("history io failure")
)
