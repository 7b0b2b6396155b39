package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidUser = errors.New("invalid user name")
	ErrCorrupt     = errors.New("stored history is corrupt")
	ErrDriver      = errors.New("unsupported sql driver")
)
