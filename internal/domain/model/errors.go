package model

import "errors"

// ErrNoFrame reports that a frame source could not supply a frame.
var ErrNoFrame = errors.New("no frame available")
