package capture

import (
	"errors"

	"github.com/okian/tailor/internal/domain/model"
)

// Sentinel kinds for capture errors.
var (
	ErrNoFrame = model.ErrNoFrame
	ErrDecode  = errors.New("image decode failed")
)
