// Package calibration derives the pixel to centimeter scale factor for a frame.
//
// The policy is a heuristic placeholder: it assumes an average adult face
// spans one eighth of the frame width and is 15.5 cm wide. The face in the
// frame is never inspected, so the result only depends on the frame width.
package calibration

import (
	"fmt"
	"math"
)

// Heuristic constants.
const (
	AverageFaceWidthCM = 15.5
	FaceWidthFraction  = 8
)

// State holds the scale factor in centimeters per pixel.
// ScaleFactor is > 0 whenever Calibrated is true.
type State struct {
	ScaleFactor float64 `json:"scale_factor"`
	Calibrated  bool    `json:"calibrated"`
}

// Valid reports whether the state may be used for measuring.
func (s State) Valid() bool {
	return s.Calibrated && s.ScaleFactor > 0 && !math.IsInf(s.ScaleFactor, 0) && !math.IsNaN(s.ScaleFactor)
}

// Calibrate computes a calibrated State for a frame of the given width.
func Calibrate(frameWidth int) (State, error) {
	if frameWidth <= 0 {
		return State{}, fmt.Errorf("frame width %d: %w", frameWidth, ErrInvalidInput)
	}
	faceWidthPixels := float64(frameWidth) / FaceWidthFraction
	return State{
		ScaleFactor: AverageFaceWidthCM / faceWidthPixels,
		Calibrated:  true,
	}, nil
}
