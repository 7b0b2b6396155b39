// Package measurement turns pixel landmarks into body measurements.
package measurement

import (
	"fmt"
	"strings"

	"github.com/okian/tailor/internal/domain/calibration"
	"github.com/okian/tailor/internal/domain/geometry"
	"github.com/okian/tailor/internal/domain/landmark"
)

// Display names of the measurements, in presentation order.
const (
	ShoulderWidth = "Shoulder Width"
	LeftArmLength = "Left Arm Length"
	TorsoLength   = "Torso Length"
	Inseam        = "Inseam"
	HipWidth      = "Hip Width"
	LegLength     = "Leg Length"
)

// Set holds every measurement in centimeters, rounded to one decimal.
//
// LegLength and Inseam are computed from the same landmark pair and are
// always equal. They are kept as separate outputs.
type Set struct {
	ShoulderWidth float64 `json:"Shoulder Width" validate:"gte=0"`
	LeftArmLength float64 `json:"Left Arm Length" validate:"gte=0"`
	TorsoLength   float64 `json:"Torso Length" validate:"gte=0"`
	Inseam        float64 `json:"Inseam" validate:"gte=0"`
	HipWidth      float64 `json:"Hip Width" validate:"gte=0"`
	LegLength     float64 `json:"Leg Length" validate:"gte=0"`
}

// Entry is a single named measurement.
type Entry struct {
	Name  string
	Value float64
}

// Entries returns the measurements in presentation order.
func (s Set) Entries() []Entry {
	return []Entry{
		{ShoulderWidth, s.ShoulderWidth},
		{LeftArmLength, s.LeftArmLength},
		{TorsoLength, s.TorsoLength},
		{Inseam, s.Inseam},
		{HipWidth, s.HipWidth},
		{LegLength, s.LegLength},
	}
}

// required lists the landmarks Compute reads.
var required = []landmark.Name{
	landmark.LeftShoulder,
	landmark.RightShoulder,
	landmark.LeftWrist,
	landmark.LeftHip,
	landmark.RightHip,
	landmark.LeftAnkle,
}

// Required returns the landmark names needed by Compute.
func Required() []landmark.Name {
	out := make([]landmark.Name, len(required))
	copy(out, required)
	return out
}

// Compute derives a Set from pixel landmarks and a calibration state.
// It returns either all six measurements or an error.
func Compute(px *landmark.Pixels, cal calibration.State) (Set, error) {
	if !cal.Valid() {
		return Set{}, ErrNotCalibrated
	}
	if px == nil {
		return Set{}, fmt.Errorf("no body detected: %w", ErrMissingLandmarks)
	}
	if missing := px.Missing(required...); len(missing) > 0 {
		parts := make([]string, len(missing))
		for i, n := range missing {
			parts[i] = n.String()
		}
		return Set{}, fmt.Errorf("%s: %w", strings.Join(parts, ", "), ErrMissingLandmarks)
	}

	ls, _ := px.Point(landmark.LeftShoulder)
	rs, _ := px.Point(landmark.RightShoulder)
	lw, _ := px.Point(landmark.LeftWrist)
	lh, _ := px.Point(landmark.LeftHip)
	rh, _ := px.Point(landmark.RightHip)
	la, _ := px.Point(landmark.LeftAnkle)

	cm := func(a, b geometry.Point) float64 {
		return geometry.Round1(geometry.Distance(a, b) * cal.ScaleFactor)
	}

	return Set{
		ShoulderWidth: cm(ls, rs),
		LeftArmLength: cm(ls, lw),
		TorsoLength:   cm(ls, lh),
		Inseam:        cm(lh, la),
		HipWidth:      cm(lh, rh),
		LegLength:     cm(lh, la),
	}, nil
}
