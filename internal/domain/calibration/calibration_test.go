package calibration_test

import (
	"errors"
	"testing"

	"github.com/okian/tailor/internal/domain/calibration"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalibrate(t *testing.T) {
	Convey("Given a frame 800 pixels wide", t, func() {
		state, err := calibration.Calibrate(800)

		Convey("Then the scale factor follows the face width heuristic", func() {
			So(err, ShouldBeNil)
			So(state.Calibrated, ShouldBeTrue)
			So(state.ScaleFactor, ShouldAlmostEqual, 0.155, 1e-12)
			So(state.Valid(), ShouldBeTrue)
		})

		Convey("And calibrating again yields the same state", func() {
			again, err := calibration.Calibrate(800)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, state)
		})
	})

	Convey("Given a common webcam width", t, func() {
		state, err := calibration.Calibrate(1280)
		So(err, ShouldBeNil)
		So(state.ScaleFactor, ShouldAlmostEqual, 15.5/160, 1e-12)
	})

	Convey("Given a non-positive frame width", t, func() {
		for _, w := range []int{0, -1, -800} {
			state, err := calibration.Calibrate(w)

			So(err, ShouldNotBeNil)
			So(errors.Is(err, calibration.ErrInvalidInput), ShouldBeTrue)
			So(state, ShouldResemble, calibration.State{})
			So(state.Valid(), ShouldBeFalse)
		}
	})
}
