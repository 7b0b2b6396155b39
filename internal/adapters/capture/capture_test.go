package capture_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/okian/tailor/internal/adapters/capture"
	. "github.com/smartystreets/goconvey/convey"
	"gocv.io/x/gocv"
)

func encodedTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}

func TestDecodeBase64(t *testing.T) {
	Convey("Given an encoded 64x48 image", t, func() {
		raw := encodedTestImage(t, 64, 48)

		Convey("When decoding plain base64", func() {
			frame, err := capture.DecodeBase64(base64.StdEncoding.EncodeToString(raw))
			So(err, ShouldBeNil)
			defer frame.Close()

			Convey("Then the frame keeps the image dimensions", func() {
				So(frame.Width(), ShouldEqual, 64)
				So(frame.Height(), ShouldEqual, 48)
			})

			Convey("And it can be re-encoded as JPEG", func() {
				jpg, err := frame.JPEG()
				So(err, ShouldBeNil)
				So(len(jpg), ShouldBeGreaterThan, 2)
				So(jpg[0], ShouldEqual, 0xFF)
				So(jpg[1], ShouldEqual, 0xD8)
			})
		})

		Convey("When decoding a data URL", func() {
			frame, err := capture.DecodeBase64("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
			So(err, ShouldBeNil)
			So(frame.Width(), ShouldEqual, 64)
			So(frame.Close(), ShouldBeNil)
			So(frame.Close(), ShouldBeNil)
		})
	})

	Convey("Given malformed input", t, func() {
		Convey("When the base64 is invalid", func() {
			_, err := capture.DecodeBase64("***")
			So(errors.Is(err, capture.ErrDecode), ShouldBeTrue)
		})

		Convey("When the bytes are not an image", func() {
			_, err := capture.DecodeImage([]byte("definitely not an image"))
			So(errors.Is(err, capture.ErrDecode), ShouldBeTrue)
		})

		Convey("When the input is empty", func() {
			_, err := capture.DecodeImage(nil)
			So(errors.Is(err, capture.ErrDecode), ShouldBeTrue)
		})
	})
}

func TestCameraCancelled(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then a nil camera is never touched", func() {
			var c capture.Camera
			_, err := c.Next(ctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
