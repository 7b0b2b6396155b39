package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given logger initialization", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			defer func() { _ = Sync() }()

			Convey("Then a global logger is available", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
			})
		})

		Convey("When an unknown format is requested", func() {
			err := Init(WithFormat("xml"))

			Convey("Then Init fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "xml")
			})
		})
	})
}

func TestLoggerFormats(t *testing.T) {
	ctx := context.Background()

	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("JSON"), WithWriter(&buf)), ShouldBeNil)

		Get().Info(ctx, "measured",
			String("user", "Alice"),
			Int("records", 2),
			Float64("scale", 0.155),
			Bool("calibrated", true),
			Duration("took", 3*time.Millisecond),
			Error(errors.New("boom")),
		)

		Convey("Then each field is a JSON attribute", func() {
			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "measured")
			So(line["user"], ShouldEqual, "Alice")
			So(line["records"], ShouldEqual, float64(2))
			So(line["calibrated"], ShouldEqual, true)
			So(line["source"], ShouldContainSubstring, "logger_test.go")
		})
	})

	Convey("Given a text logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)

		Named("api").Info(ctx, "hello", String("k", "v"))

		Convey("Then the group prefixes attributes", func() {
			So(buf.String(), ShouldContainSubstring, "msg=hello")
			So(buf.String(), ShouldContainSubstring, "api.k=v")
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	ctx := context.Background()

	Convey("Given a logger at warn level", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		So(SetLevelString("WARNING"), ShouldBeNil)

		Get().Info(ctx, "dropped")
		Get().Warn(ctx, "kept")

		Convey("Then lower levels are filtered", func() {
			So(buf.String(), ShouldNotContainSubstring, "dropped")
			So(buf.String(), ShouldContainSubstring, "kept")
		})

		Convey("And an unknown level is rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})

		Convey("And the empty level means info", func() {
			So(SetLevelString(""), ShouldBeNil)
			Get().Info(ctx, "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
		})
	})
}

func TestLoggerFile(t *testing.T) {
	Convey("Given a logger with a file sink", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "logs", "tailor.log")
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFile(path)), ShouldBeNil)

		Get().Error(context.Background(), "saved to disk")
		So(Sync(), ShouldBeNil)

		Convey("Then the file and the writer both receive the entry", func() {
			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(strings.Contains(string(data), "saved to disk"), ShouldBeTrue)
			So(buf.String(), ShouldContainSubstring, "saved to disk")
		})

		Convey("And a second Sync is a no-op", func() {
			So(Sync(), ShouldBeNil)
		})
	})
}
