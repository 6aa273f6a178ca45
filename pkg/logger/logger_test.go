package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get and Named should return usable loggers", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("parser"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized with an unknown format", func() {
			err := InitWithOptions(Options{Format: "xml"})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(Options{Writer: &buf, Format: FormatJSON}), ShouldBeNil)
		_ = SetLevelString("info")

		Convey("When logging with fields through a named logger", func() {
			Named("pipeline").Info(context.Background(), "dataset loaded",
				String("dataset", "abc"),
				Int("rows", 3),
				Error(errors.New("boom")),
			)

			Convey("Then the record should carry the message, fields and component", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "dataset loaded")
				So(rec["component"], ShouldEqual, "pipeline")
				So(rec["dataset"], ShouldEqual, "abc")
				So(rec["rows"], ShouldEqual, float64(3))
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(context.Background(), "hidden")
			_ = SetLevelString("info")

			Convey("Then info records should be dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warn", "warning", " error "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}

func TestNopLogger(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := NewNop()

		Convey("Then logging should not panic", func() {
			So(func() {
				l.Error(context.Background(), "ignored", Bool("ok", false))
				l.Named("x").Debug(context.Background(), "ignored")
			}, ShouldNotPanic)
		})
	})
}
