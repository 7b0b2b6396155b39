package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	service "github.com/okian/tailor/internal/app"
	"github.com/okian/tailor/internal/domain/dedupe"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func startedService(opts ...service.Option) (*service.Service, *memPersister) {
	p := newMemPersister()
	base := []service.Option{
		service.WithDetector(&fakeDetector{set: standingPose()}),
		service.WithPersister(p),
		service.WithSessionTTL(0),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc, p
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without collaborators", t, func() {
		svc := service.New()

		Convey("Then Start reports the missing dependency", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, service.ErrMissingDependency), ShouldBeTrue)
		})

		Convey("And sessions are unavailable", func() {
			_, err := svc.DefaultSession()
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
			_, err = svc.NewSession(ctx)
			So(errors.Is(err, service.ErrServiceNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		src := &fakeSource{}
		svc, p := startedService(service.WithFrameSource(src))

		Convey("When starting twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("When stopping", func() {
			svc.Stop()

			Convey("Then closable collaborators are released", func() {
				So(src.closed, ShouldBeTrue)
				So(p.closed, ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is a no-op", func() {
				svc.Stop()
			})
		})
	})
}

func TestServiceSessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc, _ := startedService(service.WithMaxSessions(2))
		defer svc.Stop()

		Convey("When no session id is given", func() {
			a, err := svc.Session("")
			So(err, ShouldBeNil)
			b, err := svc.DefaultSession()
			So(err, ShouldBeNil)

			Convey("Then the default session is shared", func() {
				So(a, ShouldEqual, b)
				So(a.ID(), ShouldEqual, "")
			})
		})

		Convey("When opening sessions", func() {
			id1, err := svc.NewSession(ctx)
			So(err, ShouldBeNil)
			id2, err := svc.NewSession(ctx)
			So(err, ShouldBeNil)

			Convey("Then each has its own calibration", func() {
				s1, err := svc.Session(id1)
				So(err, ShouldBeNil)
				s2, err := svc.Session(id2)
				So(err, ShouldBeNil)
				So(id1, ShouldNotEqual, id2)

				_, err = s1.Calibrate(ctx, &fakeFrame{w: 800, h: 600})
				So(err, ShouldBeNil)
				So(s1.Calibration().Calibrated, ShouldBeTrue)
				So(s2.Calibration().Calibrated, ShouldBeFalse)
			})

			Convey("And the limit is enforced", func() {
				_, err := svc.NewSession(ctx)
				So(errors.Is(err, service.ErrTooManySessions), ShouldBeTrue)
			})

			Convey("And a closed session is gone", func() {
				So(svc.CloseSession(ctx, id1), ShouldBeNil)
				_, err := svc.Session(id1)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.CloseSession(ctx, id1), service.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When asking for an unknown session", func() {
			_, err := svc.Session("nope")
			So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceCaptureAndHistory(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	Convey("Given a service with one buffered frame", t, func() {
		frame := &fakeFrame{w: 800, h: 1000}
		svc, p := startedService(
			service.WithFrameSource(&fakeSource{frames: []model.Frame{frame}}),
			service.WithClock(func() time.Time { return at }),
		)
		defer svc.Stop()

		Convey("When the frame is captured, measured and saved", func() {
			f, err := svc.CaptureFrame(ctx)
			So(err, ShouldBeNil)
			sess, err := svc.DefaultSession()
			So(err, ShouldBeNil)
			_, err = sess.Measure(ctx, f)
			So(err, ShouldBeNil)
			rec, err := sess.SaveCurrent(ctx, "Alice")
			So(err, ShouldBeNil)

			Convey("Then the record is stamped by the service clock", func() {
				So(rec.Timestamp, ShouldEqual, "2024-06-01 12:00:00")
				So(len(p.stored("Alice")), ShouldEqual, 1)
			})

			Convey("And the history is readable", func() {
				recs, err := svc.History(ctx, "Alice")
				So(err, ShouldBeNil)
				So(recs, ShouldResemble, []model.Record{rec})
			})

			Convey("And stats reflect the session", func() {
				stats := svc.GetStats()
				So(stats["calibrated"], ShouldEqual, true)
				So(stats["hasMeasurement"], ShouldEqual, true)
				So(stats["users"], ShouldEqual, 1)
			})
		})

		Convey("When the source is exhausted", func() {
			_, _ = svc.CaptureFrame(ctx)
			_, err := svc.CaptureFrame(ctx)
			So(errors.Is(err, model.ErrNoFrame), ShouldBeTrue)
		})
	})

	Convey("Given a service without a frame source", t, func() {
		svc, _ := startedService()
		defer svc.Stop()

		_, err := svc.CaptureFrame(ctx)
		So(errors.Is(err, model.ErrNoFrame), ShouldBeTrue)
	})
}

func TestServiceDedupe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that has not started", t, func() {
		svc := service.New()

		Convey("Then request ids are not tracked and nothing panics", func() {
			So(svc.Claim(ctx, "req-0"), ShouldEqual, dedupe.StateNew)
			So(func() { svc.Commit(ctx, "req-0") }, ShouldNotPanic)
			So(func() { svc.Unrecord(ctx, "req-0") }, ShouldNotPanic)
			So(svc.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a started service", t, func() {
		svc, _ := startedService()
		defer svc.Stop()

		Convey("When a save request id is claimed twice", func() {
			first := svc.Claim(ctx, "req-1")
			second := svc.Claim(ctx, "req-1")

			Convey("Then the second sees it in flight", func() {
				So(first, ShouldEqual, dedupe.StateNew)
				So(second, ShouldEqual, dedupe.StateInFlight)
				So(svc.Size(), ShouldEqual, 1)
			})

			Convey("And after commit it is a duplicate", func() {
				svc.Commit(ctx, "req-1")
				So(svc.Claim(ctx, "req-1"), ShouldEqual, dedupe.StateDone)
			})

			Convey("And unrecording allows a retry", func() {
				svc.Unrecord(ctx, "req-1")
				So(svc.Claim(ctx, "req-1"), ShouldEqual, dedupe.StateNew)
			})
		})
	})
}
