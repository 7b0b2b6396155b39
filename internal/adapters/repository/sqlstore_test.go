package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/tailor/internal/adapters/repository"
	"github.com/okian/tailor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSQLStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory sqlite store", t, func() {
		s, err := repository.OpenSQLStore(ctx, "sqlite", ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = s.Close() }()

		Convey("When loading an unknown user", func() {
			got, err := s.Load(ctx, "Alice")
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("When writing and reloading a history", func() {
			records := sampleRecords()
			So(s.Write(ctx, "Alice", records), ShouldBeNil)
			got, err := s.Load(ctx, "Alice")

			Convey("Then it round-trips field-exactly", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, records)
			})

			Convey("And a second write upserts the same row", func() {
				So(s.Write(ctx, "Alice", records[:1]), ShouldBeNil)
				got, err := s.Load(ctx, "Alice")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []model.Record{records[0]})

				users, err := s.Users(ctx)
				So(err, ShouldBeNil)
				So(users, ShouldResemble, []string{"Alice"})
			})
		})

		Convey("When several users are written", func() {
			So(s.Write(ctx, "Bob", sampleRecords()), ShouldBeNil)
			So(s.Write(ctx, "Alice", sampleRecords()), ShouldBeNil)

			users, err := s.Users(ctx)
			So(err, ShouldBeNil)
			So(users, ShouldResemble, []string{"Alice", "Bob"})
		})
	})

	Convey("Given a custom table name", t, func() {
		s, err := repository.OpenSQLStore(ctx, "sqlite", ":memory:", repository.WithTable("tailor_history"))
		So(err, ShouldBeNil)
		defer func() { _ = s.Close() }()

		So(s.Write(ctx, "Guest", sampleRecords()), ShouldBeNil)
		got, err := s.Load(ctx, "Guest")
		So(err, ShouldBeNil)
		So(len(got), ShouldEqual, 2)
	})

	Convey("Given an unsupported driver", t, func() {
		_, err := repository.OpenSQLStore(ctx, "oracle", "dsn")
		So(errors.Is(err, repository.ErrDriver), ShouldBeTrue)
	})
}
