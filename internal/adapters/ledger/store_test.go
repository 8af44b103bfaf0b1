package ledger_test

import (
	"context"
	"errors"
	"testing"

	ledger "github.com/kinesia/poseloop/internal/adapters/ledger"
	"github.com/kinesia/poseloop/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryStore(t *testing.T) {
	Convey("Given an empty session store", t, func() {
		store := ledger.NewInMemoryStore()
		ctx := context.Background()

		Convey("When a session is registered", func() {
			err := store.Put(ctx, model.Session{
				ID:     "sess-1",
				Mode:   model.ModeTesting,
				Status: model.StatusActive,
				Score:  100,
			})
			So(err, ShouldBeNil)

			Convey("Then it can be read back", func() {
				session, err := store.Get(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(session.Status, ShouldEqual, model.StatusActive)
				So(session.Score, ShouldEqual, 100)
			})

			Convey("And a partial update only touches provided fields", func() {
				score := 85.0
				totalErrors := 3
				updated, err := store.Update(ctx, "sess-1", ledger.Update{
					Score:       &score,
					TotalErrors: &totalErrors,
				})
				So(err, ShouldBeNil)
				So(updated.Score, ShouldEqual, 85)
				So(updated.TotalErrors, ShouldEqual, 3)
				So(updated.Status, ShouldEqual, model.StatusActive)
				So(updated.Mode, ShouldEqual, model.ModeTesting)
			})

			Convey("And error events accumulate into history", func() {
				_, err := store.Update(ctx, "sess-1", ledger.Update{
					Errors: []model.ErrorEvent{
						{Category: "arm_angle", SubjectID: 1, SequenceIndex: 0},
					},
				})
				So(err, ShouldBeNil)
				_, err = store.Update(ctx, "sess-1", ledger.Update{
					Errors: []model.ErrorEvent{
						{Category: "knee_bend", SubjectID: 1, SequenceIndex: 1},
					},
				})
				So(err, ShouldBeNil)

				history, err := store.Errors(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(history, ShouldHaveLength, 2)
				So(history[0].Category, ShouldEqual, "arm_angle")
				So(history[1].Category, ShouldEqual, "knee_bend")
			})
		})

		Convey("When reading an unknown session", func() {
			_, err := store.Get(ctx, "missing")

			Convey("Then it fails with the not-found sentinel", func() {
				So(errors.Is(err, ledger.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When updating an unknown session", func() {
			_, err := store.Update(ctx, "missing", ledger.Update{})

			Convey("Then it fails with the not-found sentinel", func() {
				So(errors.Is(err, ledger.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
