package announce_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	announce "github.com/kinesia/poseloop/internal/domain/announce"
	"github.com/kinesia/poseloop/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeSpeaker records utterances and can be told to fail.
type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return f.err
}

func (f *fakeSpeaker) Cancel() {}

func (f *fakeSpeaker) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSpeaker) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestCooldownTracker(t *testing.T) {
	Convey("Given a cooldown tracker with a 2000ms window", t, func() {
		c := announce.NewCooldown(2000 * time.Millisecond)
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		Convey("When the same category is offered twice within the window", func() {
			first := c.Allow("arm_angle", base)
			second := c.Allow("arm_angle", base.Add(1999*time.Millisecond))

			Convey("Then the second is rejected", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
			})
		})

		Convey("When offers are 2001ms apart", func() {
			first := c.Allow("arm_angle", base)
			second := c.Allow("arm_angle", base.Add(2001*time.Millisecond))

			Convey("Then both are accepted", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeTrue)
			})
		})

		Convey("When different categories are offered back to back", func() {
			first := c.Allow("arm_angle", base)
			second := c.Allow("knee_bend", base)

			Convey("Then both are accepted", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeTrue)
			})
		})

		Convey("When the tracker is reset", func() {
			c.Allow("arm_angle", base)
			c.Reset()

			Convey("Then the category is admissible again immediately", func() {
				So(c.Allow("arm_angle", base), ShouldBeTrue)
			})
		})
	})
}

func TestQueueAdmission(t *testing.T) {
	Convey("Given a queue with a fake clock and no drain worker", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		speaker := &fakeSpeaker{}
		q := announce.NewQueue(speaker, announce.WithClock(clock.Now))
		ctx := context.Background()

		Convey("When the same category arrives twice inside the cooldown", func() {
			first := q.Enqueue(ctx, "arm_angle", "", 1)
			clock.Advance(500 * time.Millisecond)
			second := q.Enqueue(ctx, "arm_angle", "", 2)

			Convey("Then the second is suppressed even for a different subject", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the category returns after the cooldown", func() {
			q.Enqueue(ctx, "arm_angle", "", 1)
			clock.Advance(2001 * time.Millisecond)

			Convey("Then it is accepted", func() {
				So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the subsystem is disabled", func() {
			q.SetEnabled(false)

			Convey("Then every enqueue is rejected", func() {
				So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeFalse)
				So(q.Len(), ShouldEqual, 0)
			})

			Convey("Then re-enabling admits entries again", func() {
				q.SetEnabled(true)
				So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
			})
		})
	})
}

func TestQueueEviction(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		q := announce.NewQueue(&fakeSpeaker{},
			announce.WithCapacity(2),
			announce.WithClock(clock.Now),
		)
		ctx := context.Background()

		Convey("When a third distinct category arrives while full", func() {
			So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
			So(q.Enqueue(ctx, "knee_bend", "", 1), ShouldBeTrue)
			So(q.Enqueue(ctx, "back_straight", "", 1), ShouldBeTrue)

			Convey("Then the oldest pending entry is evicted", func() {
				So(q.Len(), ShouldEqual, 2)
			})
		})
	})
}

func TestQueueDrain(t *testing.T) {
	Convey("Given a started queue with fast pacing", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		speaker := &fakeSpeaker{}
		q := announce.NewQueue(speaker,
			announce.WithPacing(time.Millisecond),
			announce.WithClock(clock.Now),
		)
		ctx, cancel := context.WithCancel(context.Background())
		q.Start(ctx)
		Reset(func() {
			cancel()
			q.Close()
		})

		Convey("When two entries with known categories are enqueued", func() {
			So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
			So(q.Enqueue(ctx, "knee_bend", "", 1), ShouldBeTrue)

			Convey("Then both are spoken, in order, with registered phrasing", func() {
				So(waitFor(func() bool { return len(speaker.texts()) == 2 }), ShouldBeTrue)
				So(speaker.texts()[0], ShouldEqual, "Watch your arm angle")
				So(speaker.texts()[1], ShouldEqual, "Bend your knees more")
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a category has no registered phrasing", func() {
			So(q.Enqueue(ctx, "wrist_rotation", "rotate your wrist outward", 1), ShouldBeTrue)

			Convey("Then the server-provided message is used", func() {
				So(waitFor(func() bool { return len(speaker.texts()) == 1 }), ShouldBeTrue)
				So(speaker.texts()[0], ShouldEqual, "rotate your wrist outward")
			})
		})

		Convey("When a category has neither phrasing nor message", func() {
			So(q.Enqueue(ctx, "elbow_flare", "", 1), ShouldBeTrue)

			Convey("Then the generic fallback is spoken", func() {
				So(waitFor(func() bool { return len(speaker.texts()) == 1 }), ShouldBeTrue)
				So(speaker.texts()[0], ShouldEqual, "error in elbow_flare")
			})
		})

		Convey("When synthesis fails", func() {
			speaker.setErr(errors.New("engine unavailable"))
			So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
			So(q.Enqueue(ctx, "knee_bend", "", 1), ShouldBeTrue)

			Convey("Then the worker still advances through the backlog", func() {
				So(waitFor(func() bool { return len(speaker.texts()) == 2 }), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestQueueDrainLifetime(t *testing.T) {
	Convey("Given a queue started under a per-session context", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		speaker := &fakeSpeaker{}
		q := announce.NewQueue(speaker,
			announce.WithPacing(time.Millisecond),
			announce.WithClock(clock.Now),
		)
		Reset(q.Close)

		sessionCtx, cancel := context.WithCancel(context.Background())
		q.Start(sessionCtx)

		Convey("When that session's context is cancelled", func() {
			So(q.Enqueue(sessionCtx, "arm_angle", "", 1), ShouldBeTrue)
			So(waitFor(func() bool { return len(speaker.texts()) == 1 }), ShouldBeTrue)

			q.Stop()
			cancel()

			Convey("Then the worker still drains the next session's entries", func() {
				clock.Advance(5 * time.Second)
				So(q.Enqueue(context.Background(), "knee_bend", "", 1), ShouldBeTrue)
				So(waitFor(func() bool { return len(speaker.texts()) == 2 }), ShouldBeTrue)
				So(speaker.texts()[1], ShouldEqual, "Bend your knees more")
			})
		})

		Convey("When Start is called again for a later session", func() {
			q.Start(context.Background())

			Convey("Then a single worker drains, each entry spoken once", func() {
				So(q.Enqueue(context.Background(), "arm_angle", "", 1), ShouldBeTrue)
				So(waitFor(func() bool { return len(speaker.texts()) == 1 }), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				So(speaker.texts(), ShouldHaveLength, 1)
			})
		})

		Convey("When the queue is closed", func() {
			q.Close()

			Convey("Then new entries are rejected", func() {
				So(q.Enqueue(context.Background(), "arm_angle", "", 1), ShouldBeFalse)
				So(q.Len(), ShouldEqual, 0)
			})

			Convey("Then direct speech fails with the closed sentinel", func() {
				err := q.Speak(context.Background(), "session complete")
				So(errors.Is(err, announce.ErrQueueClosed), ShouldBeTrue)
			})
		})
	})
}

func TestQueueStop(t *testing.T) {
	Convey("Given a queue with pending entries", t, func() {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		q := announce.NewQueue(&fakeSpeaker{}, announce.WithClock(clock.Now))
		ctx := context.Background()
		q.Enqueue(ctx, "arm_angle", "", 1)
		q.Enqueue(ctx, "knee_bend", "", 1)

		Convey("When stopped", func() {
			q.Stop()

			Convey("Then the backlog is emptied immediately", func() {
				So(q.Len(), ShouldEqual, 0)
			})

			Convey("Then cooldown history is forgotten", func() {
				So(q.Enqueue(ctx, "arm_angle", "", 1), ShouldBeTrue)
			})
		})
	})
}

func TestLoggedSpeakerCancel(t *testing.T) {
	Convey("Given a logged speaker mid-utterance", t, func() {
		speaker := announce.NewLoggedSpeaker(announce.WithUtteranceRate(50 * time.Millisecond))

		errCh := make(chan error, 1)
		go func() {
			errCh <- speaker.Speak(context.Background(), "a fairly long command phrase")
		}()
		time.Sleep(20 * time.Millisecond)

		Convey("When cancelled", func() {
			speaker.Cancel()

			Convey("Then the utterance aborts with the cancel sentinel", func() {
				select {
				case err := <-errCh:
					So(errors.Is(err, announce.ErrSpeechCancelled), ShouldBeTrue)
				case <-time.After(2 * time.Second):
					So("timed out waiting for cancel", ShouldBeEmpty)
				}
			})
		})
	})
}
