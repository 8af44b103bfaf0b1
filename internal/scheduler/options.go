package scheduler

import (
	"time"

	"github.com/kinesia/poseloop/internal/domain/overlay"
	"github.com/kinesia/poseloop/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets the capture timer interval.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithStartScore sets the score a subject starts from before the endpoint
// reports one.
func WithStartScore(score float64) Option {
	return func(s *Scheduler) {
		s.startScore = score
	}
}

// WithScoreFloor sets the floor merged scores are clamped to.
func WithScoreFloor(floor float64) Option {
	return func(s *Scheduler) {
		s.scoreFloor = floor
	}
}

// WithAnnouncer sets the announcement sink for newly observed errors.
func WithAnnouncer(a Announcer) Option {
	return func(s *Scheduler) {
		if a != nil {
			s.announcer = a
		}
	}
}

// WithRenderer sets the overlay sink for keypoint snapshots.
func WithRenderer(r Renderer) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLedger sets the session store updated after each processed capture.
func WithLedger(l Ledger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithDisplaySize sets the provider for the current display-surface size,
// consulted on every render so resizes take effect immediately.
func WithDisplaySize(size func() overlay.Size) Option {
	return func(s *Scheduler) {
		if size != nil {
			s.displaySize = size
		}
	}
}

// WithOnTerminal sets the callback fired once when the endpoint signals a
// terminal condition.
func WithOnTerminal(fn func()) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.onTerminal = fn
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(log logger.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.logger = log
		}
	}
}
