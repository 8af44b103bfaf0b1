package announce

import (
	"time"

	"github.com/kinesia/poseloop/pkg/logger"
)

// Option applies a configuration option to the Queue.
type Option func(*Queue)

// WithCooldownWindow sets the per-category suppression window.
func WithCooldownWindow(window time.Duration) Option {
	return func(q *Queue) {
		if window > 0 {
			q.cooldownWindow = window
		}
	}
}

// WithCapacity bounds the pending backlog.
func WithCapacity(capacity int) Option {
	return func(q *Queue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithPacing sets the pause between consecutive announcements.
func WithPacing(pace time.Duration) Option {
	return func(q *Queue) {
		if pace > 0 {
			q.pace = pace
		}
	}
}

// WithPhrase registers spoken phrasing for an error category, overriding
// the built-in table.
func WithPhrase(category, text string) Option {
	return func(q *Queue) {
		if category != "" && text != "" {
			q.phrases[category] = text
		}
	}
}

// WithClock sets the time source used for cooldown decisions.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(log logger.Logger) Option {
	return func(q *Queue) {
		if log != nil {
			q.logger = log
		}
	}
}
