package announce

import (
	"context"
	"sync"
	"time"

	"github.com/kinesia/poseloop/pkg/logger"
)

// Speaker synthesizes one utterance at a time. Implementations wrap the
// host platform's TTS engine; LoggedSpeaker is the built-in stand-in.
type Speaker interface {
	// Speak synthesizes text and blocks until the utterance completes,
	// fails, or is cancelled.
	Speak(ctx context.Context, text string) error

	// Cancel aborts the in-progress utterance, if any. Safe to call when
	// nothing is playing.
	Cancel()
}

const defaultUtteranceRate = 45 * time.Millisecond // per character

// LoggedSpeaker is a Speaker that logs utterances and simulates their
// duration proportionally to text length. It is the default when no real
// TTS engine is attached, and the cancellation seam for tests.
type LoggedSpeaker struct {
	mu      sync.Mutex
	cancel  chan struct{}
	perChar time.Duration
	logger  logger.Logger
}

// LoggedSpeakerOption applies a configuration option to the LoggedSpeaker.
type LoggedSpeakerOption func(*LoggedSpeaker)

// WithUtteranceRate sets the simulated per-character speaking duration.
func WithUtteranceRate(perChar time.Duration) LoggedSpeakerOption {
	return func(s *LoggedSpeaker) {
		if perChar > 0 {
			s.perChar = perChar
		}
	}
}

// WithSpeakerLogger sets a custom logger for the speaker.
func WithSpeakerLogger(log logger.Logger) LoggedSpeakerOption {
	return func(s *LoggedSpeaker) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewLoggedSpeaker creates a logging speaker.
func NewLoggedSpeaker(opts ...LoggedSpeakerOption) *LoggedSpeaker {
	s := &LoggedSpeaker{
		perChar: defaultUtteranceRate,
		logger:  logger.Get().Named("speaker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak logs the utterance and blocks for its simulated duration.
func (s *LoggedSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	cancel := make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "speaking", logger.String("text", text))

	select {
	case <-time.After(time.Duration(len(text)) * s.perChar):
		return nil
	case <-cancel:
		return ErrSpeechCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts the in-progress utterance.
func (s *LoggedSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
}
