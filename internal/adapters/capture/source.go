// Package capture abstracts the live video source the scheduler samples.
package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kinesia/poseloop/internal/domain/model"
)

// Source provides single still-frame captures from a live video source.
type Source interface {
	// Ready reports whether the source can currently produce a frame.
	Ready() bool

	// Capture grabs one still frame. It must not block past ctx.
	Capture(ctx context.Context) (model.Frame, error)
}

// Default synthetic source dimensions.
const (
	defaultSourceWidth  = 640
	defaultSourceHeight = 480
)

// SyntheticOption applies a configuration option to the SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithFrameSize sets the synthetic frame dimensions.
func WithFrameSize(width, height int) SyntheticOption {
	return func(s *SyntheticSource) {
		if width > 0 && height > 0 {
			s.width = width
			s.height = height
		}
	}
}

// WithWarmup delays readiness by the given duration after creation,
// mimicking a camera that needs time to open.
func WithWarmup(warmup time.Duration) SyntheticOption {
	return func(s *SyntheticSource) {
		if warmup > 0 {
			s.readyAt = time.Now().Add(warmup)
		}
	}
}

// SyntheticSource generates deterministic placeholder frames. It stands in
// for a real camera in demos and tests.
type SyntheticSource struct {
	width   int
	height  int
	readyAt time.Time
	seq     atomic.Int64
}

// NewSyntheticSource creates a synthetic frame source.
func NewSyntheticSource(opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		width:  defaultSourceWidth,
		height: defaultSourceHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the warmup period has elapsed.
func (s *SyntheticSource) Ready() bool {
	return !time.Now().Before(s.readyAt)
}

// Capture produces one placeholder frame tagged with a fresh capture id.
func (s *SyntheticSource) Capture(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}
	if !s.Ready() {
		return model.Frame{}, ErrSourceNotReady
	}

	seq := s.seq.Add(1)
	// A tiny stand-in payload; real sources produce encoded image bytes.
	image := []byte{0xff, 0xd8, byte(seq), byte(seq >> 8), 0xff, 0xd9}
	return model.Frame{
		ID:            uuid.NewString(),
		SequenceIndex: seq,
		CapturedAt:    time.Now(),
		Image:         image,
		Width:         s.width,
		Height:        s.height,
	}, nil
}
