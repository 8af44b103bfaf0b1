// Package scheduler runs the capture/submit control loop: on a fixed timer
// it captures one still frame and, when no submission is outstanding, ships
// it to the scoring endpoint, merging each response into per-subject state
// and fanning it out to the overlay renderer, the announcement queue, and
// the session ledger.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinesia/poseloop/internal/adapters/capture"
	"github.com/kinesia/poseloop/internal/adapters/ledger"
	"github.com/kinesia/poseloop/internal/adapters/scoring"
	"github.com/kinesia/poseloop/internal/domain/codec"
	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/internal/domain/overlay"
	"github.com/kinesia/poseloop/pkg/logger"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	defaultTickInterval = 120 * time.Millisecond
	defaultStartScore   = 100
	defaultScoreFloor   = 0
)

// Tick skip reasons recorded in metrics.
const (
	skipInactive       = "inactive"
	skipSourceNotReady = "source_not_ready"
	skipInFlight       = "in_flight"
	skipCaptureFailed  = "capture_failed"
)

// Source provides single still-frame captures.
type Source = capture.Source

// Submitter ships one frame to the scoring endpoint.
type Submitter interface {
	Submit(ctx context.Context, req scoring.Request) (codec.Result, error)
}

// Announcer accepts newly observed errors for spoken announcement.
type Announcer interface {
	Enqueue(ctx context.Context, category, text string, subjectID int) bool
}

// Renderer accepts the full keypoint snapshot after each merge.
type Renderer interface {
	Render(ctx context.Context, keypointsBySubject map[int][]model.Keypoint, display, source overlay.Size)
}

// Ledger receives session updates after each processed capture.
type Ledger interface {
	Update(ctx context.Context, id string, up ledger.Update) (model.Session, error)
}

// Snapshot is the scheduler's externally readable running state.
type Snapshot struct {
	Score         float64
	TotalErrors   int
	FrameSequence int64
	InFlight      bool
}

// Scheduler is the capture/submit control loop. It exclusively owns the
// in-flight gate and the per-subject score/error maps for the session
// duration.
type Scheduler struct {
	source    Source
	client    Submitter
	announcer Announcer
	renderer  Renderer
	ledger    Ledger

	tickInterval time.Duration
	startScore   float64
	scoreFloor   float64
	displaySize  func() overlay.Size
	onTerminal   func()

	mu        sync.Mutex
	subjects  map[int]*model.Subject
	sessionID string
	mode      model.SessionMode

	gate     Gate
	frameSeq atomic.Int64
	active   atomic.Bool

	terminalOnce sync.Once
	stopOnce     sync.Once
	stopCh       chan struct{}
	done         chan struct{}

	logger logger.Logger
}

// New creates a scheduler sampling source and submitting through client.
func New(source Source, client Submitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:       source,
		client:       client,
		tickInterval: defaultTickInterval,
		startScore:   defaultStartScore,
		scoreFloor:   defaultScoreFloor,
		displaySize:  func() overlay.Size { return overlay.Size{Width: 640, Height: 480} },
		logger:       logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the capture timer for a session. It returns ErrAlreadyRunning
// if a session loop is already live.
func (s *Scheduler) Start(ctx context.Context, sessionID string, mode model.SessionMode) error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.mu.Lock()
	s.subjects = make(map[int]*model.Subject)
	s.sessionID = sessionID
	s.mode = mode
	s.mu.Unlock()

	s.frameSeq.Store(0)
	s.terminalOnce = sync.Once{}
	s.stopOnce = sync.Once{}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info(ctx, "capture loop started",
		logger.String("sessionID", sessionID),
		logger.String("mode", string(mode)),
		logger.Duration("tick", s.tickInterval),
	)
	return nil
}

// Stop disarms the capture timer. It does not wait for an in-flight
// submission; a response resolving after stop is silently discarded.
func (s *Scheduler) Stop() {
	s.halt()
}

// Done returns a channel closed when the loop goroutine has exited. Nil
// before the first Start.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// InFlight reports whether a submission is currently outstanding.
func (s *Scheduler) InFlight() bool {
	return s.gate.Held()
}

// Running reports whether the capture loop is live.
func (s *Scheduler) Running() bool {
	return s.active.Load()
}

// Snapshot returns the current ledger-visible aggregates.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	score, totalErrors := s.aggregatesLocked()
	s.mu.Unlock()
	return Snapshot{
		Score:         score,
		TotalErrors:   totalErrors,
		FrameSequence: s.frameSeq.Load(),
		InFlight:      s.gate.Held(),
	}
}

func (s *Scheduler) halt() {
	s.active.Store(false)
	s.stopOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
		}
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.halt()
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.onTick(ctx)
		}
	}
}

// onTick fires once per timer tick. A tick whose preconditions fail is a
// no-op: it is never queued for later.
func (s *Scheduler) onTick(ctx context.Context) {
	metrics.RecordTickFired()

	if !s.active.Load() {
		metrics.RecordTickSkipped(skipInactive)
		return
	}
	if !s.source.Ready() {
		metrics.RecordTickSkipped(skipSourceNotReady)
		return
	}
	if !s.gate.TryAcquire() {
		metrics.RecordTickSkipped(skipInFlight)
		return
	}

	frame, err := s.source.Capture(ctx)
	if err != nil {
		s.gate.Release()
		metrics.RecordTickSkipped(skipCaptureFailed)
		s.logger.Debug(ctx, "capture failed", logger.Error(err))
		return
	}

	go s.submit(ctx, frame)
}

// submit ships one frame. The gate is released on every exit path.
func (s *Scheduler) submit(ctx context.Context, frame model.Frame) {
	defer s.gate.Release()
	defer metrics.UpdateInFlight(false)
	metrics.UpdateInFlight(true)
	metrics.RecordSubmission()

	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	seq := s.frameSeq.Load()
	start := time.Now()
	result, err := s.client.Submit(ctx, scoring.Request{
		SessionID:     sessionID,
		Image:         frame.Image,
		Timestamp:     frame.CapturedAt,
		SequenceIndex: seq,
	})
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		kind := "network"
		if errors.Is(err, codec.ErrMalformedPayload) {
			kind = "malformed"
		}
		metrics.RecordSubmissionError(kind)
		// A failed tick never corrupts running state and never stops the
		// timer; the next tick is free to submit again.
		s.logger.Warn(ctx, "submission failed",
			logger.Int64("sequenceIndex", seq),
			logger.Error(err),
		)
		return
	}

	if !s.active.Load() {
		// Session stopped while this request was outstanding.
		s.logger.Debug(ctx, "discarding response after stop", logger.Int64("sequenceIndex", seq))
		return
	}

	s.merge(ctx, frame, result)
}

// merge folds one response into per-subject state, last-writer-wins per
// subject, then fans out to the announcement queue, the renderer, and the
// ledger.
//
// Subject ids are only as stable as the endpoint's re-identification; an id
// re-used for a different person silently adopts the new person's values.
// No reconciliation is attempted at this layer.
func (s *Scheduler) merge(ctx context.Context, frame model.Frame, result codec.Result) {
	s.mu.Lock()
	sessionID := s.sessionID

	var newErrors []model.ErrorEvent
	stopped := false
	for _, sr := range result.Subjects {
		subject, ok := s.subjects[sr.SubjectID]
		if !ok {
			subject = &model.Subject{ID: sr.SubjectID, Score: s.startScore}
			s.subjects[sr.SubjectID] = subject
		}

		if sr.HasScore {
			subject.Score = s.clamp(sr.Score)
		}
		if len(sr.Errors) > subject.ErrorCount {
			// Only growth counts as new; already-seen indexes are never
			// re-announced. ErrorCount never decreases, so a response whose
			// list transiently shrinks (a dropped entry on one frame) cannot
			// cause indexes to be surfaced twice when the list regrows.
			for i := subject.ErrorCount; i < len(sr.Errors); i++ {
				newErrors = append(newErrors, model.ErrorEvent{
					Category:      sr.Errors[i].Category,
					Message:       sr.Errors[i].Message,
					SubjectID:     sr.SubjectID,
					SequenceIndex: i,
				})
			}
			subject.ErrorCount = len(sr.Errors)
		}
		if sr.Keypoints != nil {
			subject.Keypoints = sr.Keypoints
		}
		if sr.Stopped {
			stopped = true
		}
	}

	seq := s.frameSeq.Add(1)
	keypoints := make(map[int][]model.Keypoint, len(s.subjects))
	for id, subject := range s.subjects {
		if subject.Keypoints != nil {
			keypoints[id] = subject.Keypoints
		}
	}
	score, totalErrors := s.aggregatesLocked()
	s.mu.Unlock()

	metrics.RecordResponseMerged()
	metrics.UpdateFrameSequence(seq)
	for range newErrors {
		metrics.RecordErrorObserved()
	}

	if s.announcer != nil {
		for _, e := range newErrors {
			s.announcer.Enqueue(ctx, e.Category, e.Message, e.SubjectID)
		}
	}

	if s.renderer != nil {
		s.renderer.Render(ctx, keypoints, s.displaySize(),
			overlay.Size{Width: float64(frame.Width), Height: float64(frame.Height)})
	}

	if s.ledger != nil {
		if _, err := s.ledger.Update(ctx, sessionID, ledger.Update{
			Score:         &score,
			TotalErrors:   &totalErrors,
			FrameSequence: &seq,
			Errors:        newErrors,
		}); err != nil {
			s.logger.Warn(ctx, "ledger update failed", logger.Error(err))
		}
	}

	if stopped {
		s.logger.Info(ctx, "terminal condition reported", logger.String("sessionID", sessionID))
		s.halt()
		s.terminalOnce.Do(func() {
			if s.onTerminal != nil {
				s.onTerminal()
			}
		})
	}
}

// aggregatesLocked computes the ledger-visible score and error totals.
// The session score is the worst subject score; errors sum across
// subjects. Caller holds s.mu.
func (s *Scheduler) aggregatesLocked() (float64, int) {
	score := s.startScore
	totalErrors := 0
	first := true
	for _, subject := range s.subjects {
		if first || subject.Score < score {
			score = subject.Score
		}
		first = false
		totalErrors += subject.ErrorCount
	}
	return score, totalErrors
}

func (s *Scheduler) clamp(score float64) float64 {
	if score < s.scoreFloor {
		return s.scoreFloor
	}
	return score
}
