// Package service owns the session lifecycle: it validates and registers
// new sessions, arms the capture scheduler, tears the feedback surfaces
// down on stop, and signals the navigation collaborator exactly once when
// a session reaches a terminal state.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kinesia/poseloop/internal/adapters/capture"
	"github.com/kinesia/poseloop/internal/adapters/http/status"
	"github.com/kinesia/poseloop/internal/adapters/ledger"
	"github.com/kinesia/poseloop/internal/adapters/scoring"
	"github.com/kinesia/poseloop/internal/domain/announce"
	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/internal/domain/overlay"
	"github.com/kinesia/poseloop/internal/scheduler"
	"github.com/kinesia/poseloop/pkg/logger"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// Service wires the feedback loop together and drives its lifecycle.
type Service struct {
	mu sync.Mutex

	// Core components
	client   scoring.Client
	source   capture.Source
	canvas   overlay.Canvas
	speaker  announce.Speaker
	store    ledger.Store
	queue    *announce.Queue
	renderer *overlay.Renderer
	sched    *scheduler.Scheduler

	// Configuration
	tickInterval        time.Duration
	startScore          float64
	scoreFloor          float64
	cooldownWindow      time.Duration
	backlogCapacity     int
	pacing              time.Duration
	visibilityThreshold float64
	displaySize         func() overlay.Size
	navigator           func(model.SessionStatus)

	// State
	sessionID string
	mode      model.SessionMode
	active    bool
	navOnce   *sync.Once

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClient sets the scoring endpoint client. Required before Start.
func WithClient(client scoring.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSource sets the frame source sampled by the scheduler.
func WithSource(source capture.Source) Option {
	return func(s *Service) {
		if source != nil {
			s.source = source
		}
	}
}

// WithCanvas sets the drawing surface the overlay renders onto.
func WithCanvas(canvas overlay.Canvas) Option {
	return func(s *Service) {
		if canvas != nil {
			s.canvas = canvas
		}
	}
}

// WithSpeaker sets the speech-synthesis backend for announcements.
func WithSpeaker(speaker announce.Speaker) Option {
	return func(s *Service) {
		if speaker != nil {
			s.speaker = speaker
		}
	}
}

// WithStore sets the session ledger store.
func WithStore(store ledger.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNavigator sets the navigation callback fired once per session when it
// reaches a terminal state.
func WithNavigator(fn func(model.SessionStatus)) Option {
	return func(s *Service) {
		if fn != nil {
			s.navigator = fn
		}
	}
}

// WithTickInterval sets the capture timer interval.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// WithStartScore sets the score a session opens with.
func WithStartScore(score float64) Option {
	return func(s *Service) {
		s.startScore = score
	}
}

// WithScoreFloor sets the floor merged scores are clamped to.
func WithScoreFloor(floor float64) Option {
	return func(s *Service) {
		s.scoreFloor = floor
	}
}

// WithCooldownWindow sets the per-category announcement cooldown.
func WithCooldownWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.cooldownWindow = window
		}
	}
}

// WithBacklogCapacity sets the announcement backlog bound.
func WithBacklogCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.backlogCapacity = capacity
		}
	}
}

// WithPacing sets the pause between consecutive announcements.
func WithPacing(pacing time.Duration) Option {
	return func(s *Service) {
		if pacing > 0 {
			s.pacing = pacing
		}
	}
}

// WithVisibilityThreshold sets the overlay's confidence gate.
func WithVisibilityThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.visibilityThreshold = threshold
		}
	}
}

// WithDisplaySize sets the provider for the current display-surface size.
func WithDisplaySize(size func() overlay.Size) Option {
	return func(s *Service) {
		if size != nil {
			s.displaySize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default collaborators: a synthetic frame
// source, a recording canvas, a logging speaker, and an in-memory ledger.
// The scoring client has no default and must be supplied.
func New(opts ...Option) *Service {
	s := &Service{
		source:              capture.NewSyntheticSource(),
		canvas:              overlay.NewRecordingCanvas(),
		speaker:             announce.NewLoggedSpeaker(),
		store:               ledger.NewInMemoryStore(),
		startScore:          100,
		visibilityThreshold: model.DefaultVisibilityThreshold,
		displaySize:         func() overlay.Size { return overlay.Size{Width: 640, Height: 480} },
		navOnce:             &sync.Once{},
		logger:              logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	queueOpts := []announce.Option{}
	if s.cooldownWindow > 0 {
		queueOpts = append(queueOpts, announce.WithCooldownWindow(s.cooldownWindow))
	}
	if s.backlogCapacity > 0 {
		queueOpts = append(queueOpts, announce.WithCapacity(s.backlogCapacity))
	}
	if s.pacing > 0 {
		queueOpts = append(queueOpts, announce.WithPacing(s.pacing))
	}
	s.queue = announce.NewQueue(s.speaker, queueOpts...)

	s.renderer = overlay.New(s.canvas,
		overlay.WithVisibilityThreshold(s.visibilityThreshold),
	)

	schedOpts := []scheduler.Option{
		scheduler.WithStartScore(s.startScore),
		scheduler.WithScoreFloor(s.scoreFloor),
		scheduler.WithAnnouncer(s.queue),
		scheduler.WithRenderer(s.renderer),
		scheduler.WithLedger(s.store),
		scheduler.WithDisplaySize(s.displaySize),
		scheduler.WithOnTerminal(s.onTerminal),
	}
	if s.tickInterval > 0 {
		schedOpts = append(schedOpts, scheduler.WithTickInterval(s.tickInterval))
	}
	s.sched = scheduler.New(s.source, s.client, schedOpts...)

	return s
}

// Start validates and registers a session, then arms the capture timer.
func (s *Service) Start(ctx context.Context, sessionID string, mode model.SessionMode) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySessionID
	}
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if s.client == nil {
		return ErrNoClient
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.active = true
	s.sessionID = sessionID
	s.mode = mode
	s.navOnce = &sync.Once{}
	s.mu.Unlock()

	// The queue launches its drain worker on first use and keeps it alive
	// across sessions; only Close stops it.
	s.queue.Start(ctx)

	if err := s.store.Put(ctx, model.Session{
		ID:          sessionID,
		Mode:        mode,
		Status:      model.StatusActive,
		Score:       s.startScore,
		TotalErrors: 0,
		StartedAt:   time.Now(),
	}); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return err
	}

	if err := s.sched.Start(ctx, sessionID, mode); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return err
	}

	s.logger.Info(ctx, "session started",
		logger.String("sessionID", sessionID),
		logger.String("mode", string(mode)),
	)
	return nil
}

// Stop ends the session on user request. Idempotent: stopping an already
// stopped session is a no-op, and never doubles the finalize call.
func (s *Service) Stop(ctx context.Context) {
	s.finish(ctx, model.StatusStopped)
}

// onTerminal runs when the scheduler observes the endpoint's stopped flag.
func (s *Service) onTerminal() {
	s.finish(context.Background(), model.StatusCompleted)
}

// finish performs the shared teardown path. The user-visible session state
// is never left active after a stop, even when remote finalization fails.
func (s *Service) finish(ctx context.Context, terminal model.SessionStatus) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	sessionID := s.sessionID
	navOnce := s.navOnce
	s.mu.Unlock()

	s.sched.Stop()
	snap := s.sched.Snapshot()

	// Best-effort remote finalization; local state falls back to the last
	// known values on failure.
	if err := s.client.Finalize(ctx, sessionID, snap.Score, snap.TotalErrors); err != nil {
		metrics.RecordFinalizeFailure()
		s.logger.Warn(ctx, "finalize failed, keeping local terminal state",
			logger.String("sessionID", sessionID),
			logger.Error(err),
		)
	}

	st := terminal
	if _, err := s.store.Update(ctx, sessionID, ledger.Update{
		Score:       &snap.Score,
		TotalErrors: &snap.TotalErrors,
		Status:      &st,
	}); err != nil {
		s.logger.Warn(ctx, "ledger finalize failed", logger.Error(err))
	}

	s.queue.Stop()
	s.renderer.Clear()

	navOnce.Do(func() {
		metrics.RecordNavigationSignal()
		if s.navigator != nil {
			s.navigator(terminal)
		}
	})

	s.logger.Info(ctx, "session finished",
		logger.String("sessionID", sessionID),
		logger.String("status", string(terminal)),
		logger.Float64("score", snap.Score),
		logger.Int("totalErrors", snap.TotalErrors),
	)
}

// SetAnnouncementsEnabled flips spoken feedback. Disabling behaves like a
// stop of the announcement subsystem plus suppression of future enqueues.
func (s *Service) SetAnnouncementsEnabled(enabled bool) {
	s.queue.SetEnabled(enabled)
}

// SetOverlayEnabled flips skeleton drawing independent of the capture loop.
func (s *Service) SetOverlayEnabled(enabled bool) {
	s.renderer.SetEnabled(enabled)
}

// Snapshot returns the user-facing counters for the status surface.
func (s *Service) Snapshot(ctx context.Context) status.Snapshot {
	s.mu.Lock()
	sessionID := s.sessionID
	mode := s.mode
	s.mu.Unlock()

	snap := s.sched.Snapshot()
	out := status.Snapshot{
		SessionID:     sessionID,
		Mode:          string(mode),
		Score:         snap.Score,
		TotalErrors:   snap.TotalErrors,
		FrameSequence: snap.FrameSequence,
		InFlight:      snap.InFlight,
		Announcements: s.queue.Enabled(),
		Overlay:       s.renderer.Enabled(),
	}

	if sessionID != "" {
		if session, err := s.store.Get(ctx, sessionID); err == nil {
			out.Status = string(session.Status)
			out.Score = session.Score
			out.TotalErrors = session.TotalErrors
		}
	}
	return out
}

// Running reports whether a session is currently live.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close releases long-lived resources: the announcement worker and the
// scoring client connection.
func (s *Service) Close() error {
	s.queue.Close()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
