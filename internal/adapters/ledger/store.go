// Package ledger is the externally visible session store: the rest of the
// application reads current score, error, and status values from here
// without polling the feedback loop.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// Update carries the ledger fields refreshed after a processed capture or a
// stop. Nil fields are left untouched.
type Update struct {
	Score         *float64
	TotalErrors   *int
	Status        *model.SessionStatus
	FrameSequence *int64
	// Errors appends newly observed errors to the session's history.
	Errors []model.ErrorEvent
}

// Store provides read/write access to session records.
type Store interface {
	// Put registers or replaces a session record.
	Put(ctx context.Context, session model.Session) error

	// Update applies a partial update and returns the resulting record.
	// Returns ErrNotFound for unknown sessions.
	Update(ctx context.Context, id string, up Update) (model.Session, error)

	// Get returns the current session record.
	// Returns ErrNotFound for unknown sessions.
	Get(ctx context.Context, id string) (model.Session, error)

	// Errors returns the session's accumulated error history.
	Errors(ctx context.Context, id string) ([]model.ErrorEvent, error)
}

// InMemoryStore implements Store with a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	history  map[string][]model.ErrorEvent
}

// NewInMemoryStore creates an empty session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]model.Session),
		history:  make(map[string][]model.ErrorEvent),
	}
}

// Put registers or replaces a session record.
func (s *InMemoryStore) Put(ctx context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	if _, ok := s.history[session.ID]; !ok {
		s.history[session.ID] = nil
	}
	metrics.UpdateSessionScore(session.Score)
	metrics.UpdateSessionErrors(session.TotalErrors)
	return nil
}

// Update applies a partial update and returns the resulting record.
func (s *InMemoryStore) Update(ctx context.Context, id string, up Update) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}

	if up.Score != nil {
		session.Score = *up.Score
	}
	if up.TotalErrors != nil {
		session.TotalErrors = *up.TotalErrors
	}
	if up.Status != nil {
		session.Status = *up.Status
		if session.Status.Terminal() {
			session.EndedAt = time.Now()
		}
	}
	if up.FrameSequence != nil {
		session.FrameSequence = *up.FrameSequence
	}
	if len(up.Errors) > 0 {
		s.history[id] = append(s.history[id], up.Errors...)
	}

	s.sessions[id] = session
	metrics.UpdateSessionScore(session.Score)
	metrics.UpdateSessionErrors(session.TotalErrors)
	return session, nil
}

// Get returns the current session record.
func (s *InMemoryStore) Get(ctx context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

// Errors returns the session's accumulated error history.
func (s *InMemoryStore) Errors(ctx context.Context, id string) ([]model.ErrorEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	history := s.history[id]
	out := make([]model.ErrorEvent, len(history))
	copy(out, history)
	return out, nil
}
