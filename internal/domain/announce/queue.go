// Package announce serializes observed posture errors into strictly
// sequential spoken announcements, decoupled from the capture cadence.
//
// Admission is gated twice: a per-category cooldown window suppresses
// repeats, and a small bounded backlog evicts its oldest pending entry when
// full. A single drain worker speaks one entry at a time with a short pause
// between entries.
package announce

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinesia/poseloop/pkg/logger"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCooldownWindow = 2000 * time.Millisecond
	defaultCapacity       = 5
	defaultPacing         = 300 * time.Millisecond
)

// Entry is one pending announcement. The queue exclusively owns entries
// until they are spoken or cleared.
type Entry struct {
	Category   string
	Text       string
	SubjectID  int
	EnqueuedAt time.Time
}

// Queue is the announcement queue. One drain worker serializes speech;
// Enqueue never blocks on synthesis.
type Queue struct {
	mu       sync.Mutex
	backlog  []Entry
	enabled  bool
	closed   bool
	phrases  map[string]string
	cooldown *Cooldown

	cooldownWindow time.Duration
	capacity       int
	pace           time.Duration

	speaker  Speaker
	now      func() time.Time
	speaking atomic.Bool

	wake      chan struct{}
	stopDrain chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	logger logger.Logger
}

// NewQueue creates an announcement queue draining into speaker. The queue
// starts enabled; call Start to launch the drain worker.
func NewQueue(speaker Speaker, opts ...Option) *Queue {
	q := &Queue{
		enabled:        true,
		phrases:        make(map[string]string),
		cooldownWindow: defaultCooldownWindow,
		capacity:       defaultCapacity,
		pace:           defaultPacing,
		speaker:        speaker,
		now:            time.Now,
		wake:           make(chan struct{}, 1),
		stopDrain:      make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Get().Named("announce"),
	}
	for category, text := range defaultPhrases {
		q.phrases[category] = text
	}
	for _, opt := range opts {
		opt(q)
	}
	q.cooldown = NewCooldown(q.cooldownWindow)
	return q
}

// Start launches the drain worker and returns immediately. The worker's
// lifetime is owned by the queue, not the caller: cancelling ctx does not
// stop it, so the queue survives across sessions until Close. Later calls
// are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.drain(context.WithoutCancel(ctx))
	})
}

// Enqueue offers a new announcement. It reports false when the subsystem is
// disabled or the category is inside its cooldown window. An accepted entry
// may later evict, or be evicted by, other pending entries.
func (q *Queue) Enqueue(ctx context.Context, category, text string, subjectID int) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		metrics.RecordAnnouncementSuppressed("closed")
		return false
	}
	if !q.enabled {
		q.mu.Unlock()
		metrics.RecordAnnouncementSuppressed("disabled")
		return false
	}
	if !q.cooldown.Allow(category, q.now()) {
		q.mu.Unlock()
		metrics.RecordAnnouncementSuppressed("cooldown")
		q.logger.Debug(ctx, "announcement suppressed by cooldown", logger.String("category", category))
		return false
	}

	if len(q.backlog) >= q.capacity {
		// Evict the oldest not-yet-spoken entry to admit the new one.
		evicted := q.backlog[0]
		q.backlog = q.backlog[1:]
		metrics.RecordAnnouncementEvicted()
		q.logger.Debug(ctx, "announcement evicted", logger.String("category", evicted.Category))
	}
	q.backlog = append(q.backlog, Entry{
		Category:   category,
		Text:       text,
		SubjectID:  subjectID,
		EnqueuedAt: q.now(),
	})
	size := len(q.backlog)
	q.mu.Unlock()

	metrics.RecordAnnouncementEnqueued()
	metrics.UpdateBacklogSize(size)
	q.signal()
	return true
}

// Speak preempts the category queue for a fixed command phrase: the current
// utterance is cancelled and text is spoken immediately, bypassing cooldown
// and backlog. It fails with ErrQueueClosed after Close.
func (q *Queue) Speak(ctx context.Context, text string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	q.speaker.Cancel()
	return q.speaker.Speak(ctx, text)
}

// Stop cancels any in-progress utterance, empties the backlog, and forgets
// cooldown history. The drain worker stays alive for the next session.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.backlog = nil
	q.mu.Unlock()
	q.cooldown.Reset()
	q.speaker.Cancel()
	metrics.UpdateBacklogSize(0)
}

// SetEnabled toggles the subsystem. Disabling behaves like Stop plus
// suppression of all future Enqueue calls until re-enabled.
func (q *Queue) SetEnabled(enabled bool) {
	q.mu.Lock()
	q.enabled = enabled
	q.mu.Unlock()
	if !enabled {
		q.Stop()
	}
}

// Enabled reports whether announcements are currently admitted.
func (q *Queue) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// Speaking reports whether the drain worker is mid-utterance.
func (q *Queue) Speaking() bool {
	return q.speaking.Load()
}

// Close permanently stops the drain worker. The queue cannot be restarted;
// later Enqueue calls are rejected and Speak fails with ErrQueueClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.stopDrain)
	})
	q.Stop()
}

// Done returns a channel closed when the drain worker has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain is the sequential worker loop: exactly one entry is spoken at a
// time, with a pacing pause after each attempt regardless of outcome.
func (q *Queue) drain(ctx context.Context) {
	defer close(q.done)

	for {
		select {
		case <-q.stopDrain:
			return
		case <-q.wake:
		}

		for {
			entry, ok := q.pop()
			if !ok {
				break
			}
			q.speakEntry(ctx, entry)

			select {
			case <-time.After(q.pace):
			case <-q.stopDrain:
				return
			}
		}
	}
}

func (q *Queue) pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backlog) == 0 {
		metrics.UpdateBacklogSize(0)
		return Entry{}, false
	}
	entry := q.backlog[0]
	q.backlog = q.backlog[1:]
	metrics.UpdateBacklogSize(len(q.backlog))
	return entry, true
}

// speakEntry speaks one entry. Synthesis failure is recovered locally; the
// worker simply advances to the next entry.
func (q *Queue) speakEntry(ctx context.Context, entry Entry) {
	q.speaking.Store(true)
	defer q.speaking.Store(false)

	start := time.Now()
	err := q.speaker.Speak(ctx, q.phrase(entry))
	metrics.RecordSpeechDuration(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordSpeechFailure()
		q.logger.Warn(ctx, "speech synthesis failed",
			logger.String("category", entry.Category),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAnnouncementSpoken()
}

// phrase resolves the spoken text for an entry: registered phrasing first,
// then the server-provided message, then the generic fallback.
func (q *Queue) phrase(entry Entry) string {
	if text, ok := q.phrases[entry.Category]; ok {
		return text
	}
	if entry.Text != "" {
		return entry.Text
	}
	return genericPhrase(entry.Category)
}
