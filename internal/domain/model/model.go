// Package model contains domain models passed between layers.
package model

import "time"

// KeypointCount is the expected cardinality of a skeletal keypoint set
// (COCO landmark order, nose through right ankle).
const KeypointCount = 17

// DefaultVisibilityThreshold is the confidence below which a keypoint must
// not be used for rendering or geometric inference.
const DefaultVisibilityThreshold = 0.3

// Keypoint is one body landmark in source-image pixel space.
type Keypoint struct {
	X          float64
	Y          float64
	Confidence float64 // in [0,1]
}

// Visible reports whether the keypoint may be used for rendering.
func (k Keypoint) Visible(threshold float64) bool {
	return k.Confidence > threshold
}

// Subject is one tracked person within a session. The ID is assigned by the
// scoring endpoint and is stable only as long as the server can re-identify
// the person across frames.
type Subject struct {
	ID         int
	Score      float64
	ErrorCount int
	// Keypoints is nil until the subject has been observed with a valid
	// keypoint set this session.
	Keypoints []Keypoint
}

// ErrorEvent is one observed posture error. SequenceIndex is the position
// within the subject's error list at the time of observation; a given
// (subject, index) pair is observed at most once per session.
type ErrorEvent struct {
	Category      string
	Message       string
	SubjectID     int
	SequenceIndex int
}

// SessionMode selects how a session treats errors.
type SessionMode string

// Session modes.
const (
	// ModeTesting accrues score deductions and can terminate early.
	ModeTesting SessionMode = "testing"
	// ModePractising only surfaces errors; the score is informational.
	ModePractising SessionMode = "practising"
)

// Valid reports whether the mode is one of the known modes.
func (m SessionMode) Valid() bool {
	return m == ModeTesting || m == ModePractising
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

// Session statuses.
const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusStopped   SessionStatus = "stopped"
)

// Terminal reports whether the status is an end state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// Session is the ledger-visible record of one scoring session.
type Session struct {
	ID          string
	Mode        SessionMode
	Status      SessionStatus
	Score       float64
	TotalErrors int
	// FrameSequence counts submitted captures. Ordering and diagnostics
	// only; correctness never depends on it.
	FrameSequence int64
	StartedAt     time.Time
	EndedAt       time.Time
}

// Frame is one still image captured from the live source.
type Frame struct {
	ID            string // capture id, unique per frame
	SequenceIndex int64
	CapturedAt    time.Time
	Image         []byte
	Width         int
	Height        int
}
