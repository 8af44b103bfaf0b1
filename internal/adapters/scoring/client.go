// Package scoring provides clients for the remote scoring endpoint. The
// endpoint is stateful per session: each submitted frame returns per-person
// score, error, and keypoint data.
package scoring

import (
	"context"
	"time"

	"github.com/kinesia/poseloop/internal/domain/codec"
)

// Request is one frame submission.
type Request struct {
	SessionID     string
	Image         []byte
	Timestamp     time.Time
	SequenceIndex int64
}

// Client submits frames to the scoring endpoint and finalizes sessions.
//
// Submit carries no client-side timeout: a hung request holds the caller's
// single-flight gate until the transport resolves it. Cancellation is via
// ctx only.
type Client interface {
	// Submit ships one frame and returns the decoded scoring response.
	Submit(ctx context.Context, req Request) (codec.Result, error)

	// Finalize persists terminal score and error totals for a session.
	Finalize(ctx context.Context, sessionID string, score float64, totalErrors int) error

	// Close releases transport resources.
	Close() error
}

// frameRequest is the wire shape of a frame submission. Image bytes are
// base64-encoded by encoding/json.
type frameRequest struct {
	SessionID     string    `json:"sessionId"`
	Image         []byte    `json:"image"`
	Timestamp     time.Time `json:"timestamp"`
	SequenceIndex int64     `json:"sequenceIndex"`
}

// finalizeRequest is the wire shape of a finalize call.
type finalizeRequest struct {
	SessionID   string  `json:"sessionId"`
	Score       float64 `json:"score"`
	TotalErrors int     `json:"totalErrors"`
}
