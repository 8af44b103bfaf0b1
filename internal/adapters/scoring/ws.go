package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kinesia/poseloop/internal/domain/codec"
	"github.com/kinesia/poseloop/pkg/logger"
)

// Envelope message types on the stream.
const (
	msgFrame    = "frame"
	msgFinalize = "finalize"
)

// envelope frames every message on the scoring stream.
type envelope struct {
	Type     string           `json:"type"`
	Frame    *frameRequest    `json:"frame,omitempty"`
	Finalize *finalizeRequest `json:"finalize,omitempty"`
}

// finalizeAck is the stream reply to a finalize message.
type finalizeAck struct {
	OK bool `json:"ok"`
}

// WSOption applies a configuration option to the WSClient.
type WSOption func(*WSClient)

// WithWSLogger sets a custom logger for the client.
func WithWSLogger(log logger.Logger) WSOption {
	return func(c *WSClient) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) WSOption {
	return func(c *WSClient) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WSClient submits frames over one persistent WebSocket connection. The
// stream is strictly request/response: the caller's single-flight gate
// already guarantees one outstanding exchange, and the client mutex backs
// that up.
type WSClient struct {
	mu     sync.Mutex // serializes exchanges; Close never takes it
	conn   *websocket.Conn
	url    string
	dialer *websocket.Dialer
	closed atomic.Bool
	logger logger.Logger
}

// DialWS connects to the scoring stream at url (ws:// or wss://).
func DialWS(ctx context.Context, url string, opts ...WSOption) (*WSClient, error) {
	c := &WSClient{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger.Get().Named("scoring-ws"),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	c.conn = conn
	c.logger.Info(ctx, "scoring stream connected", logger.String("url", url))
	return c, nil
}

// Submit writes one frame envelope and reads the scoring response.
func (c *WSClient) Submit(ctx context.Context, req Request) (codec.Result, error) {
	payload, err := c.exchange(ctx, envelope{
		Type: msgFrame,
		Frame: &frameRequest{
			SessionID:     req.SessionID,
			Image:         req.Image,
			Timestamp:     req.Timestamp,
			SequenceIndex: req.SequenceIndex,
		},
	})
	if err != nil {
		if errors.Is(err, ErrClientClosed) {
			return codec.Result{}, err
		}
		return codec.Result{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	result, err := codec.Decode(payload)
	if err != nil {
		return codec.Result{}, err
	}
	return result, nil
}

// Finalize writes a finalize envelope and waits for the acknowledgement.
func (c *WSClient) Finalize(ctx context.Context, sessionID string, score float64, totalErrors int) error {
	payload, err := c.exchange(ctx, envelope{
		Type: msgFinalize,
		Finalize: &finalizeRequest{
			SessionID:   sessionID,
			Score:       score,
			TotalErrors: totalErrors,
		},
	})
	if err != nil {
		if errors.Is(err, ErrClientClosed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}

	var ack finalizeAck
	if err := json.Unmarshal(payload, &ack); err != nil || !ack.OK {
		return fmt.Errorf("%w: finalize not acknowledged", ErrFinalizeFailed)
	}
	return nil
}

// Close shuts the stream down. It deliberately skips the exchange mutex so
// it can interrupt a read blocked inside a hung exchange; the in-progress
// exchange fails with ErrClientClosed and later ones fail the same way.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// exchange writes env and reads the single reply. Cancelling ctx unblocks
// the pending read, at the cost of the stream: a reply may arrive after the
// caller gave up, so the connection is closed rather than reused.
func (c *WSClient) exchange(ctx context.Context, env envelope) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	if err := c.conn.WriteJSON(env); err != nil {
		if c.closed.Load() {
			return nil, ErrClientClosed
		}
		return nil, err
	}
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			c.closed.Store(true)
			c.conn.Close()
			return nil, ctx.Err()
		}
		if c.closed.Load() {
			return nil, ErrClientClosed
		}
		return nil, err
	}
	return payload, nil
}
