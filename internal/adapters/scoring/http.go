package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kinesia/poseloop/internal/domain/codec"
	"github.com/kinesia/poseloop/pkg/logger"
)

// maxResponseBytes bounds how much of a scoring response is read.
const maxResponseBytes = 4 << 20

// HTTPOption applies a configuration option to the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets a custom underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithHTTPLogger sets a custom logger for the client.
func WithHTTPLogger(log logger.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if log != nil {
			c.logger = log
		}
	}
}

// HTTPClient submits frames via request/response HTTP POSTs.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  logger.Logger
}

// NewHTTPClient creates a client for the endpoint at baseURL. The underlying
// http.Client deliberately carries no timeout; see Client.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		logger:  logger.Get().Named("scoring-http"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit POSTs one frame to /sessions/{id}/frames.
func (c *HTTPClient) Submit(ctx context.Context, req Request) (codec.Result, error) {
	body, err := json.Marshal(frameRequest{
		SessionID:     req.SessionID,
		Image:         req.Image,
		Timestamp:     req.Timestamp,
		SequenceIndex: req.SequenceIndex,
	})
	if err != nil {
		return codec.Result{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	url := fmt.Sprintf("%s/sessions/%s/frames", c.baseURL, req.SessionID)
	payload, err := c.post(ctx, url, body)
	if err != nil {
		return codec.Result{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	result, err := codec.Decode(payload)
	if err != nil {
		return codec.Result{}, err
	}
	return result, nil
}

// Finalize POSTs terminal values to /sessions/{id}/finalize.
func (c *HTTPClient) Finalize(ctx context.Context, sessionID string, score float64, totalErrors int) error {
	body, err := json.Marshal(finalizeRequest{
		SessionID:   sessionID,
		Score:       score,
		TotalErrors: totalErrors,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}

	url := fmt.Sprintf("%s/sessions/%s/finalize", c.baseURL, sessionID)
	if _, err := c.post(ctx, url, body); err != nil {
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}
	return nil
}

// Close is a no-op for the HTTP transport.
func (c *HTTPClient) Close() error {
	return nil
}

func (c *HTTPClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return payload, nil
}
