package scoring

import "errors"

// Sentinel kinds for scoring client errors.
var (
	ErrSubmitFailed   = errors.New("frame submission failed")
	ErrFinalizeFailed = errors.New("session finalize failed")
	ErrClientClosed   = errors.New("scoring client closed")
)
