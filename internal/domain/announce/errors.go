package announce

import "errors"

// Sentinel kinds for announcement errors.
var (
	ErrSpeechCancelled = errors.New("speech cancelled")
	ErrQueueClosed     = errors.New("announcement queue closed")
)
