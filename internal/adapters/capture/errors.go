package capture

import "errors"

// Sentinel kinds for capture errors.
var (
	ErrSourceNotReady = errors.New("capture source not ready")
)
