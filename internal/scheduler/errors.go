package scheduler

import "errors"

// Sentinel kinds for scheduler errors.
var ErrAlreadyRunning = errors.New("scheduler already running")
