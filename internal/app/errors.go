package service

import "errors"

// Sentinel kinds for lifecycle errors.
var (
	ErrEmptySessionID = errors.New("empty session id")
	ErrInvalidMode    = errors.New("invalid session mode")
	ErrNoClient       = errors.New("no scoring client configured")
	ErrSessionActive  = errors.New("session already active")
)
