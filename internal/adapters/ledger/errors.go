package ledger

import "errors"

// Sentinel kinds for ledger errors. These allow errors.Is/As from callers.
var (
	ErrNotFound = errors.New("session not found")
)
