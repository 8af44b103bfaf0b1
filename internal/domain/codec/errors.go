package codec

import "errors"

// Sentinel kinds for codec errors. These allow errors.Is/As from callers.
var (
	ErrMalformedPayload = errors.New("malformed scoring payload")
)
