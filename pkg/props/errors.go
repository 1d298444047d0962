package props

import "errors"

// Sentinel errors for payload operations.
var (
	// ErrConsumed is returned when a payload is used after its tree was taken.
	ErrConsumed = errors.New("props: payload already consumed")

	// ErrNilPayload is returned when a nil payload is passed where one is required.
	ErrNilPayload = errors.New("props: nil payload")
)
