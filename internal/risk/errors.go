package risk

import "errors"

var (
	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrClassifierUnavailable is returned when the text classifier cannot be loaded or reached.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrFetch is returned when a URL cannot be parsed or retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrScoring is returned when URL signals cannot be scored.
	ErrScoring = errors.New("scoring failed")
)
