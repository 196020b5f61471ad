package chunk

import "errors"

var (
	// ErrInvalidWindowSize is returned for a non-positive window size.
	ErrInvalidWindowSize = errors.New("window size must be positive")

	// ErrInvalidOverlap is returned when the overlap is negative or not
	// smaller than the window size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than the window size")
)
