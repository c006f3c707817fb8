package generator

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidSize indicates a negative content size
	ErrInvalidSize = errors.New("invalid content size")

	// ErrContentTooLarge indicates content too large to be held in memory for inline embedding
	ErrContentTooLarge = errors.New("content too large for inline embedding")

	// ErrInvalidVersionCount indicates a request for fewer than one version
	ErrInvalidVersionCount = errors.New("version count must be at least 1")

	// ErrNoSources indicates an empty list of external sources
	ErrNoSources = errors.New("at least one source is required")

	// ErrFetchFailed indicates an external source could not be read
	ErrFetchFailed = errors.New("fetch failed")

	// ErrStoreFailed indicates generated content could not be stored
	ErrStoreFailed = errors.New("store failed")

	// ErrUnsupportedScheme indicates a source URI with no registered fetcher
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
)

// GenerationError represents a failed generation step
type GenerationError struct {
	Op   string
	Path string
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("generation step %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("generation step %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
