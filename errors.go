package bitsetcache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitsetcache/filter"
	"github.com/hupe1980/bitsetcache/internal/cache"
	"github.com/hupe1980/bitsetcache/model"
)

var (
	// ErrClosed is returned when the cache is closed.
	ErrClosed = errors.New("bitsetcache: closed")

	// ErrSegmentClosed is returned for lookups on a segment that already
	// reached end-of-life. Holding a segment reference for the duration of
	// the lookup avoids it.
	ErrSegmentClosed = errors.New("bitsetcache: segment closed")

	// ErrInvalidArgument is the parent of all argument errors.
	ErrInvalidArgument = errors.New("bitsetcache: invalid argument")

	// ErrNilSegment is returned when a lookup is made without a segment.
	ErrNilSegment = fmt.Errorf("%w: nil segment", ErrInvalidArgument)

	// ErrNilFilter is returned when a lookup is made without a filter.
	ErrNilFilter = fmt.Errorf("%w: nil filter", ErrInvalidArgument)

	// ErrComputePanic is wrapped by LoadError when the compute function panicked.
	ErrComputePanic = errors.New("bitsetcache: compute panicked")
)

// LoadError indicates that computing the bitset of a filter for a segment failed.
// Failures are never cached; the next lookup computes again.
//
// The original underlying error can be accessed via errors.Unwrap.
type LoadError struct {
	Segment model.SegmentID
	Filter  filter.Key
	cause   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load bitset %s for %s: %v", e.Filter, e.Segment, e.cause)
}

func (e *LoadError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, cache.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, cache.ErrSegmentClosed):
		return fmt.Errorf("%w: %w", ErrSegmentClosed, err)
	case errors.Is(err, cache.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var le *cache.LoadError
	if errors.As(err, &le) {
		cause := le.Err
		if errors.Is(cause, cache.ErrPanic) {
			cause = fmt.Errorf("%w: %w", ErrComputePanic, cause)
		}
		return &LoadError{Segment: le.Segment, Filter: le.Filter, cause: cause}
	}

	return err
}
