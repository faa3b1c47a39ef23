package pipeline

import (
	"errors"
	"fmt"

	"video-analytics/internal/models"
)

var (
	// ErrSuperseded is the cancellation cause of a run replaced by a newer
	// run for the same target.
	ErrSuperseded = errors.New("pipeline: run superseded")

	// ErrCursorLoop reports a listing endpoint that handed back a cursor it
	// already returned.
	ErrCursorLoop = errors.New("pipeline: listing returned a repeated page cursor")

	// ErrOwnerNotFound is returned by a Directory that has no channel for a
	// name. It turns into a ResolutionError rather than an UpstreamError.
	ErrOwnerNotFound = errors.New("pipeline: no channel for owner")
)

// ResolutionError means the input does not match any supported identifier
// shape. It is fatal to the run and never retried.
type ResolutionError struct {
	Kind   models.InputKind
	Input  string
	Reason string
}

func (e *ResolutionError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("pipeline: cannot resolve %s input: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("pipeline: cannot resolve %s input %q: %s", e.Kind, e.Input, e.Reason)
}

// UpstreamError wraps a failed listing, owner lookup or primary stats call.
// Downstream metrics cannot be computed without these, so it is fatal.
type UpstreamError struct {
	Op     string
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("pipeline: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// EnrichmentFailure records a video whose secondary stats could not be
// fetched. It is never fatal; failures are only reported in aggregate.
type EnrichmentFailure struct {
	VideoID  string
	Attempts int
	Err      error
}

func (e *EnrichmentFailure) Error() string {
	return fmt.Sprintf("pipeline: enrichment of %s failed after %d attempt(s): %v", e.VideoID, e.Attempts, e.Err)
}

func (e *EnrichmentFailure) Unwrap() error { return e.Err }
