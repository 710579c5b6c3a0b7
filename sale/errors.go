/*
errors.go - Error types for ingestion and run setup

ERROR CATEGORIES:
  1. Ingestion errors - one bad CSV row. Collected, never fatal.
  2. Context errors   - an unusable pricing context. Fatal to the run.

  An amount nothing matches, or an ambiguity left after resolution, is an
  outcome (pricing.NoMatch / pricing.Ambiguous), not an error.
*/
package sale

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrColumnCount is returned for a row without exactly RecordLen fields.
	ErrColumnCount = errors.New("wrong column count")

	// ErrTimestamp is returned for a timestamp that is not RFC 3339.
	ErrTimestamp = errors.New("invalid timestamp")

	// ErrAmount is returned for a paid amount that is not a non-negative decimal.
	ErrAmount = errors.New("invalid amount")

	// ErrInvalidContext is returned when the pricing context cannot drive a run.
	ErrInvalidContext = errors.New("invalid pricing context")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ParseError ties a rejected row to its line in the input.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ContextError names the part of the context that is unusable.
type ContextError struct {
	Field  string
	Reason string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("invalid pricing context: %s: %s", e.Field, e.Reason)
}

func (e *ContextError) Unwrap() error { return ErrInvalidContext }
