/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Host packages wrap these with additional context.

ERROR CATEGORIES:
  1. Input errors - Malformed date ranges, rejected outright
  2. Advisory errors - Conditions the caller may surface as warnings
     (empty working-day spans, unallocatable override remainders)

Overbooking is deliberately NOT in this file: overflow is data the ledger
reports, never an error.

USAGE:
  Host packages classify with errors.Is:

    if errors.Is(err, schedule.ErrUnallocatableRemainder) {
        // edit took effect; show a warning banner
    }

SEE ALSO:
  - distribute.go: Returns EmptySpanError
  - override.go: Returns RemainderError
  - ledger.go: Never returns errors (flags only)
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateRange is returned when an end date precedes its start
	// date, or a required date is missing. Never silently corrected.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrEmptyWorkingDaySpan is returned when a distribution window contains
	// zero working days. The caller decides whether that is fatal (malformed
	// phase dates) or benign (a zero-MD phase).
	ErrEmptyWorkingDaySpan = errors.New("no working days in span")

	// ErrUnallocatableRemainder is returned when an override leaves a
	// non-zero budget remainder with no unlocked later months to absorb it.
	// The edited value still takes effect; this error is advisory.
	ErrUnallocatableRemainder = errors.New("remainder cannot be redistributed")

	// ErrUnknownMonth is returned when an override targets a month outside
	// the assignment's span.
	ErrUnknownMonth = errors.New("month not part of assignment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateRangeError reports a malformed date range.
type DateRangeError struct {
	Start Date
	End   Date
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: %s to %s", e.Start, e.End)
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// EmptySpanError reports a window with no working days to distribute over.
type EmptySpanError struct {
	Start   Date
	End     Date
	Country Country
}

func (e *EmptySpanError) Error() string {
	return fmt.Sprintf("no working days between %s and %s (country %s)", e.Start, e.End, e.Country)
}

func (e *EmptySpanError) Unwrap() error { return ErrEmptyWorkingDaySpan }

// RemainderError reports an override that pinned its value but could not
// place the remaining budget anywhere.
type RemainderError struct {
	Assignment AssignmentID
	Month      Month
	Remainder  ManDays
}

func (e *RemainderError) Error() string {
	return fmt.Sprintf("override on %s leaves %s MDs with no unlocked month after %s",
		e.Assignment, e.Remainder, e.Month)
}

func (e *RemainderError) Unwrap() error { return ErrUnallocatableRemainder }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsAdvisory returns true for errors that accompany a state change that
// still took effect. The UI surfaces these as warnings, not failures.
func IsAdvisory(err error) bool {
	return errors.Is(err, ErrUnallocatableRemainder)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrUnknownMonth)
}
