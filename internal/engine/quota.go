package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer tracks the number of firings in a run and enforces a
// maximum steps limit.
//
// Each run has its own QuotaEnforcer instance. The quota is checked on
// every firing. A maxSteps of 0 disables the quota, which is the default:
// the executor's only natural terminal condition is quiescence, and a recipe
// set that never quiesces is a caller risk rather than an engine error.
//
// The quota exists so that harnesses and the CLI can bound programs that are
// known (or suspected) not to terminate, e.g. `0 -> 1 A`.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed steps for this run (0 = unbounded)
	current  int // Current step count
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
// This should be called before committing each firing.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit (0 = unbounded).
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a run exceeds the max steps quota.
//
// The storage is left in the state reached after the last permitted firing;
// the firing that would have exceeded the quota is not applied.
type StepsExceededError struct {
	RunID string // The run that exceeded the quota
	Steps int    // Number of steps attempted
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// RuntimeError returns the error code for matching.
func (e *StepsExceededError) RuntimeError() string {
	return string(ErrCodeQuotaExceeded)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
