package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// RuntimeError represents an error detected while building or driving
// Storage.
//
// Runtime errors include:
//   - Negative quantity: initial storage or recipe holds a negative amount
//   - Empty item: an item identifier is the empty string
//   - Steps exceeded: the run hit its configured step quota
//
// Ineligible firings (not enough stock, limit violated) are never errors.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Item identifies the offending item, if any.
	Item ir.Item

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNegativeQuantity indicates a negative quantity in storage or a recipe.
	ErrCodeNegativeQuantity RuntimeErrorCode = "NEGATIVE_QUANTITY"

	// ErrCodeEmptyItem indicates an empty item identifier.
	ErrCodeEmptyItem RuntimeErrorCode = "EMPTY_ITEM"

	// ErrCodeUnregisteredItem indicates an item that was never pre-registered.
	ErrCodeUnregisteredItem RuntimeErrorCode = "UNREGISTERED_ITEM"

	// ErrCodeQuotaExceeded indicates the run exceeded its max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("%s: %s (item=%s)", e.Code, e.Message, e.Item)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnregisteredItemError is returned when storage is asked about an item it
// never registered. Storage pre-registers every item of the recipes and
// limits it was built with, so this always points at a recipe or lookup
// that did not take part in construction.
type UnregisteredItemError struct {
	Item ir.Item

	// Recipe is the index of the offending recipe, or -1 for a direct lookup.
	Recipe int
}

// Error implements the error interface.
func (e *UnregisteredItemError) Error() string {
	if e.Recipe >= 0 {
		return fmt.Sprintf("%s: item %q used by recipe %d is not registered in storage",
			ErrCodeUnregisteredItem, e.Item, e.Recipe)
	}
	return fmt.Sprintf("%s: item %q is not registered in storage", ErrCodeUnregisteredItem, e.Item)
}

// IsUnregisteredItemError returns true if the error is an UnregisteredItemError.
// Uses errors.As to handle wrapped errors.
func IsUnregisteredItemError(err error) bool {
	var ue *UnregisteredItemError
	return errors.As(err, &ue)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// newNegativeQuantityError creates a RuntimeError for a negative amount.
func newNegativeQuantityError(where string, item ir.Item, qty int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNegativeQuantity,
		Message: fmt.Sprintf("%s holds negative quantity %d", where, qty),
		Item:    item,
		Details: map[string]string{
			"where":    where,
			"quantity": fmt.Sprintf("%d", qty),
		},
	}
}

// newEmptyItemError creates a RuntimeError for an empty identifier.
func newEmptyItemError(where string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEmptyItem,
		Message: fmt.Sprintf("%s references an empty item identifier", where),
		Details: map[string]string{"where": where},
	}
}
