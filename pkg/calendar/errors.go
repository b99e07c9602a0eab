package calendar

import (
	"errors"
	"fmt"

	"github.com/crewplan/timeline/pkg/resource"
)

var ErrEventNotFound = errors.New("event not found")

// ErrResourceUnknown is returned when an event references a resource the
// catalog does not know.
var ErrResourceUnknown = errors.New("resource unknown")

var errConcurrentReassignment = errors.New("event resource changed concurrently, retry")

// ValidationError reports the first offending field of a rejected event.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// LookupError translates a failed catalog lookup of resourceId.
func LookupError(resourceId int, err error) error {
	if errors.Is(err, resource.ErrResourceNotFound) {
		return fmt.Errorf("%w: %d", ErrResourceUnknown, resourceId)
	}
	return fmt.Errorf("failed to resolve resource %d: %w", resourceId, err)
}
