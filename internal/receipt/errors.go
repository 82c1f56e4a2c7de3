package receipt

import (
	"errors"
	"fmt"
)

var (
	// ErrTotalMismatch is returned when the item prices do not add up to the total
	ErrTotalMismatch = errors.New("recorded total does not match computed total")

	// ErrInvalidDateFormat is returned when purchaseDate is not YYYY-MM-DD
	ErrInvalidDateFormat = errors.New("invalid date format for 'purchaseDate', expected YYYY-MM-DD")

	// ErrInvalidTimeFormat is returned when purchaseTime is not HH:MM
	ErrInvalidTimeFormat = errors.New("invalid time format for 'purchaseTime', expected HH:MM")

	// ErrReceiptNotFound is returned by the service when an id is unknown
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrIDCollision is returned by a store that could not find a free id
	ErrIDCollision = errors.New("could not generate a unique receipt id")
)

// MissingFieldError reports a required field that is absent, or a numeric
// field whose text could not be parsed.
type MissingFieldError struct {
	Field   string
	Value   string // the text as submitted, when Invalid
	Invalid bool   // present but unparsable or out of range
}

func (e *MissingFieldError) Error() string {
	if e.Invalid {
		return fmt.Sprintf("Invalid value for required field %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("Missing required field: %s", e.Field)
}

// IsValidationError reports whether err means the submitted receipt was
// rejected, as opposed to the request failing for some other reason.
func IsValidationError(err error) bool {
	var missing *MissingFieldError
	switch {
	case errors.As(err, &missing):
		return true
	case errors.Is(err, ErrTotalMismatch),
		errors.Is(err, ErrInvalidDateFormat),
		errors.Is(err, ErrInvalidTimeFormat):
		return true
	}
	return false
}
