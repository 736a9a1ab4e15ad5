package reservation

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrFlowCompleted      = errors.New("submission already succeeded")
	ErrFlowClosed         = errors.New("submission flow closed")
	ErrOfferNotFound      = errors.New("ticket type not found for event")
	ErrChannelMismatch    = errors.New("ticket type is sold through another channel")
)

// AuthRequiredError asks the caller to log in and come back to ReturnTo.
type AuthRequiredError struct {
	LoginURL string
	ReturnTo string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required"
}

// QuantityOutOfRangeError reports a quantity outside [1, Max]. Max is nil when
// the offer has unlimited stock.
type QuantityOutOfRangeError struct {
	Requested int
	Max       *int
}

func (e *QuantityOutOfRangeError) Error() string {
	return fmt.Sprintf("quantity %d outside [1, %s]", e.Requested, e.maxText())
}

func (e *QuantityOutOfRangeError) maxText() string {
	if e.Max == nil {
		return "∞"
	}
	return strconv.Itoa(*e.Max)
}

// AttendeeCountError reports an at-door form whose attendee count differs
// from the requested quantity.
type AttendeeCountError struct {
	Expected int
	Got      int
}

func (e *AttendeeCountError) Error() string {
	return fmt.Sprintf("expected %d attendees, got %d", e.Expected, e.Got)
}
