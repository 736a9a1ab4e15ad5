package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"ms-reservation/internal/attendee"
	"ms-reservation/internal/backend"
	"ms-reservation/internal/locale"
)

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is the user-facing rendering of a submission error.
type Notice struct {
	Kind           NoticeKind                  `json:"kind"`
	Code           string                      `json:"code"`
	Status         int                         `json:"-"`
	Message        string                      `json:"message"`
	Field          string                      `json:"field,omitempty"`
	Position       int                         `json:"position,omitempty"`
	LoginURL       string                      `json:"login_url,omitempty"`
	FieldErrors    map[string][]string         `json:"field_errors,omitempty"`
	AttendeeErrors map[int]map[string][]string `json:"attendee_errors,omitempty"`
}

// Describe converts any error reaching the submission boundary into a Notice.
// Server messages pass through verbatim; everything else uses the catalog.
func Describe(err error, catalog *locale.Catalog) Notice {
	var (
		authErr     *AuthRequiredError
		validErr    *attendee.ValidationError
		rangeErr    *QuantityOutOfRangeError
		countErr    *AttendeeCountError
		rejectedErr *backend.RejectedError
		networkErr  *backend.NetworkError
	)

	switch {
	case errors.As(err, &authErr):
		return Notice{
			Kind:     NoticeInfo,
			Code:     "auth_required",
			Status:   http.StatusUnauthorized,
			Message:  catalog.Message(locale.KeyAuthRequired),
			LoginURL: authErr.LoginURL,
		}

	case errors.As(err, &validErr):
		msg := catalog.Message(locale.KeyTermsRequired)
		if validErr.Position > 0 {
			msg = catalog.Message(locale.KeyInvalidAttendee, validErr.Position, catalog.FieldMessage(validErr.Field))
		}
		return Notice{
			Kind:     NoticeError,
			Code:     "validation_error",
			Status:   http.StatusUnprocessableEntity,
			Message:  msg,
			Field:    validErr.Field,
			Position: validErr.Position,
		}

	case errors.As(err, &rangeErr):
		max := "∞"
		if rangeErr.Max != nil {
			max = strconv.Itoa(*rangeErr.Max)
		}
		return Notice{
			Kind:    NoticeError,
			Code:    "quantity_out_of_range",
			Status:  http.StatusUnprocessableEntity,
			Message: catalog.Message(locale.KeyQuantityRange, 1, max),
			Field:   "quantity",
		}

	case errors.As(err, &countErr):
		return Notice{
			Kind:    NoticeError,
			Code:    "attendee_count_mismatch",
			Status:  http.StatusUnprocessableEntity,
			Message: catalog.Message(locale.KeyQuantityMismatch, countErr.Expected, countErr.Got),
			Field:   "attendee_data",
		}

	case errors.As(err, &rejectedErr):
		status := rejectedErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		msg := rejectedErr.Message
		var field string
		if msg == "" {
			if name, fieldMsg, ok := rejectedErr.FirstFieldError(); ok {
				field, msg = name, fieldMsg
			} else {
				msg = catalog.Message(locale.KeyServerRejected)
			}
		}
		return Notice{
			Kind:           NoticeError,
			Code:           "server_rejected",
			Status:         status,
			Message:        msg,
			Field:          field,
			FieldErrors:    rejectedErr.FieldErrors,
			AttendeeErrors: rejectedErr.AttendeeErrors,
		}

	case errors.As(err, &networkErr):
		return Notice{
			Kind:    NoticeError,
			Code:    "network_error",
			Status:  http.StatusBadGateway,
			Message: catalog.Message(locale.KeyNetwork),
		}

	case errors.Is(err, ErrOfferNotFound), errors.Is(err, ErrChannelMismatch):
		status := http.StatusNotFound
		if errors.Is(err, ErrChannelMismatch) {
			status = http.StatusUnprocessableEntity
		}
		return Notice{
			Kind:    NoticeError,
			Code:    "offer_not_found",
			Status:  status,
			Message: catalog.Message(locale.KeyOfferNotFound),
		}

	case errors.Is(err, ErrSubmissionInFlight), errors.Is(err, ErrFlowCompleted), errors.Is(err, ErrFlowClosed):
		return Notice{
			Kind:    NoticeError,
			Code:    "submission_in_flight",
			Status:  http.StatusConflict,
			Message: catalog.Message(locale.KeyInFlight),
		}
	}

	return Notice{
		Kind:    NoticeError,
		Code:    "unexpected",
		Status:  http.StatusInternalServerError,
		Message: catalog.Message(locale.KeyUnexpected),
	}
}
