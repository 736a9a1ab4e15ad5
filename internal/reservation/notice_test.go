package reservation

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-reservation/internal/attendee"
	"ms-reservation/internal/backend"
	"ms-reservation/internal/locale"
)

func TestDescribe(t *testing.T) {
	en := locale.New("en")
	five := 5

	tests := []struct {
		name    string
		err     error
		kind    NoticeKind
		code    string
		status  int
		message string
	}{
		{"auth", &AuthRequiredError{LoginURL: "/login"}, NoticeInfo, "auth_required", http.StatusUnauthorized, "Log in to continue with your booking."},
		{"attendee", &attendee.ValidationError{Position: 2, Field: "id_document"}, NoticeError, "validation_error", http.StatusUnprocessableEntity, "Attendee 2: identity document is required"},
		{"terms", &attendee.ValidationError{Field: "terms_accepted"}, NoticeError, "validation_error", http.StatusUnprocessableEntity, "You must accept the terms and conditions."},
		{"range", &QuantityOutOfRangeError{Requested: 6, Max: &five}, NoticeError, "quantity_out_of_range", http.StatusUnprocessableEntity, "Quantity must be between 1 and 5."},
		{"count", &AttendeeCountError{Expected: 3, Got: 2}, NoticeError, "attendee_count_mismatch", http.StatusUnprocessableEntity, "Expected 3 attendees but got 2."},
		{"server message verbatim", &backend.RejectedError{Status: 409, Message: "Entradas agotadas"}, NoticeError, "server_rejected", http.StatusConflict, "Entradas agotadas"},
		{"server field message", &backend.RejectedError{Status: 400, FieldErrors: map[string][]string{"quantity": {"Máximo 4 por persona."}, "email": {"Ya registrado."}}}, NoticeError, "server_rejected", http.StatusBadRequest, "Ya registrado."},
		{"server fallback", &backend.RejectedError{Status: 503}, NoticeError, "server_rejected", http.StatusBadGateway, "The operation could not be completed."},
		{"network", fmt.Errorf("submit: %w", &backend.NetworkError{Op: "POST", Err: errors.New("reset")}), NoticeError, "network_error", http.StatusBadGateway, "Could not reach the server. Please try again."},
		{"in flight", ErrSubmissionInFlight, NoticeError, "submission_in_flight", http.StatusConflict, "A request is already in progress."},
		{"offer gone", ErrOfferNotFound, NoticeError, "offer_not_found", http.StatusNotFound, "This ticket type is no longer available."},
		{"wrong channel", ErrChannelMismatch, NoticeError, "offer_not_found", http.StatusUnprocessableEntity, "This ticket type is no longer available."},
		{"completed", ErrFlowCompleted, NoticeError, "submission_in_flight", http.StatusConflict, "A request is already in progress."},
		{"unknown", errors.New("boom"), NoticeError, "unexpected", http.StatusInternalServerError, "An unexpected error occurred."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Describe(tt.err, en)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.code, n.Code)
			assert.Equal(t, tt.status, n.Status)
			assert.Equal(t, tt.message, n.Message)
		})
	}
}

func TestDescribeCarriesFieldErrors(t *testing.T) {
	rej := &backend.RejectedError{
		Status:         400,
		AttendeeErrors: map[int]map[string][]string{1: {"email": {"invalid"}}},
	}

	n := Describe(rej, locale.New("es"))
	assert.Equal(t, "No se pudo completar la operación.", n.Message)
	assert.Equal(t, []string{"invalid"}, n.AttendeeErrors[1]["email"])
}

func TestDescribeNamesFirstServerField(t *testing.T) {
	rej := &backend.RejectedError{
		Status:      400,
		FieldErrors: map[string][]string{"phone": {"Teléfono no válido."}, "city": {}},
	}

	n := Describe(rej, locale.New("es"))
	assert.Equal(t, "Teléfono no válido.", n.Message)
	assert.Equal(t, "phone", n.Field)

	rej.Message = "Solicitud inválida"
	n = Describe(rej, locale.New("es"))
	assert.Equal(t, "Solicitud inválida", n.Message)
	assert.Empty(t, n.Field)
}
