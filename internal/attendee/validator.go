// Package attendee checks attendee records against the required-field policy
// of the offer they are submitted for.
package attendee

import (
	"fmt"
	"strings"

	"ms-reservation/internal/models"
)

// Field names match the JSON keys of models.AttendeeRecord.
const (
	FieldFullName = "full_name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldGender   = "gender"
	FieldRole     = "role"
	FieldDocument = "id_document"
	FieldCountry  = "country"
	FieldCity     = "city"
)

// ValidationError is the first rule an attendee failed. Position is 1-based;
// zero marks a form-level field such as the terms checkbox.
type ValidationError struct {
	Position int
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Position == 0 {
		return e.Message
	}
	return fmt.Sprintf("attendee %d: %s", e.Position, e.Message)
}

type rule struct {
	field   string
	applies func(o *models.TicketTypeOffer) bool
	ok      func(r models.AttendeeRecord) bool
	message string
}

func always(*models.TicketTypeOffer) bool { return true }

func present(s string) bool { return strings.TrimSpace(s) != "" }

// rules run in this order and stop at the first failure.
var rules = []rule{
	{FieldFullName, always, func(r models.AttendeeRecord) bool { return present(r.FullName) }, "full name is required"},
	{FieldEmail, always, func(r models.AttendeeRecord) bool { return present(r.Email) && strings.Contains(r.Email, "@") }, "email is missing or invalid"},
	{FieldPhone, func(o *models.TicketTypeOffer) bool { return o.RequiresPhone }, func(r models.AttendeeRecord) bool { return present(r.Phone) }, "phone is required"},
	{FieldGender, func(o *models.TicketTypeOffer) bool { return o.RequiresGender }, func(r models.AttendeeRecord) bool { return validGender(r.Gender) }, "gender is required"},
	{FieldRole, func(o *models.TicketTypeOffer) bool { return o.RequiresRole }, func(r models.AttendeeRecord) bool { return validRole(r.Role) }, "role is required"},
	{FieldDocument, func(o *models.TicketTypeOffer) bool { return o.RequiresDocument }, func(r models.AttendeeRecord) bool { return present(r.IDDocument) }, "identity document is required"},
	{FieldCountry, func(o *models.TicketTypeOffer) bool { return o.RequiresCountry }, func(r models.AttendeeRecord) bool { return present(r.Country) }, "country is required"},
	{FieldCity, func(o *models.TicketTypeOffer) bool { return o.RequiresCity }, func(r models.AttendeeRecord) bool { return present(r.City) }, "city is required"},
}

func validGender(g models.Gender) bool {
	switch g {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
		return true
	}
	return false
}

func validRole(r models.DanceRole) bool {
	return r == models.RoleLeader || r == models.RoleFollower
}

// ValidateAttendee returns nil or the *ValidationError of the first failing rule.
// The email check is a substring test for "@" only.
func ValidateAttendee(record models.AttendeeRecord, position int, offer *models.TicketTypeOffer) error {
	if offer == nil {
		offer = &models.TicketTypeOffer{}
	}
	for _, r := range rules {
		if !r.applies(offer) {
			continue
		}
		if !r.ok(record) {
			return &ValidationError{Position: position, Field: r.field, Message: r.message}
		}
	}
	return nil
}

// ValidateBatch validates records in order and stops at the first failure.
func ValidateBatch(records []models.AttendeeRecord, offer *models.TicketTypeOffer) error {
	for i, rec := range records {
		if err := ValidateAttendee(rec, i+1, offer); err != nil {
			return err
		}
	}
	return nil
}
