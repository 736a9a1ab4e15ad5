package models

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

type DanceRole string

const (
	RoleLeader   DanceRole = "LEADER"
	RoleFollower DanceRole = "FOLLOWER"
)

// AttendeeRecord is one person covered by one ticket of a registration.
type AttendeeRecord struct {
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Gender     Gender    `json:"gender,omitempty"`
	Role       DanceRole `json:"role,omitempty"`
	IDDocument string    `json:"id_document,omitempty"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
}

// PaymentDetails is forwarded untouched to the ticketing backend, which owns
// the payment gateway.
type PaymentDetails struct {
	Method    string `json:"payment_method"`
	Token     string `json:"payment_token,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

type OnlinePurchasePayload struct {
	TicketTypeID string         `json:"ticket_type_id"`
	Quantity     int            `json:"quantity"`
	Payment      PaymentDetails `json:"payment"`
}

type ReservationPayload struct {
	TicketTypeID string `json:"ticket_type_id"`
	AttendeeRecord
	Notes         string `json:"notes,omitempty"`
	TermsAccepted bool   `json:"terms_accepted"`
}

type AtDoorPayload struct {
	TicketTypeID string           `json:"ticket_type_id"`
	Quantity     int              `json:"quantity"`
	AttendeeData []AttendeeRecord `json:"attendee_data"`
}

// TicketEnvelope covers both response shapes of the submission endpoints.
type TicketEnvelope struct {
	Ticket  *Ticket  `json:"ticket,omitempty"`
	Tickets []Ticket `json:"tickets,omitempty"`
}

// All returns the tickets in server order, whichever shape was used.
func (e TicketEnvelope) All() []Ticket {
	if len(e.Tickets) > 0 {
		return e.Tickets
	}
	if e.Ticket != nil {
		return []Ticket{*e.Ticket}
	}
	return nil
}
