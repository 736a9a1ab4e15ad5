package models

import (
	"encoding/json"
	"strings"
	"time"
)

type TicketStatus string

const (
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketPending   TicketStatus = "PENDING"
	TicketCancelled TicketStatus = "CANCELLED"
)

func (s *TicketStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "CANCELED" {
		raw = string(TicketCancelled)
	}
	*s = TicketStatus(raw)
	return nil
}

// Ticket is an issued entitlement. The backend is its source of truth.
type Ticket struct {
	ID              string       `json:"id"`
	Code            string       `json:"code"`
	Hash            string       `json:"hash"`
	EventID         string       `json:"event"`
	EventTitle      string       `json:"event_title,omitempty"`
	TicketTypeTitle string       `json:"ticket_type_title"`
	HolderName      string       `json:"holder_name"`
	HolderEmail     string       `json:"holder_email"`
	PurchasePrice   Price        `json:"purchase_price"`
	Currency        string       `json:"currency"`
	PurchasedAt     time.Time    `json:"purchased_at"`
	Status          TicketStatus `json:"status"`
}

// TicketPage is one page of the paginated ticket history.
type TicketPage struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Ticket `json:"results"`
}

// HasNext reports whether the server announced another page.
func (p TicketPage) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}
