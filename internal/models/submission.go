package models

import "time"

// SubmissionEvent is published after the backend accepted a submission.
type SubmissionEvent struct {
	EventID   string   `json:"event_id"`
	OfferID   string   `json:"offer_id"`
	Channel   Channel  `json:"channel"`
	UserID    string   `json:"user_id"`
	Quantity  int      `json:"quantity"`
	TicketIDs []string `json:"ticket_ids"`
	RequestID string   `json:"request_id,omitempty"`
	// Origin identifies the gateway replica that accepted the submission.
	Origin      string    `json:"origin,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
