// Package reservation submits purchases, reservations and at-door
// registrations to the ticketing backend and reconciles offer state afterwards.
package reservation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"ms-reservation/internal/attendee"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/intent"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
)

type TicketingAPI interface {
	TicketTypes(ctx context.Context, eventID, token string) ([]models.TicketTypeOffer, error)
	PurchaseOnline(ctx context.Context, token string, payload models.OnlinePurchasePayload) ([]models.Ticket, error)
	ReserveTicket(ctx context.Context, token string, payload models.ReservationPayload) (models.Ticket, error)
	PurchaseAtDoor(ctx context.Context, token string, payload models.AtDoorPayload) ([]models.Ticket, error)
}

type IntentStore interface {
	Save(ctx context.Context, sessionKey string, in intent.ResumableIntent) error
	Consume(ctx context.Context, sessionKey string) (intent.ResumableIntent, error)
}

type Publisher interface {
	PublishSubmission(ctx context.Context, event models.SubmissionEvent) error
}

// WalletInvalidator drops a user's cached wallet once the backend has issued
// new tickets to them.
type WalletInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// OfferSink receives the offer list re-fetched after a successful submission.
type OfferSink interface {
	PublishOffers(eventID string, offers []models.TicketTypeOffer, fetchedAt time.Time)
}

// Target names the event a submission belongs to and where the visitor should
// land after a login detour.
type Target struct {
	EventID   string
	EventSlug string
	ReturnTo  string
}

type OnlineRequest struct {
	Target
	Offer    models.TicketTypeOffer
	Quantity int
	Payment  models.PaymentDetails
}

type ReservationRequest struct {
	Target
	Offer         models.TicketTypeOffer
	Attendee      models.AttendeeRecord
	Notes         string
	TermsAccepted bool
}

type AtDoorRequest struct {
	Target
	Offer     models.TicketTypeOffer
	Quantity  int
	Attendees []models.AttendeeRecord
}

// Submission is a request that passed every client-side check and is ready to send.
type Submission func(ctx context.Context) ([]models.Ticket, error)

type Submitter struct {
	api       TicketingAPI
	intents   IntentStore
	publisher Publisher
	sink      OfferSink
	wallet    WalletInvalidator
	origin    string
	clock     clock.Clock
	loginURL  string
	logger    *logger.Logger
}

type SubmitterOption func(*Submitter)

func WithPublisher(p Publisher) SubmitterOption {
	return func(s *Submitter) { s.publisher = p }
}

func WithOfferSink(sink OfferSink) SubmitterOption {
	return func(s *Submitter) { s.sink = sink }
}

func WithWalletInvalidator(w WalletInvalidator) SubmitterOption {
	return func(s *Submitter) { s.wallet = w }
}

// WithOrigin tags published submissions with this replica's ID.
func WithOrigin(id string) SubmitterOption {
	return func(s *Submitter) { s.origin = id }
}

func WithClock(clk clock.Clock) SubmitterOption {
	return func(s *Submitter) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLoginURL sets the login page unauthenticated callers are sent to.
func WithLoginURL(u string) SubmitterOption {
	return func(s *Submitter) {
		if u != "" {
			s.loginURL = u
		}
	}
}

func NewSubmitter(api TicketingAPI, intents IntentStore, log *logger.Logger, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		api:      api,
		intents:  intents,
		clock:    clock.NewSystem(),
		loginURL: "/login",
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireSession stores a resumable intent and returns *AuthRequiredError for
// anonymous callers. A failed intent save is logged; the caller still gets the
// login redirect.
func (s *Submitter) requireSession(ctx context.Context, session models.Session, t Target, offer models.TicketTypeOffer) error {
	if session.Authenticated() {
		return nil
	}
	if session.BrowserKey != "" && s.intents != nil {
		in := intent.New(t.EventSlug, t.ReturnTo, s.clock.Now())
		in.OfferID = offer.ID
		in.Channel = string(offer.Channel)
		if err := s.intents.Save(ctx, session.BrowserKey, in); err != nil {
			s.logger.Warn("INTENT", fmt.Sprintf("Failed to store pending intent: %v", err))
		}
	}
	return &AuthRequiredError{LoginURL: s.loginRedirect(t.ReturnTo), ReturnTo: t.ReturnTo}
}

func (s *Submitter) loginRedirect(returnTo string) string {
	if returnTo == "" {
		return s.loginURL
	}
	sep := "?"
	if strings.Contains(s.loginURL, "?") {
		sep = "&"
	}
	return s.loginURL + sep + "next=" + url.QueryEscape(returnTo)
}

func checkQuantity(q int, offer models.TicketTypeOffer) error {
	if q < 1 || (!offer.Unlimited() && q > *offer.AvailableStock) {
		return &QuantityOutOfRangeError{Requested: q, Max: offer.AvailableStock}
	}
	return nil
}

func (s *Submitter) PrepareOnline(ctx context.Context, session models.Session, req OnlineRequest) (Submission, error) {
	if err := s.requireSession(ctx, session, req.Target, req.Offer); err != nil {
		return nil, err
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if err := checkQuantity(quantity, req.Offer); err != nil {
		return nil, err
	}
	payload := models.OnlinePurchasePayload{TicketTypeID: req.Offer.ID, Quantity: quantity, Payment: req.Payment}
	return func(ctx context.Context) ([]models.Ticket, error) {
		tickets, err := s.api.PurchaseOnline(ctx, session.Token, payload)
		if err != nil {
			return nil, s.failed(models.ChannelOnline, req.EventID, err)
		}
		s.succeeded(ctx, session, req.Target, req.Offer, quantity, tickets)
		return tickets, nil
	}, nil
}

func (s *Submitter) PrepareReservation(ctx context.Context, session models.Session, req ReservationRequest) (Submission, error) {
	if err := s.requireSession(ctx, session, req.Target, req.Offer); err != nil {
		return nil, err
	}
	if err := attendee.ValidateAttendee(req.Attendee, 1, &req.Offer); err != nil {
		return nil, err
	}
	if !req.TermsAccepted {
		return nil, &attendee.ValidationError{Field: "terms_accepted", Message: "terms and conditions must be accepted"}
	}
	payload := models.ReservationPayload{
		TicketTypeID:   req.Offer.ID,
		AttendeeRecord: req.Attendee,
		Notes:          strings.TrimSpace(req.Notes),
		TermsAccepted:  true,
	}
	return func(ctx context.Context) ([]models.Ticket, error) {
		ticket, err := s.api.ReserveTicket(ctx, session.Token, payload)
		if err != nil {
			return nil, s.failed(models.ChannelReservation, req.EventID, err)
		}
		tickets := []models.Ticket{ticket}
		s.succeeded(ctx, session, req.Target, req.Offer, 1, tickets)
		return tickets, nil
	}, nil
}

// PrepareAtDoor checks, in order: session, quantity range, attendee count and
// each attendee. Nothing reaches the backend unless all pass.
func (s *Submitter) PrepareAtDoor(ctx context.Context, session models.Session, req AtDoorRequest) (Submission, error) {
	if err := s.requireSession(ctx, session, req.Target, req.Offer); err != nil {
		return nil, err
	}
	if err := checkQuantity(req.Quantity, req.Offer); err != nil {
		return nil, err
	}
	if len(req.Attendees) != req.Quantity {
		return nil, &AttendeeCountError{Expected: req.Quantity, Got: len(req.Attendees)}
	}
	if err := attendee.ValidateBatch(req.Attendees, &req.Offer); err != nil {
		return nil, err
	}
	payload := models.AtDoorPayload{
		TicketTypeID: req.Offer.ID,
		Quantity:     req.Quantity,
		AttendeeData: req.Attendees,
	}
	return func(ctx context.Context) ([]models.Ticket, error) {
		tickets, err := s.api.PurchaseAtDoor(ctx, session.Token, payload)
		if err != nil {
			return nil, s.failed(models.ChannelAtDoor, req.EventID, err)
		}
		if len(tickets) != req.Quantity {
			s.logger.Warn("SUBMISSION", fmt.Sprintf("At-door registration for %s returned %d tickets for %d attendees", req.EventID, len(tickets), req.Quantity))
		}
		s.succeeded(ctx, session, req.Target, req.Offer, req.Quantity, tickets)
		return tickets, nil
	}, nil
}

func (s *Submitter) SubmitOnline(ctx context.Context, session models.Session, req OnlineRequest) ([]models.Ticket, error) {
	sub, err := s.PrepareOnline(ctx, session, req)
	if err != nil {
		return nil, err
	}
	return sub(context.WithoutCancel(ctx))
}

func (s *Submitter) SubmitReservation(ctx context.Context, session models.Session, req ReservationRequest) (models.Ticket, error) {
	sub, err := s.PrepareReservation(ctx, session, req)
	if err != nil {
		return models.Ticket{}, err
	}
	tickets, err := sub(context.WithoutCancel(ctx))
	if err != nil {
		return models.Ticket{}, err
	}
	return tickets[0], nil
}

// SubmitAtDoor returns one ticket per attendee in submission order.
func (s *Submitter) SubmitAtDoor(ctx context.Context, session models.Session, req AtDoorRequest) ([]models.Ticket, error) {
	sub, err := s.PrepareAtDoor(ctx, session, req)
	if err != nil {
		return nil, err
	}
	return sub(context.WithoutCancel(ctx))
}

// ResumeIntent consumes the visitor's pending intent after login.
func (s *Submitter) ResumeIntent(ctx context.Context, session models.Session) (intent.ResumableIntent, error) {
	if s.intents == nil {
		return intent.ResumableIntent{}, intent.ErrNotFound
	}
	return s.intents.Consume(ctx, session.BrowserKey)
}

func (s *Submitter) failed(channel models.Channel, eventID string, err error) error {
	s.logger.LogSubmission(string(channel), eventID, fmt.Sprintf("rejected: %v", err))
	return err
}

// succeeded marks the user's wallet stale, re-fetches the offers so subscribers
// see the server's stock, then publishes the submission. All are best effort.
func (s *Submitter) succeeded(ctx context.Context, session models.Session, t Target, offer models.TicketTypeOffer, quantity int, tickets []models.Ticket) {
	s.logger.LogSubmission(string(offer.Channel), t.EventID, fmt.Sprintf("accepted offer=%s tickets=%d", offer.ID, len(tickets)))

	if s.wallet != nil {
		if err := s.wallet.Invalidate(ctx, session.UserID); err != nil {
			s.logger.Warn("SUBMISSION", fmt.Sprintf("Wallet of %s not invalidated: %v", session.UserID, err))
		}
	}

	eventID := t.EventID
	if eventID == "" {
		eventID = offer.EventID
	}
	if s.sink != nil && eventID != "" {
		offers, err := s.api.TicketTypes(ctx, eventID, session.Token)
		if err != nil {
			s.logger.Warn("SUBMISSION", fmt.Sprintf("Offer re-fetch for %s failed: %v", eventID, err))
		} else {
			s.sink.PublishOffers(eventID, offers, s.clock.Now())
		}
	}

	if s.publisher != nil {
		ids := make([]string, 0, len(tickets))
		for _, tk := range tickets {
			ids = append(ids, tk.ID)
		}
		event := models.SubmissionEvent{
			EventID:     eventID,
			OfferID:     offer.ID,
			Channel:     offer.Channel,
			UserID:      session.UserID,
			Quantity:    quantity,
			TicketIDs:   ids,
			RequestID:   middleware.GetReqID(ctx),
			Origin:      s.origin,
			SubmittedAt: s.clock.Now(),
		}
		if err := s.publisher.PublishSubmission(ctx, event); err != nil {
			s.logger.Warn("SUBMISSION", fmt.Sprintf("Submission event for %s not published: %v", eventID, err))
		}
	}
}
