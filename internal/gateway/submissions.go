package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/utils"
)

// TargetFields are common to every submission body.
type TargetFields struct {
	EventSlug string `json:"event_slug" validate:"omitempty,max=200"`
	ReturnTo  string `json:"return_to" validate:"omitempty,max=2048"`
}

type PurchaseRequest struct {
	TargetFields
	Quantity int                   `json:"quantity"`
	Payment  models.PaymentDetails `json:"payment" validate:"-"`
}

type ReservationRequest struct {
	TargetFields
	Attendee      models.AttendeeRecord `json:"attendee"`
	Notes         string                `json:"notes" validate:"max=2000"`
	TermsAccepted bool                  `json:"terms_accepted"`
}

type AtDoorRequest struct {
	TargetFields
	Quantity  int                     `json:"quantity"`
	Attendees []models.AttendeeRecord `json:"attendee_data" validate:"max=500"`
}

type SubmissionResponse struct {
	EventID string          `json:"event_id"`
	OfferID string          `json:"offer_id"`
	Channel models.Channel  `json:"channel"`
	Tickets []models.Ticket `json:"tickets"`
}

type preparer func(ctx context.Context, session models.Session, target reservation.Target, offer models.TicketTypeOffer) (reservation.Submission, error)

func (h *Handler) PurchaseOnline(w http.ResponseWriter, r *http.Request) {
	var body PurchaseRequest
	if err := h.decodeAndValidate(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	h.submit(w, r, models.ChannelOnline, body.TargetFields, func(ctx context.Context, s models.Session, t reservation.Target, o models.TicketTypeOffer) (reservation.Submission, error) {
		return h.Submitter.PrepareOnline(ctx, s, reservation.OnlineRequest{Target: t, Offer: o, Quantity: body.Quantity, Payment: body.Payment})
	})
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var body ReservationRequest
	if err := h.decodeAndValidate(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	h.submit(w, r, models.ChannelReservation, body.TargetFields, func(ctx context.Context, s models.Session, t reservation.Target, o models.TicketTypeOffer) (reservation.Submission, error) {
		return h.Submitter.PrepareReservation(ctx, s, reservation.ReservationRequest{
			Target:        t,
			Offer:         o,
			Attendee:      body.Attendee,
			Notes:         body.Notes,
			TermsAccepted: body.TermsAccepted,
		})
	})
}

func (h *Handler) RegisterAtDoor(w http.ResponseWriter, r *http.Request) {
	var body AtDoorRequest
	if err := h.decodeAndValidate(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	h.submit(w, r, models.ChannelAtDoor, body.TargetFields, func(ctx context.Context, s models.Session, t reservation.Target, o models.TicketTypeOffer) (reservation.Submission, error) {
		return h.Submitter.PrepareAtDoor(ctx, s, reservation.AtDoorRequest{Target: t, Offer: o, Quantity: body.Quantity, Attendees: body.Attendees})
	})
}

// submit looks the offer up in a fresh listing and runs the submission
// through the per-form guard. Only one submission per browser and offer may
// be outstanding.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, channel models.Channel, tf TargetFields, prepare preparer) {
	ctx := r.Context()
	session := sessionOf(r)
	eventID := chi.URLParam(r, "eventID")
	offerID := chi.URLParam(r, "offerID")

	list, err := h.Offers.TicketTypes(ctx, eventID, session.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offer, err := findOffer(list, offerID, channel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	target := reservation.Target{EventID: eventID, EventSlug: tf.EventSlug, ReturnTo: tf.ReturnTo}
	if target.EventSlug == "" {
		target.EventSlug = eventID
	}
	if target.ReturnTo == "" || !strings.HasPrefix(target.ReturnTo, "/") || strings.HasPrefix(target.ReturnTo, "//") {
		target.ReturnTo = "/events/" + target.EventSlug
	}

	key := session.BrowserKey + ":" + offer.ID
	tickets, err := h.Guard.Run(ctx, key, func(ctx context.Context) (reservation.Submission, error) {
		return prepare(ctx, session, target, offer)
	}, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("%s submission for offer %s issued %d ticket(s)", channel, offer.ID, len(tickets)))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("submitted", SubmissionResponse{
		EventID: eventID,
		OfferID: offer.ID,
		Channel: channel,
		Tickets: tickets,
	}))
}

func findOffer(list []models.TicketTypeOffer, offerID string, channel models.Channel) (models.TicketTypeOffer, error) {
	for _, o := range list {
		if o.ID != offerID {
			continue
		}
		if o.Channel != channel {
			return models.TicketTypeOffer{}, reservation.ErrChannelMismatch
		}
		return o, nil
	}
	return models.TicketTypeOffer{}, reservation.ErrOfferNotFound
}
