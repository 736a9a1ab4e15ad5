package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservation/internal/models"
	"ms-reservation/internal/offers"
	"ms-reservation/internal/sse"
	"ms-reservation/internal/utils"
)

type OffersResponse struct {
	EventID string                   `json:"event_id"`
	Offers  []models.TicketTypeOffer `json:"offers"`
	Summary offers.Summary           `json:"summary"`
}

// EventResponse adds the texts resolved for the caller's language.
type EventResponse struct {
	*models.Event
	TitleText       string `json:"title_text"`
	DescriptionText string `json:"description_text"`
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	event, err := h.Events.GetEvent(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lang := h.catalog(r).Lang()
	resp := EventResponse{
		Event:           event,
		TitleText:       event.Title.In(lang),
		DescriptionText: event.Description.In(lang),
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event", resp))
}

// GetOffers returns the event's offers with the resolver's view of them.
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	list, err := h.Offers.TicketTypes(r.Context(), eventID, sessionOf(r).Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := OffersResponse{
		EventID: eventID,
		Offers:  list,
		Summary: offers.Summarize(list, h.Clock.Now(), h.catalog(r)),
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("offers", resp))
}

// StreamOffers streams offer snapshots of one event, starting with the
// current one, until the client goes away.
func (h *Handler) StreamOffers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	updates := h.Emitter.Subscribe(ctx, eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventID\":%q}\n\n", eventID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to offer stream for event: %s", eventID))

	if list, err := h.Offers.TicketTypes(ctx, eventID, sessionOf(r).Token); err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Initial offer snapshot for %s failed: %v", eventID, err))
	} else {
		h.writeSnapshot(w, sse.Snapshot{EventID: eventID, Offers: list, FetchedAt: h.Clock.Now()})
		flusher.Flush()
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			h.writeSnapshot(w, snap)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from offer stream for: %s", eventID))
			return
		}
	}
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snap sse.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize offer snapshot: %v", err))
		return
	}
	fmt.Fprintf(w, "event: offers\ndata: %s\n\n", data)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// OnSubmission refreshes the streams of an event after another replica
// accepted a submission. This replica's own submissions were already pushed by
// the submitter.
func (h *Handler) OnSubmission(ctx context.Context, event models.SubmissionEvent) {
	if event.EventID == "" || h.Emitter.ClientCount(event.EventID) == 0 {
		return
	}
	if h.Origin != "" && event.Origin == h.Origin {
		return
	}
	list, err := h.Offers.TicketTypes(ctx, event.EventID, "")
	if err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Offer refresh for %s failed: %v", event.EventID, err))
		return
	}
	h.Emitter.PublishOffers(event.EventID, list, h.Clock.Now())
}
