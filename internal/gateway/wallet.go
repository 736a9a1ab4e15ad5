package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-reservation/internal/intent"
	"ms-reservation/internal/qr"
	"ms-reservation/internal/utils"
	"ms-reservation/internal/wallet"
)

type HoldingResponse struct {
	EventID string `json:"event_id"`
	Holding bool   `json:"holding"`
}

// ResumeIntent hands the pending intent back once after login.
func (h *Handler) ResumeIntent(w http.ResponseWriter, r *http.Request) {
	in, err := h.Submitter.ResumeIntent(r.Context(), sessionOf(r))
	switch {
	case errors.Is(err, intent.ErrNotFound), errors.Is(err, intent.ErrNoSession):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("no pending intent", "intent_not_found"))
		return
	case errors.Is(err, intent.ErrExpired):
		utils.WriteJSON(w, http.StatusGone, utils.ErrorResponse("pending intent expired", "intent_expired"))
		return
	case err != nil:
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("intent", in))
}

// MyTickets lists the caller's wallet. ?refresh=true forces a re-fetch.
func (h *Handler) MyTickets(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	var (
		tickets []wallet.WalletTicket
		err     error
	)
	if refresh {
		tickets, err = h.Wallet.Sync(r.Context(), session)
	} else {
		tickets, err = h.Wallet.Tickets(r.Context(), session)
	}
	if err != nil {
		h.writeWalletError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []wallet.WalletTicket{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tickets", tickets))
}

func (h *Handler) Holding(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	holding, err := h.Wallet.HoldsTicket(r.Context(), sessionOf(r), eventID)
	if err != nil {
		h.writeWalletError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("holding", HoldingResponse{EventID: eventID, Holding: holding}))
}

// TicketQR renders the QR code of one of the caller's tickets.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	ticket, err := h.Wallet.FindByHash(r.Context(), sessionOf(r), hash)
	if err != nil {
		h.writeWalletError(w, r, err)
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := qr.Render(ticket.Hash, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
