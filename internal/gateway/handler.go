// Package gateway exposes the reservation flows to the single-page front-end.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-reservation/internal/auth"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/intent"
	"ms-reservation/internal/locale"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/models"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/sse"
	"ms-reservation/internal/utils"
	"ms-reservation/internal/wallet"
)

type OfferSource interface {
	TicketTypes(ctx context.Context, eventID, token string) ([]models.TicketTypeOffer, error)
}

type EventSource interface {
	GetEvent(ctx context.Context, slug string) (*models.Event, error)
}

type SubmissionService interface {
	PrepareOnline(ctx context.Context, session models.Session, req reservation.OnlineRequest) (reservation.Submission, error)
	PrepareReservation(ctx context.Context, session models.Session, req reservation.ReservationRequest) (reservation.Submission, error)
	PrepareAtDoor(ctx context.Context, session models.Session, req reservation.AtDoorRequest) (reservation.Submission, error)
	ResumeIntent(ctx context.Context, session models.Session) (intent.ResumableIntent, error)
}

type TicketWallet interface {
	Sync(ctx context.Context, session models.Session) ([]wallet.WalletTicket, error)
	Tickets(ctx context.Context, session models.Session) ([]wallet.WalletTicket, error)
	HoldsTicket(ctx context.Context, session models.Session, eventID string) (bool, error)
	FindByHash(ctx context.Context, session models.Session, hash string) (*wallet.WalletTicket, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	Offers    OfferSource
	Events    EventSource
	Submitter SubmissionService
	Wallet    TicketWallet
	Emitter   *sse.OfferEventEmitter
	Guard     *reservation.Guard
	Clock     clock.Clock
	Locale    string
	Origin    string
	Checks    map[string]HealthCheck
	Validate  *validator.Validate
	Logger    *logger.Logger
}

type HandlerOption func(*Handler)

func WithEmitter(e *sse.OfferEventEmitter) HandlerOption {
	return func(h *Handler) { h.Emitter = e }
}

func WithClock(clk clock.Clock) HandlerOption {
	return func(h *Handler) {
		if clk != nil {
			h.Clock = clk
		}
	}
}

// WithDefaultLocale sets the language used when Accept-Language names none we know.
func WithDefaultLocale(lang string) HandlerOption {
	return func(h *Handler) {
		if lang != "" {
			h.Locale = lang
		}
	}
}

// WithOrigin names this replica so it can skip its own submissions on the bus.
func WithOrigin(id string) HandlerOption {
	return func(h *Handler) { h.Origin = id }
}

func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) { h.Checks[name] = check }
}

// NewHandler creates a new Handler instance
func NewHandler(offers OfferSource, events EventSource, submitter SubmissionService, w TicketWallet, log *logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		Offers:    offers,
		Events:    events,
		Submitter: submitter,
		Wallet:    w,
		Emitter:   sse.NewOfferEventEmitter(),
		Guard:     reservation.NewGuard(),
		Clock:     clock.NewSystem(),
		Locale:    locale.Spanish,
		Checks:    make(map[string]HealthCheck),
		Validate:  newValidator(),
		Logger:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) catalog(r *http.Request) *locale.Catalog {
	return locale.FromAcceptLanguage(r.Header.Get("Accept-Language"), h.Locale)
}

// MaxBodyBytes bounds every JSON request body. A full at-door batch of 500
// attendees stays well below it.
const MaxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeBodyError answers a request whose body could not be accepted.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.WriteJSON(w, http.StatusRequestEntityTooLarge, utils.ErrorResponse(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "body_too_large"))
		return
	}
	utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse(err.Error(), "bad_request"))
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate checks the shape of a request body. Domain rules such as
// quantity ranges and attendee fields are left to the submitter.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := decodeBody(w, r, dst); err != nil {
		return err
	}
	err := h.Validate.StructCtx(r.Context(), dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = fmt.Sprintf("invalid '%s' (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return errors.New(strings.Join(msgs, ", "))
}

// writeError renders err through the submission notice table. Auth and
// validation notices are expected outcomes and are not logged as errors.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	notice := reservation.Describe(err, h.catalog(r))
	if notice.Status >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s %s failed: %v", r.Method, r.URL.Path, err))
	}
	utils.WriteJSON(w, notice.Status, utils.NoticeResponse(notice.Message, notice.Code, notice))
}

func (h *Handler) writeWalletError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wallet.ErrUnauthenticated):
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse(h.catalog(r).Message(locale.KeyAuthRequired), "auth_required"))
	case errors.Is(err, wallet.ErrTicketNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("ticket not found", "ticket_not_found"))
	default:
		h.writeError(w, r, err)
	}
}

// Health pings every registered dependency.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, check := range h.Checks {
		if err := check(r.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Message: "degraded", Data: status, Timestamp: h.Clock.Now()})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("healthy", status))
}

func sessionOf(r *http.Request) models.Session {
	return auth.FromContext(r.Context())
}
