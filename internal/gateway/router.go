package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ms-reservation/internal/auth"
	"ms-reservation/internal/logger"
)

type RouterOptions struct {
	CORSOrigins []string
	Session     auth.SessionOptions
}

// NewRouter mounts every gateway route. All /api routes carry a session;
// the /api/me and /api/intents routes additionally require a verified user.
func NewRouter(h *Handler, verifier auth.TokenVerifier, opts RouterOptions, log *logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, opts.Session, log))

		r.Route("/events/{eventID}/offers", func(r chi.Router) {
			r.Get("/", h.GetOffers)
			r.Get("/stream", h.StreamOffers)
			r.Post("/{offerID}/purchase", h.PurchaseOnline)
			r.Post("/{offerID}/reservation", h.Reserve)
			r.Post("/{offerID}/at-door", h.RegisterAtDoor)
		})
		r.Get("/events/{slug}", h.GetEvent)
		log.Info("ROUTER", "Event and offer routes registered under /api/events")

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Post("/intents/resume", h.ResumeIntent)
			r.Get("/me/tickets", h.MyTickets)
			r.Get("/me/events/{eventID}/holding", h.Holding)
			r.Get("/tickets/{hash}/qr.png", h.TicketQR)
		})
		log.Info("ROUTER", "Wallet and intent routes registered under /api")
	})
	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
		})
	}
}
