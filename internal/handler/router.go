package handler

import (
	"net/http"

	"sadaka/internal/middleware"
	"sadaka/pkg/logger"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Users         *UserHandler
	Funds         *FundHandler
	Campaigns     *CampaignHandler
	Donations     *DonationHandler
	Webhooks      *WebhookHandler
	Subscriptions *SubscriptionHandler
	Zakat         *ZakatHandler
	Partners      *PartnerHandler
	Search        *SearchHandler
	System        *SystemHandler
}

type Middleware struct {
	Auth        *middleware.AuthMiddleware
	Idempotency *middleware.IdempotencyMiddleware
	PublicLimit *middleware.RateLimiter
	APILimit    *middleware.RateLimiter
	BodyLimit   int64
	Logger      logger.Logger
}

// NewRouter mounts every route under /api/v1 with health probes at the root.
func NewRouter(h Handlers, m Middleware) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recovery(m.Logger))
	r.Use(middleware.NewLoggingMiddleware(m.Logger).Log)
	r.Use(middleware.BodyLimit(m.BodyLimit))

	r.HandleFunc("/health", h.System.Health).Methods("GET")
	r.HandleFunc("/ready", h.System.Ready).Methods("GET")

	public := func(fn http.HandlerFunc) http.Handler {
		return m.PublicLimit.Limit(m.Auth.Optional(fn))
	}
	user := func(fn http.HandlerFunc) http.Handler {
		return m.Auth.Authenticate(m.APILimit.Limit(fn))
	}
	idempotent := func(fn http.HandlerFunc) http.Handler {
		return user(m.Idempotency.Require(fn).ServeHTTP)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return user(middleware.RequireAdmin(fn).ServeHTTP)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/webhooks/{provider}", http.HandlerFunc(h.Webhooks.Handle)).Methods("POST")

	api.Handle("/users", public(h.Users.Register)).Methods("POST")
	api.Handle("/users/me", user(h.Users.Me)).Methods("GET")
	api.Handle("/users/me", user(h.Users.UpdateMe)).Methods("PATCH")

	api.Handle("/funds", public(h.Funds.List)).Methods("GET")
	api.Handle("/funds", admin(h.Funds.Create)).Methods("POST")
	api.Handle("/funds/{id:[0-9]+}", public(h.Funds.Get)).Methods("GET")
	api.Handle("/funds/{id:[0-9]+}", admin(h.Funds.Update)).Methods("PATCH")

	api.Handle("/donations", idempotent(h.Donations.Create)).Methods("POST")
	api.Handle("/donations", user(h.Donations.List)).Methods("GET")
	api.Handle("/donations/{id:[0-9]+}", user(h.Donations.Get)).Methods("GET")
	api.Handle("/donations/{id:[0-9]+}/confirm", admin(h.Donations.Confirm)).Methods("POST")
	api.Handle("/donations/{id:[0-9]+}/refund", admin(h.Donations.Refund)).Methods("POST")

	api.Handle("/campaigns", public(h.Campaigns.List)).Methods("GET")
	api.Handle("/campaigns", user(h.Campaigns.Create)).Methods("POST")
	api.Handle("/campaigns/{id:[0-9]+}", public(h.Campaigns.Get)).Methods("GET")
	api.Handle("/campaigns/{id:[0-9]+}", user(h.Campaigns.Update)).Methods("PATCH")
	api.Handle("/campaigns/{id:[0-9]+}/donate", idempotent(h.Donations.DonateToCampaign)).Methods("POST")
	api.Handle("/campaigns/{id:[0-9]+}/complete", user(h.Campaigns.Complete)).Methods("POST")
	api.Handle("/campaigns/{id:[0-9]+}/report", public(h.Campaigns.Report)).Methods("GET")

	api.Handle("/subscriptions", user(h.Subscriptions.Create)).Methods("POST")
	api.Handle("/subscriptions", user(h.Subscriptions.List)).Methods("GET")
	api.Handle("/subscriptions/{id:[0-9]+}", user(h.Subscriptions.Get)).Methods("GET")
	api.Handle("/subscriptions/{id:[0-9]+}/pause", user(h.Subscriptions.Pause)).Methods("POST")
	api.Handle("/subscriptions/{id:[0-9]+}/resume", user(h.Subscriptions.Resume)).Methods("POST")
	api.Handle("/subscriptions/{id:[0-9]+}/cancel", user(h.Subscriptions.Cancel)).Methods("POST")
	api.Handle("/subscriptions/{id:[0-9]+}/charge", idempotent(h.Subscriptions.Charge)).Methods("POST")

	api.Handle("/zakat/calc", user(h.Zakat.Calculate)).Methods("POST")
	api.Handle("/zakat/me", user(h.Zakat.Mine)).Methods("GET")
	api.Handle("/zakat/nisab", public(h.Zakat.Nisab)).Methods("GET")
	api.Handle("/zakat/{id:[0-9]+}/pay", idempotent(h.Zakat.Pay)).Methods("POST")
	api.Handle("/zakat/{id:[0-9]+}/confirm", admin(h.Zakat.Confirm)).Methods("POST")

	api.Handle("/partners/applications", public(h.Partners.Apply)).Methods("POST")
	api.Handle("/partners/applications", admin(h.Partners.List)).Methods("GET")
	api.Handle("/partners/applications/{id:[0-9]+}", admin(h.Partners.Get)).Methods("GET")
	api.Handle("/partners/applications/{id:[0-9]+}", admin(h.Partners.Review)).Methods("PATCH")

	api.Handle("/search", public(h.Search.Search)).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	return r
}
