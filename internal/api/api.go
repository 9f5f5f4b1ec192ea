// Package api exposes the service over HTTP: plan listing, member signup,
// subscription updates, charge attempts, reminder triggers, and the
// operator listings. Handlers decode JSON, call the services, and map
// domain errors onto HTTP status codes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/billingkit/internal/catalog"
	"github.com/dmitrymomot/billingkit/internal/ledger"
	"github.com/dmitrymomot/billingkit/internal/payment"
	"github.com/dmitrymomot/billingkit/internal/reminder"
)

// Deps bundles everything the router needs.
type Deps struct {
	Catalog  *catalog.Service
	Ledger   *ledger.Service
	Payments *payment.Service
	Reminder *reminder.Sweeper
	Log      *slog.Logger

	// Health serves GET /health; optional.
	Health http.HandlerFunc
}

// NewRouter builds the HTTP routing table.
func NewRouter(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if deps.Health != nil {
		r.Get("/health", deps.Health)
	}

	r.Get("/plans", h.listPlans)

	r.Route("/members", func(r chi.Router) {
		r.Post("/", h.createMember)
		r.Get("/", h.listMembers)
		r.Get("/paid", h.listPaidMembers)
	})

	r.Put("/subscriptions/{id}", h.updateSubscription)

	r.Post("/payments", h.charge)

	r.Route("/reminders", func(r chi.Router) {
		r.Post("/sweep", h.sweepReminders)
		r.Post("/resend", h.resendReminder)
	})

	return r
}
