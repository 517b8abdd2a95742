/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends
  5. Auth:       Bearer JWT on everything except the tier catalog

ROUTE GROUPS:
  /api/tiers            Public tier catalog
  /api/memberships/*    Subscription (client)
  /api/aircraft/*       Fleet registry (owner)
  /api/bookings/*       Booking ledger (client)
  /api/payments/*       Payment records
  /api/disputes         Dispute reads
  /api/admin/*          Privileged operations (role=admin)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth and role gates
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. jwtSecret is the
// shared HS256 secret of the external identity provider.
func NewRouter(h *Handler, jwtSecret string, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public catalog
		r.Get("/tiers", h.ListTiers)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(Auth(jwtSecret))

			r.Route("/memberships", func(r chi.Router) {
				r.Post("/subscribe", h.Subscribe)
				r.Get("/me", h.GetMyMembership)
			})

			r.Route("/aircraft", func(r chi.Router) {
				r.Get("/", h.ListAircraft)
				r.With(RequireRole(RoleOwner, RoleAdmin)).Post("/", h.RegisterAircraft)
				r.With(RequireRole(RoleOwner, RoleAdmin)).Post("/{ref}/hours", h.AccrueHours)
				r.With(RequireRole(RoleOwner, RoleAdmin)).Post("/{ref}/maintenance", h.RecordMaintenance)
				r.With(RequireRole(RoleOwner, RoleAdmin)).Get("/{ref}/maintenance", h.ListMaintenance)
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Post("/", h.CreateBooking)
				r.Get("/{ref}", h.GetBooking)
				r.Post("/{ref}/cancel", h.CancelBooking)
				r.Post("/{ref}/disputes", h.OpenDispute)
			})

			r.Get("/payments", h.ListPayments)
			r.Get("/disputes", h.ListDisputes)

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(RoleAdmin))

				r.Post("/aircraft/{ref}/approve", h.ApproveAircraft)
				r.Put("/aircraft/{ref}/status", h.SetAircraftStatus)

				r.Put("/bookings/{ref}/status", h.SetBookingStatus)

				r.Post("/disputes/{ref}/review", h.ReviewDispute)
				r.Post("/disputes/{ref}/resolve", h.ResolveDispute)
				r.Post("/disputes/{ref}/close", h.CloseDispute)

				r.Post("/commissions", h.AddCommission)
				r.Get("/commissions", h.ListCommissions)
			})

			// External payment confirmation source (admin credential)
			r.With(RequireRole(RoleAdmin)).Post("/payments/confirm", h.ConfirmPayment)
		})
	})

	return r
}
