/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ACTING MEMBER:
  Every /api route expects an X-Actor-ID header naming the acting family
  member. Resolving that header to a member record stands in for the
  external authentication collaborator; token mechanics are out of scope.

ROUTE GROUPS:
  /api/members/*       Family member management
  /api/templates/*     Chore template authoring
  /api/assignments/*   Listing and state transitions
  /api/adjustments     Manual bonus/deduction ledger
  /api/payouts         Payout ledger
  /api/children/{id}/* Per-child balance and history
  /api/family/balance  Per-child rollup for the acting parent

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Post("/", h.CreateMember)
			r.Get("/", h.ListFamily)
		})

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
			r.Post("/{id}/disable", h.DisableTemplate)
			r.Post("/{id}/enable", h.EnableTemplate)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/{id}/complete", h.CompleteAssignment)
			r.Post("/{id}/approve", h.ApproveAssignment)
			r.Post("/{id}/reject", h.RejectAssignment)
		})

		// Ledger routes
		r.Post("/adjustments", h.CreateAdjustment)
		r.Post("/payouts", h.RecordPayout)

		// Balance routes
		r.Route("/children/{id}", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Get("/adjustments", h.ListAdjustments)
			r.Get("/payouts", h.ListPayouts)
		})
		r.Get("/family/balance", h.FamilyBalances)
	})

	return r
}
