/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Honors X-Forwarded-For behind a proxy
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for back-office frontends

ROUTE GROUPS:
  /api/loans/*        Loan origination and servicing
  /api/savings/*      Savings accounts
  /api/accounting/*   Chart of accounts, rules, journal, trial balance
  /api/products       Loan products for the org
  /api/setup          Org provisioning from a setup document
  /api/admin/*        Overdue assessment, demo seed
  /health             Liveness probe

SECURITY NOTE:
  No authentication middleware here. Tenancy comes from the X-Org-ID
  header; a gateway in front is expected to authenticate and set it.

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

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerOrg, headerActor},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/setup", h.ApplySetup)
		r.Get("/products", h.ListProducts)

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.SubmitLoan)
			r.Get("/", h.ListLoans)
			r.Get("/{id}", h.GetLoan)
			r.Get("/{id}/schedule", h.GetSchedule)
			r.Get("/{id}/repayments", h.ListRepayments)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/disburse", h.DisburseLoan)
			r.Post("/{id}/repayments", h.RepayLoan)
			r.Post("/{id}/reschedule", h.RescheduleLoan)
		})

		r.Route("/savings", func(r chi.Router) {
			r.Post("/", h.OpenSavings)
			r.Get("/", h.ListSavings)
			r.Post("/{id}/deposits", h.Deposit)
			r.Post("/{id}/withdrawals", h.Withdraw)
			r.Get("/{id}/transactions", h.SavingsPassbook)
		})

		r.Route("/accounting", func(r chi.Router) {
			r.Get("/accounts", h.ListAccounts)
			r.Post("/accounts", h.CreateAccount)
			r.Get("/rules", h.ListRules)
			r.Post("/rules", h.UpsertRule)
			r.Get("/journal-entries", h.ListEntries)
			r.Post("/journal-entries", h.PostManualEntry)
			r.Get("/journal-entries/{id}", h.GetEntry)
			r.Post("/journal-entries/{id}/reverse", h.ReverseEntry)
			r.Get("/trial-balance", h.GetTrialBalance)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/assess-overdue", h.AssessOverdue)
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}
