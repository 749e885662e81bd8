/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, included in error logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for API clients

ROUTE GROUPS:
  /                     Children list
  /children/*           Add child
  /child/{id}/*         Dashboard, transactions, completions
  /workbooks/*          Workbook list and add
  /api/*                JSON API
  /static/*             Embedded stylesheet
  /healthz              Health check

SEE ALSO:
  - pages.go: HTML handlers
  - handlers.go: JSON handlers
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// HTML pages
	r.Get("/", h.Home)

	r.Route("/children", func(r chi.Router) {
		r.Post("/", h.CreateChild)
		r.Get("/new", h.NewChildForm)
	})

	r.Route("/child/{id}", func(r chi.Router) {
		r.Get("/", h.ChildDashboard)
		r.Get("/transaction/new", h.NewTransactionForm)
		r.Post("/transaction", h.CreateTransaction)
		r.Get("/workbook/new", h.NewCompletionForm)
		r.Post("/workbook", h.CreateCompletion)
	})

	r.Route("/workbooks", func(r chi.Router) {
		r.Get("/", h.ListWorkbooks)
		r.Post("/", h.CreateWorkbook)
		r.Get("/new", h.NewWorkbookForm)
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/children", h.APIListChildren)
		r.Get("/workbooks", h.APIListWorkbooks)

		r.Route("/child/{id}", func(r chi.Router) {
			r.Get("/", h.APIChildDashboard)
			r.Get("/transactions", h.APIListTransactions)
			r.Get("/completions", h.APIListCompletions)
		})
	})

	r.Get("/healthz", h.Health)

	// Static files
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	return r
}
