/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Recoverer:  Panic recovery (500 instead of crash)
  2. RequestID:  Unique ID per request for tracing
  3. RealIP:     Client address behind a proxy
  4. Logging:    One zerolog line per request
  5. Timeout:    60s request deadline
  6. CORS:       Cross-origin requests for the frontend
  7. Actor:      X-Actor-ID / X-Actor-Role (all /api routes)

ROUTE GROUPS:
  /health                  Liveness
  /api/employees/*         Employees, working hours, entries, absences,
                           balances, vacation, compliance, ledger
  /api/entries/*           Entry update/delete
  /api/absences/*          Absence delete
  /api/change-requests/*   Change request workflow
  /api/closures/*          Company closures
  /api/holidays/*          Public holidays
  /api/compliance          Compliance overview (admin)
  /api/audit               Audit trail (admin)

SECURITY NOTE:
  Authentication happens in front of this service; the actor headers are
  trusted as given.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(cfg.Log.With().Str("component", "http").Logger()))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderActorID, HeaderActorRole},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(actorMiddleware)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Put("/", h.UpdateEmployee)
				r.Post("/deactivate", h.DeactivateEmployee)

				r.Get("/working-hours", h.ListWorkingHours)
				r.Post("/working-hours", h.AddWorkingHours)
				r.Delete("/working-hours/{changeID}", h.DeleteWorkingHours)

				r.Get("/entries", h.ListEntries)
				r.Post("/entries", h.CreateEntry)
				r.Get("/absences", h.ListAbsences)
				r.Post("/absences", h.CreateAbsence)

				r.Get("/target", h.GetTarget)
				r.Get("/balance", h.GetBalance)
				r.Get("/vacation", h.GetVacation)
				r.Get("/compliance", h.GetCompliance)
				r.Get("/ledger", h.GetLedger)
				r.Post("/ledger/recompute", h.RecomputeLedger)
			})
		})

		// Entry and absence routes
		r.Put("/entries/{id}", h.UpdateEntry)
		r.Delete("/entries/{id}", h.DeleteEntry)
		r.Get("/absences/calendar", h.AbsenceCalendar)
		r.Delete("/absences/{id}", h.DeleteAbsence)

		// Change request routes
		r.Route("/change-requests", func(r chi.Router) {
			r.Get("/", h.ListChangeRequests)
			r.Post("/", h.SubmitChangeRequest)
			r.Get("/{id}", h.GetChangeRequest)
			r.Delete("/{id}", h.WithdrawChangeRequest)
			r.Post("/{id}/approve", h.ApproveChangeRequest)
			r.Post("/{id}/reject", h.RejectChangeRequest)
		})

		// Closure routes
		r.Route("/closures", func(r chi.Router) {
			r.Get("/", h.ListClosures)
			r.Post("/", h.CreateClosure)
			r.Delete("/{id}", h.DeleteClosure)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/sync", h.SyncHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/compliance", h.ComplianceOverview)
		r.Get("/reports/monthly", h.MonthlyReport)
		r.Get("/reports/yearly-absences", h.YearlyAbsences)
		r.Get("/audit", h.GetAuditTrail)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
