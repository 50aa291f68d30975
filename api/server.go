/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for the scheduling frontend
 5. Actor:      Reads the identity collaborator's headers into context

ROUTE GROUPS:

	/api/workers/*        Worker management
	/api/locations/*      Locations and kiosk tokens
	/api/shifts/*         Shift lifecycle and clock events
	/api/kiosk/*          PIN-gated shared-tablet flows
	/api/entries/*        Time entry validation and correction
	/api/contracts/*      Framework and per-shift contract signing
	/api/dimona/*         Declaration queue administration
	/api/payroll/*        Cost reports and CSV export
	/api/calendar/*       Public holiday lookups

IDENTITY:

	Authentication is an external collaborator. The gateway in front of
	this service injects X-User-ID, X-Role and X-Worker-ID headers; the
	actor middleware copies them into the request context. Kiosk routes
	skip the actor entirely and authenticate by kiosk token + worker PIN.

SEE ALSO:
  - handlers.go: Handler implementations and error mapping
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/horeca/flexi-engine/identity"
)

type actorKey struct{}

// withActor copies the identity headers into the request context.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := identity.Actor{
			UserID:   r.Header.Get("X-User-ID"),
			Role:     identity.Role(r.Header.Get("X-Role")),
			WorkerID: r.Header.Get("X-Worker-ID"),
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) identity.Actor {
	actor, _ := r.Context().Value(actorKey{}).(identity.Actor)
	return actor
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, metricsEnabled bool) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-Role", "X-Worker-ID"},
		AllowCredentials: true,
	}))
	r.Use(instrumentRequests)

	r.Get("/health", h.Health)
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(withActor)

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.ProvisionWorker)
			r.Get("/{id}", h.GetWorker)
			r.Delete("/{id}", h.DeactivateWorker)
			r.Post("/{id}/ytd-correction", h.CorrectWorkerYTD)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.CreateLocation)
			r.Get("/{id}", h.GetLocation)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Post("/batch", h.CreateShiftBatch)
			r.Get("/{id}", h.GetShift)
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)

			r.Post("/{id}/propose", h.ProposeShift)
			r.Post("/{id}/accept", h.AcceptShift)
			r.Post("/{id}/refuse", h.RefuseShift)
			r.Post("/{id}/cancel", h.CancelShift)

			r.Post("/{id}/clock-in", h.ClockIn)
			r.Post("/{id}/clock-out", h.ClockOut)
		})

		// Kiosk routes authenticate by token + PIN, not by actor.
		r.Route("/kiosk", func(r chi.Router) {
			r.Post("/clock-in", h.KioskClockIn)
			r.Post("/clock-out", h.KioskClockOut)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/{id}/validate", h.ValidateEntry)
			r.Post("/{id}/correct", h.CorrectEntry)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Post("/framework", h.SignFramework)
			r.Post("/shifts/{shiftID}", h.SignShiftContract)
		})

		r.Route("/dimona", func(r chi.Router) {
			r.Get("/declarations", h.ListDeclarations)
			r.Post("/declarations/{id}/push", h.PushDeclaration)
			r.Post("/declarations/{id}/manual-report", h.ManualReport)
			r.Post("/push-ready", h.PushReady)
			r.Post("/retry-errored", h.RetryErrored)
			r.Post("/retry-retractions", h.RetryRetractions)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Post("/regenerate", h.RegeneratePayroll)
			r.Get("/summary", h.PayrollSummary)
			r.Get("/export.csv", h.ExportPayrollCSV)
		})

		r.Get("/calendar/holidays", h.ListHolidays)
	})

	return r
}
