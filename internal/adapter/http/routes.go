package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all console API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Directory
		r.Get("/employees", h.ListEmployees)
		r.Post("/employees/reload", h.ReloadDirectory)
		r.Get("/employees/{id}", h.GetEmployee)
		r.Put("/employees/{id}", h.EditEmployee)
		r.Post("/employees/{id}/reload", h.ReloadEmployee)

		// Confirmation gate
		r.Post("/employees/{id}/systems/{system}/stage", h.StageToggle)
		r.Get("/pending", h.GetPending)
		r.Post("/pending/confirm", h.ConfirmPending)
		r.Post("/pending/cancel", h.CancelPending)
		r.Get("/inflight", h.ListInFlight)

		// Audit and filter metadata
		r.Get("/history", h.History)
		r.Get("/filters", h.Filters)

		if h.Hub != nil {
			r.Get("/ws", h.Hub.HandleWS)
		}
	})
}
