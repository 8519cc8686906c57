package grid

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/folio/internal/ui/notifier"
)

// SetupRoutes registers the sheet feature routes.
func SetupRoutes(
	router chi.Router,
	registry *Registry,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	h := NewHandlers(registry, sessionStore, notify, logger)

	router.Get("/", h.SheetPage)

	router.Route("/sheet", func(r chi.Router) {
		r.Get("/updates", h.SheetUpdates)

		r.Post("/click", h.action(h.Click))
		r.Post("/input", h.action(h.Input))
		r.Post("/blur", h.action(h.Blur))
		r.Post("/commit", h.action(h.Commit))
		r.Post("/cancel", h.action(h.Cancel))

		r.Post("/reorder", h.action(h.Reorder))
		r.Post("/move", h.action(h.Move))
		r.Post("/reset", h.action(h.ResetOrder))

		r.Post("/rows", h.action(h.AddRow))
		r.Delete("/rows/{id}", h.action(h.DeleteRow))
		r.Post("/save", h.action(h.Save))
		r.Post("/reload", h.action(h.Reload))
	})

	return nil
}
