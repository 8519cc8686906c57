// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/server"
	gridFeature "github.com/leapstack-labs/folio/internal/ui/features/grid"
	"github.com/leapstack-labs/folio/internal/ui/notifier"
	"github.com/leapstack-labs/folio/internal/ui/resources"
	"github.com/starfederation/datastar-go/datastar"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Registry     *gridFeature.Registry
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	// API, when set, is served in-process under /api/v1.
	API    *portfolio.Service
	IsDev  bool
	Logger *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	if deps.IsDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())

	if deps.API != nil {
		server.NewHandlers(deps.API, deps.Logger).Routes(router)
	}

	return gridFeature.SetupRoutes(router, deps.Registry, deps.SessionStore, deps.Notifier, deps.Logger)
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
