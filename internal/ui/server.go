// Package ui serves the editable holdings sheet in the browser.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/internal/sheet"
	gridFeature "github.com/leapstack-labs/folio/internal/ui/features/grid"
	"github.com/leapstack-labs/folio/internal/ui/notifier"
	"github.com/leapstack-labs/folio/internal/ui/router"
	"golang.org/x/sync/errgroup"
)

// Server is the main UI server.
type Server struct {
	registry     *gridFeature.Registry
	sessionStore *sessions.CookieStore
	api          *portfolio.Service
	port         int
	watch        bool
	layoutPath   string
	dev          bool
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Backend gridFeature.Backend
	// API, when set, is also served under /api/v1.
	API           *portfolio.Service
	Port          int
	Policy        sheet.SignPolicy
	LayoutPath    string
	Watch         bool
	SessionSecret string
	Dev           bool
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance. A configured layout file
// must parse.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var layout *sheet.Schema
	if cfg.LayoutPath != "" {
		var err error
		if layout, err = sheet.LoadLayout(cfg.LayoutPath); err != nil {
			return nil, err
		}
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		registry: gridFeature.NewRegistry(gridFeature.RegistryConfig{
			Backend: cfg.Backend,
			Policy:  cfg.Policy,
			Layout:  layout,
			Logger:  logger,
		}),
		sessionStore: sessionStore,
		api:          cfg.API,
		port:         cfg.Port,
		watch:        cfg.Watch,
		layoutPath:   cfg.LayoutPath,
		dev:          cfg.Dev,
		logger:       logger,
		notifier:     notifier.New(),
	}, nil
}

// Handler returns the routed UI.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		}),
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		Registry:     s.registry,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		API:          s.api,
		IsDev:        s.dev,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.layoutPath != "" {
		eg.Go(func() error {
			return s.watchLayout(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Registry returns the server's workspace registry.
func (s *Server) Registry() *gridFeature.Registry {
	return s.registry
}

// reloadLayout re-reads the layout file into every workspace and pings
// their streams. An invalid file keeps the previous layout.
func (s *Server) reloadLayout() {
	layout, err := sheet.LoadLayout(s.layoutPath)
	if err != nil {
		s.logger.Error("layout reload failed", "path", s.layoutPath, "error", err)
		return
	}
	s.logger.Info("layout reloaded", "path", s.layoutPath, "columns", layout.Len())
	s.registry.SetLayout(layout)
	s.notifier.Broadcast()
}

// watchLayout watches the layout file's directory, since editors often
// replace files rather than write them in place.
func (s *Server) watchLayout(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.layoutPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch layout directory", "error", err)
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != target {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, s.reloadLayout)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
