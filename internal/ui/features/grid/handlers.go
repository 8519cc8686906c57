// Package grid provides the handlers of the editable sheet page.
package grid

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/ui/features/grid/components"
	"github.com/leapstack-labs/folio/internal/ui/notifier"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	sessionName = "folio"
	sessionKey  = "grid"
)

// Signals are the datastar signals the sheet page sends.
type Signals struct {
	Cell   string `json:"cell"`
	Text   string `json:"text"`
	Target string `json:"target"`
	Active string `json:"active"`
	Over   string `json:"over"`
	Dir    string `json:"dir"`
	Base   bool   `json:"base"`
}

// Handlers provides HTTP handlers for the sheet feature.
type Handlers struct {
	registry     *Registry
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *Registry, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
	}
}

// fetchContext detaches fetches from the request: a started fetch is never
// cancelled.
func fetchContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// workspace returns the session's workspace, creating one for new sessions.
// It must run before any SSE output since it may set a cookie.
func (h *Handlers) workspace(w http.ResponseWriter, r *http.Request) *Workspace {
	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("discarding invalid session", "error", err)
	}
	if id, ok := sess.Values[sessionKey].(string); ok {
		if ws, found := h.registry.Get(id); found {
			return ws
		}
	}
	ws := h.registry.Create(fetchContext(r))
	sess.Values[sessionKey] = ws.ID()
	if err := sess.Save(r, w); err != nil {
		h.logger.Error("failed to save session", "error", err)
	}
	return ws
}

// SheetPage renders the sheet page with the grid server-rendered.
func (h *Handlers) SheetPage(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := components.Page("Holdings", ws.Data(), "/sheet/updates").Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SheetUpdates is the long-lived SSE endpoint of the sheet page. It sends
// nothing initially and re-renders the grid on every ping.
func (h *Handlers) SheetUpdates(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(ws.ID())
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(components.Grid(ws.Data())); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// action wraps a grid event handler: it resolves the workspace, reads the
// signals, applies fn and patches the grid.
func (h *Handlers) action(fn func(r *http.Request, ws *Workspace, s Signals)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := h.workspace(w, r)

		// read signals before creating the SSE, which consumes the body
		var s Signals
		if err := datastar.ReadSignals(r, &s); err != nil {
			sse := datastar.NewSSE(w, r)
			_ = sse.ConsoleError(err)
			return
		}
		fn(r, ws, s)

		sse := datastar.NewSSE(w, r)
		text := ""
		if k, ok := ws.Grid.Editing(); ok {
			text, _ = ws.Grid.Buffer(k)
		}
		if err := sse.MarshalAndPatchSignals(map[string]any{"text": text}); err != nil {
			return
		}
		if err := sse.PatchElementTempl(components.Grid(ws.Data())); err != nil {
			_ = sse.ConsoleError(err)
		}
	}
}

func cellKey(s Signals) (sheet.CellKey, bool) {
	return sheet.ParseCellKey(s.Cell)
}

// Click starts editing the signalled cell.
func (h *Handlers) Click(_ *http.Request, ws *Workspace, s Signals) {
	if k, ok := cellKey(s); ok {
		ws.Grid.Click(k)
	}
}

// Input offers the signalled text as the cell's new buffer.
func (h *Handlers) Input(_ *http.Request, ws *Workspace, s Signals) {
	if k, ok := cellKey(s); ok {
		ws.Grid.Input(k, s.Text)
	}
}

// Blur reports focus leaving the cell. The target is the cell receiving
// focus, if any.
func (h *Handlers) Blur(_ *http.Request, ws *Workspace, s Signals) {
	k, ok := cellKey(s)
	if !ok {
		return
	}
	ws.Grid.Input(k, s.Text)
	target := sheet.NoTarget
	if t, ok := sheet.ParseCellKey(s.Target); ok {
		target = sheet.TargetCell(t)
	}
	ws.Grid.Blur(k, target)
}

// Commit writes the signalled text into the cell's row.
func (h *Handlers) Commit(_ *http.Request, ws *Workspace, s Signals) {
	k, ok := cellKey(s)
	if !ok {
		return
	}
	ws.Grid.Input(k, s.Text)
	ws.Grid.Commit(k)
}

// Cancel discards the cell's buffer.
func (h *Handlers) Cancel(_ *http.Request, ws *Workspace, s Signals) {
	if k, ok := cellKey(s); ok {
		ws.Grid.Cancel(k)
	}
}

// Reorder moves the dragged column onto the drop target's position.
func (h *Handlers) Reorder(_ *http.Request, ws *Workspace, s Signals) {
	ws.Grid.Reorder(s.Active, s.Over)
}

// Move shifts a column one step left or right.
func (h *Handlers) Move(_ *http.Request, ws *Workspace, s Signals) {
	switch s.Dir {
	case "left":
		ws.Grid.MoveLeft(s.Active)
	case "right":
		ws.Grid.MoveRight(s.Active)
	}
}

// ResetOrder restores the layout's column order.
func (h *Handlers) ResetOrder(_ *http.Request, ws *Workspace, _ Signals) {
	ws.Grid.ResetOrder()
}

// AddRow appends a placeholder row.
func (h *Handlers) AddRow(_ *http.Request, ws *Workspace, _ Signals) {
	ws.Grid.AddRow()
}

// DeleteRow removes the row named in the URL.
func (h *Handlers) DeleteRow(r *http.Request, ws *Workspace, _ Signals) {
	ws.Grid.DeleteRow(chi.URLParam(r, "id"))
}

// Save pushes the pending changes to the asset API.
func (h *Handlers) Save(r *http.Request, ws *Workspace, _ Signals) {
	if err := h.registry.Save(fetchContext(r), ws); err == nil {
		h.notifier.Publish(ws.ID())
	}
}

// Reload refetches the grid, switching currency mode when the base signal
// changed.
func (h *Handlers) Reload(r *http.Request, ws *Workspace, s Signals) {
	h.registry.SetBase(fetchContext(r), ws, s.Base)
}
