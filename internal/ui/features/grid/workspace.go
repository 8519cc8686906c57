package grid

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/folio/internal/assetapi"
	"github.com/leapstack-labs/folio/internal/sheet"
	"github.com/leapstack-labs/folio/internal/ui/features/grid/components"
	"github.com/leapstack-labs/folio/pkg/core"
)

// Backend is the asset API as seen by the sheet UI.
type Backend interface {
	RowSource(baseCurrency bool) sheet.RowSource
	Options(ctx context.Context) (sheet.Options, error)
	Schema(ctx context.Context) (*sheet.Schema, assetapi.Result[[]core.AssetField])
	AssetStock(ctx context.Context, baseCurrency bool) (*core.StockAssetResponse, error)
	Save(ctx context.Context, ch sheet.Changes) error
}

var _ Backend = (*assetapi.Client)(nil)

// Workspace is one browser session's grid and its display state.
type Workspace struct {
	Grid *sheet.Grid

	mu        sync.Mutex
	base      bool
	status    string
	statusErr bool
	totals    *core.StockAssetResponse
}

// ID returns the workspace's grid id.
func (ws *Workspace) ID() string { return ws.Grid.ID() }

// SetStatus sets the toolbar message.
func (ws *Workspace) SetStatus(msg string, isErr bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.status, ws.statusErr = msg, isErr
}

// Base reports whether amounts are shown in the base currency.
func (ws *Workspace) Base() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.base
}

// Data snapshots the workspace for rendering.
func (ws *Workspace) Data() components.GridData {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return components.GridData{
		View:      ws.Grid.View(),
		Base:      ws.base,
		Dirty:     ws.Grid.Dirty(),
		Status:    ws.status,
		StatusErr: ws.statusErr,
		Totals:    ws.totals,
		Stocks:    ws.Grid.Options().Stocks,
	}
}

// Registry owns the workspaces of all sessions.
type Registry struct {
	backend Backend
	policy  sheet.SignPolicy
	logger  *slog.Logger

	mu     sync.Mutex
	layout *sheet.Schema
	spaces map[string]*Workspace
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Backend Backend
	Policy  sheet.SignPolicy
	// Layout, when set, overrides the API's field configuration.
	Layout *sheet.Schema
	Logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		backend: cfg.Backend,
		policy:  cfg.Policy,
		layout:  cfg.Layout,
		logger:  logger,
		spaces:  make(map[string]*Workspace),
	}
}

// Get returns the workspace of a grid id.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.spaces[id]
	return ws, ok
}

// Len returns the number of workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

// Create registers a new workspace and loads it.
func (r *Registry) Create(ctx context.Context) *Workspace {
	policy := r.policy
	ws := &Workspace{Grid: sheet.New(sheet.Config{Policy: &policy, Logger: r.logger})}
	r.mu.Lock()
	r.spaces[ws.ID()] = ws
	r.mu.Unlock()
	r.Reload(ctx, ws)
	return ws
}

// SetLayout replaces the layout override of every workspace. A nil layout
// returns to the API's field configuration on the next reload.
func (r *Registry) SetLayout(s *sheet.Schema) {
	r.mu.Lock()
	r.layout = s
	spaces := make([]*Workspace, 0, len(r.spaces))
	for _, ws := range r.spaces {
		spaces = append(spaces, ws)
	}
	r.mu.Unlock()
	if s == nil {
		return
	}
	for _, ws := range spaces {
		ws.Grid.SetSchema(s)
	}
}

// SetBase switches a workspace's currency mode and reloads it.
func (r *Registry) SetBase(ctx context.Context, ws *Workspace, base bool) {
	ws.mu.Lock()
	ws.base = base
	ws.mu.Unlock()
	r.Reload(ctx, ws)
}

// Reload refetches the schema, options, rows and totals of ws. Failures
// are logged and reported in the status line; the grid keeps working.
func (r *Registry) Reload(ctx context.Context, ws *Workspace) {
	r.mu.Lock()
	layout := r.layout
	r.mu.Unlock()

	// keep the session's column order unless the columns changed
	setSchema := func(s *sheet.Schema) {
		if !slices.Equal(ws.Grid.Schema().IDs(), s.IDs()) {
			ws.Grid.SetSchema(s)
		}
	}
	if layout != nil {
		setSchema(layout)
	} else if schema, res := r.backend.Schema(ctx); res.OK() {
		setSchema(schema)
	}

	if opts, err := r.backend.Options(ctx); err != nil {
		r.logger.Warn("failed to load sheet options", "error", err)
	} else {
		ws.Grid.SetOptions(opts)
	}

	base := ws.Base()
	res := ws.Grid.Load(ctx, r.backend.RowSource(base))
	totals, err := r.backend.AssetStock(ctx, base)
	if err != nil {
		totals = nil
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.totals = totals
	if res.OK() {
		ws.status, ws.statusErr = "", false
	} else {
		ws.status, ws.statusErr = "Could not load holdings: "+res.Err.Error(), true
	}
}

// Save pushes the pending changes of ws and reloads it on success.
func (r *Registry) Save(ctx context.Context, ws *Workspace) error {
	ch := ws.Grid.Changes()
	if ch.Empty() {
		ws.SetStatus("Nothing to save", false)
		return nil
	}
	if err := r.backend.Save(ctx, ch); err != nil {
		r.logger.Error("failed to save sheet", "grid", ws.ID(), "error", err)
		ws.SetStatus("Save failed: "+err.Error(), true)
		return err
	}
	ws.Grid.MarkSaved()
	r.Reload(ctx, ws)
	ws.SetStatus("Saved", false)
	return nil
}
