package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/folio/internal/portfolio"
	"github.com/leapstack-labs/folio/pkg/core"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Handlers provides the asset API's HTTP handlers.
type Handlers struct {
	svc    *portfolio.Service
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *portfolio.Service, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// Routes registers the API under /api/v1.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bank-accounts", h.BankAccounts)
		r.Get("/stocks", h.Stocks)

		r.Get("/assetstock", h.ListAssets)
		r.Post("/assetstock", h.CreateAssets)
		r.Put("/assetstock", h.UpdateAssets)
		r.Delete("/assetstock/{id}", h.DeleteAsset)

		r.Get("/asset-field", h.AssetFields)
		r.Put("/asset-field", h.SaveAssetFields)
	})
}

// BankAccounts returns the brokerage and account choices.
func (h *Handlers) BankAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.BankAccounts())
}

// Stocks returns the stock catalogue.
func (h *Handlers) Stocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Stocks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListAssets returns the sheet rows and totals.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	base := false
	if v := r.URL.Query().Get("base_currency"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid base_currency %q", v))
			return
		}
		base = b
	}
	resp, err := h.svc.StockAssets(r.Context(), core.DefaultUserID, base)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAssets registers new holdings.
func (h *Handlers) CreateAssets(w http.ResponseWriter, r *http.Request) {
	var reqs []core.AssetRequest
	if !decode(w, r, &reqs) {
		return
	}
	if _, err := h.svc.CreateAssets(r.Context(), core.DefaultUserID, reqs); err != nil {
		h.writeError(w, err)
		return
	}
	writeDetail(w, http.StatusOK, "stock assets created")
}

// UpdateAssets rewrites existing holdings.
func (h *Handlers) UpdateAssets(w http.ResponseWriter, r *http.Request) {
	var reqs []core.AssetRequest
	if !decode(w, r, &reqs) {
		return
	}
	if _, err := h.svc.UpdateAssets(r.Context(), core.DefaultUserID, reqs); err != nil {
		h.writeError(w, err)
		return
	}
	writeDetail(w, http.StatusOK, "stock assets updated")
}

// DeleteAsset removes one holding.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "asset id must be an integer")
		return
	}
	if err := h.svc.DeleteAsset(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeDetail(w, http.StatusOK, "stock asset deleted")
}

// AssetFields returns the field configuration.
func (h *Handlers) AssetFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.svc.AssetFields(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// SaveAssetFields replaces the field configuration and echoes it.
func (h *Handlers) SaveAssetFields(w http.ResponseWriter, r *http.Request) {
	var fields []core.AssetField
	if !decode(w, r, &fields) {
		return
	}
	saved, err := h.svc.SaveAssetFields(r.Context(), fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAsset):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("asset API request failed", "error", err)
	}
	writeDetail(w, status, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, core.Detail{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
