package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/peer"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)

	r.Post("/api/pass", h.RunPass)
	r.Get("/api/pass/last", h.LastPass)

	r.Get("/api/records", h.ListRecords)
	r.Get("/api/duplicates", h.Duplicates)

	r.Get("/api/sync/export", h.Export)
	r.Post("/api/sync/import", h.Import)

	r.Get("/api/peer", h.GetPeer)
	r.Put("/api/peer", h.SetPeer)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.Count()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": count,
	})
}

// RunPass triggers a reconciliation pass and returns its summary. Only
// one pass runs at a time.
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reconciler.RunPass(r.Context())
	switch {
	case errors.Is(err, domain.ErrPassRunning):
		h.writeError(w, http.StatusConflict, err)
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err)
	default:
		h.writeJSON(w, http.StatusOK, summary)
	}
}

func (h *Handler) LastPass(w http.ResponseWriter, r *http.Request) {
	summary := h.Reconciler.LastSummary()
	if summary == nil {
		h.writeError(w, http.StatusNotFound, errors.New("no pass has run yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	distance := constants.DefaultHammingDistance
	if s := r.URL.Query().Get("distance"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d < 0 || d > 32 {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("distance must be 0..32, got %q", s))
			return
		}
		distance = d
	}

	pairs, err := h.Store.DuplicateCandidates(distance)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pairs)
}

// Export serves the local store snapshot as a sync batch; this is the
// endpoint a remote HTTPPeer fetches from.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Reconciler.ExportBatch(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// Import accepts a sync batch and merges it into the local store.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	batch, err := peer.DecodeBatch(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	applied, err := h.Reconciler.ImportBatch(r.Context(), batch)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := h.Settings.Set(constants.SettingLastSyncOperation, batch.OperationID); err != nil {
		h.Logger.Warn("failed to record sync operation id", "error", err)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"operation_id": batch.OperationID,
		"received":     len(batch.Records),
		"applied":      applied,
	})
}

type peerConfig struct {
	URL  string `json:"url"`
	File string `json:"file"`
}

func (h *Handler) GetPeer(w http.ResponseWriter, r *http.Request) {
	url, err := h.Settings.Get(constants.SettingPeerURL)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	file, err := h.Settings.Get(constants.SettingPeerFile)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, peerConfig{URL: url, File: file})
}

// SetPeer reconfigures the remote peer: a URL for a live instance, a
// file path for a shared-folder exchange, or neither to disable the
// remote merge. The choice is persisted across restarts.
func (h *Handler) SetPeer(w http.ResponseWriter, r *http.Request) {
	var cfg peerConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.URL != "" && cfg.File != "" {
		h.writeError(w, http.StatusBadRequest, errors.New("url and file are mutually exclusive"))
		return
	}

	switch {
	case cfg.URL != "":
		h.Reconciler.SetPeer(peer.NewHTTPPeer(cfg.URL, nil))
	case cfg.File != "":
		h.Reconciler.SetPeer(peer.NewFilePeer(cfg.File))
	default:
		h.Reconciler.SetPeer(nil)
	}

	if err := h.Settings.Set(constants.SettingPeerURL, cfg.URL); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.Settings.Set(constants.SettingPeerFile, cfg.File); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.Logger.Info("peer reconfigured", "url", cfg.URL, "file", cfg.File)
	h.writeJSON(w, http.StatusOK, cfg)
}
