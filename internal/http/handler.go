package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/reconcile"
	"github.com/spimanov/prdbd/internal/store"
)

type Handler struct {
	Reconciler *reconcile.Reconciler
	Store      *store.DB
	Settings   *store.SettingsRepo
	Logger     *logger.Logger
}

func NewHandler(rc *reconcile.Reconciler, db *store.DB, settings *store.SettingsRepo, log *logger.Logger) *Handler {
	return &Handler{
		Reconciler: rc,
		Store:      db,
		Settings:   settings,
		Logger:     log.WithComponent("http"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
