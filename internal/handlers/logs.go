package handlers

import (
	"net/http"
	"strconv"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
)

// LogsHandler groups the delivery log HTTP handlers
type LogsHandler struct {
	Repo storage.Repository
	Log  *logger.Logger
}

// List handles GET /api/logs?limit=, most recent entries first
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	logs, err := h.Repo.ListRecentLogs(r.Context(), limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("list logs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	if logs == nil {
		logs = []*models.DeliveryLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"count": len(logs),
	})
}

// Clear handles DELETE /api/logs
func (h *LogsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.ClearLogs(r.Context()); err != nil {
		h.Log.Error().Err(err).Msg("clear logs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logs cleared successfully"})
}
