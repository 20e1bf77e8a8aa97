package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
)

// ConfigHandler groups the digest configuration HTTP handlers
type ConfigHandler struct {
	Repo storage.Repository
	Log  *logger.Logger
}

// Get handles GET /api/config, returning the active configuration or
// null when none has been created yet.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Repo.GetActiveConfig(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("get config")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

// configRequest is the configure form payload
type configRequest struct {
	Topic           string `json:"topic"`
	Recipient       string `json:"recipient"`
	Country         string `json:"country"`
	Language        string `json:"language"`
	IntervalMinutes int    `json:"interval_minutes"`
	ArticleCount    int    `json:"article_count"`
	Provider        string `json:"provider"`
	FeedURL         string `json:"feed_url"`
}

// Save handles POST /api/config. A validation failure refuses the
// request and leaves any prior configuration untouched; out-of-range
// intervals are clamped by the store, not rejected.
func (h *ConfigHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	cfg := &models.DigestConfig{
		Topic:           req.Topic,
		Recipient:       req.Recipient,
		Country:         req.Country,
		Language:        req.Language,
		IntervalMinutes: req.IntervalMinutes,
		ArticleCount:    req.ArticleCount,
		Provider:        models.Provider(req.Provider),
		FeedURL:         req.FeedURL,
	}

	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	if err := h.Repo.UpsertActiveConfig(r.Context(), cfg); err != nil {
		h.Log.Error().Err(err).Msg("save config")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "could not save configuration"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Configuration saved successfully",
		"config":  cfg,
	})
}
