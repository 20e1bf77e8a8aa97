package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/newsdigest-agent/internal/scheduler"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/pkg/logger"
)

// BotHandler groups the scheduler control HTTP handlers. Refused
// transitions map to short operator-facing messages; internal error
// text is never echoed back.
type BotHandler struct {
	Scheduler *scheduler.Scheduler
	Repo      storage.Repository
	Log       *logger.Logger
}

// Status handles GET /api/status. One call gives the operator UI the
// running flag and the active configuration (null when none exists).
func (h *BotHandler) Status(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Repo.GetActiveConfig(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("get status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": h.Scheduler.Running(),
		"config":  cfg,
	})
}

// Start handles POST /api/bot/start
func (h *BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	err := h.Scheduler.Start(r.Context())

	var missing *scheduler.MissingCredentialsError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "News bot started"})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"message": "News bot is already running"})
	case errors.Is(err, scheduler.ErrNoConfig):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Please configure the bot first"})
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Set the following environment variables: " + strings.Join(missing.Vars, ", "),
		})
	default:
		h.Log.Error().Err(err).Msg("start bot")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

// Stop handles POST /api/bot/stop
func (h *BotHandler) Stop(w http.ResponseWriter, r *http.Request) {
	err := h.Scheduler.Stop()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "News bot stopping. It may take a few seconds to complete.",
		})
	case errors.Is(err, scheduler.ErrNotRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"message": "News bot is not running"})
	default:
		h.Log.Error().Err(err).Msg("stop bot")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

// Test handles POST /api/bot/test: a one-off send limited to one
// article, independent of the loop state.
func (h *BotHandler) Test(w http.ResponseWriter, r *http.Request) {
	success, err := h.Scheduler.RunTest(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrNoConfig):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Please configure the bot first"})
		return
	case err != nil:
		h.Log.Error().Err(err).Msg("test send")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	message := "Test message sent successfully"
	if !success {
		message = "Error sending test message. Check the recipient address format and Twilio credentials."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": success,
		"message": message,
	})
}
