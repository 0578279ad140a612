package handlers

import (
	"encoding/json"
	"net/http"

	"hookbot/internal/pkg/errors"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/config"
)

type SettingsHandler struct {
	store *config.SettingsStore
}

func NewSettingsHandler(store *config.SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	errors.WriteJSON(w, http.StatusOK, h.store.Current())
}

// Update publishes a new snapshot. Fields left out of the body keep their current value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	next := h.store.Current()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		errors.WriteError(w, errors.BadRequest("Invalid request body", err.Error()))
		return
	}
	if next.StatsWindowDays < 1 {
		errors.WriteError(w, errors.BadRequest("Invalid settings", "stats_window_days must be at least 1"))
		return
	}
	if next.NotifyBotID < 0 {
		errors.WriteError(w, errors.BadRequest("Invalid settings", "notify_bot_id must not be negative"))
		return
	}

	h.store.Publish(next)
	log := logger.Component("settings")
	log.Info().
		Bool("logging_enabled", next.LoggingEnabled).
		Int("stats_window_days", next.StatsWindowDays).
		Int64("notify_bot_id", next.NotifyBotID).
		Msg("settings published")

	errors.WriteJSON(w, http.StatusOK, next)
}
