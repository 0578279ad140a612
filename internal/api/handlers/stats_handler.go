package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hookbot/internal/pkg/errors"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/models"
)

const dateLayout = "2006-01-02"

type StatsReader interface {
	Range(ctx context.Context, webhookID *int64, from, to time.Time) ([]*models.DailyStat, error)
}

type SettingsSource interface {
	Current() config.Settings
}

type StatsHandler struct {
	stats    StatsReader
	settings SettingsSource
	now      func() time.Time
}

func NewStatsHandler(stats StatsReader, settings SettingsSource) *StatsHandler {
	return &StatsHandler{stats: stats, settings: settings, now: time.Now}
}

// Get returns daily rows. Without from/to it covers the configured window ending today;
// without webhook_id it returns the global rows.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var webhookID *int64
	if raw := query.Get("webhook_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errors.WriteError(w, errors.BadRequest("Invalid webhook id", fmt.Sprintf("'%s' is not a valid webhook id", raw)))
			return
		}
		webhookID = &id
	}

	to := h.now().UTC()
	window := h.settings.Current().StatsWindowDays
	if window <= 0 {
		window = 30
	}
	from := to.AddDate(0, 0, -(window - 1))

	var err error
	if raw := query.Get("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			errors.WriteError(w, errors.BadRequest("Invalid date", "from must be YYYY-MM-DD"))
			return
		}
	}
	if raw := query.Get("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			errors.WriteError(w, errors.BadRequest("Invalid date", "to must be YYYY-MM-DD"))
			return
		}
	}
	if from.After(to) {
		errors.WriteError(w, errors.BadRequest("Invalid date range", "from must not be after to"))
		return
	}

	rows, err := h.stats.Range(r.Context(), webhookID, from, to)
	if err != nil {
		errors.WriteError(w, errors.Internal("", "Failed to load statistics"))
		return
	}
	if rows == nil {
		rows = []*models.DailyStat{}
	}

	errors.WriteJSON(w, http.StatusOK, map[string]any{
		"from":  from.Format(dateLayout),
		"to":    to.Format(dateLayout),
		"stats": rows,
	})
}
