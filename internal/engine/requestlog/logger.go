package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"hookbot/internal/pkg/errors"
	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/config"
	"hookbot/internal/platform/database"
	"hookbot/internal/platform/models"
	"hookbot/internal/platform/repositories"
)

type LogWriter interface {
	CreateTx(ctx context.Context, q repositories.DBTX, entry *models.RequestLog) error
}

type StatsUpdater interface {
	Update(ctx context.Context, q repositories.DBTX, webhookID *int64, statusCode int, elapsedMs int64, validated, delivered bool) error
}

type SettingsSource interface {
	Current() config.Settings
}

// Logger tracks in-flight requests and persists each one exactly once.
type Logger struct {
	db       *sql.DB
	logs     LogWriter
	stats    StatsUpdater
	settings SettingsSource
	pending  *xsync.MapOf[string, *models.RequestLog]
	log      zerolog.Logger
	now      func() time.Time
}

func NewLogger(db *sql.DB, logs LogWriter, stats StatsUpdater, settings SettingsSource) *Logger {
	return &Logger{
		db:       db,
		logs:     logs,
		stats:    stats,
		settings: settings,
		pending:  xsync.NewMapOf[string, *models.RequestLog](),
		log:      logger.Component("request_log"),
		now:      time.Now,
	}
}

// Start captures the sanitized request and returns its request id.
func (l *Logger) Start(webhookID *int64, req models.InboundRequest) string {
	id := uuid.NewString()
	l.pending.Store(id, &models.RequestLog{
		RequestID: id,
		WebhookID: webhookID,
		Method:    req.Method,
		URL:       SanitizeURL(req.Path, req.Query),
		Headers:   SanitizeHeaders(req.Header),
		Body:      string(req.Body),
		CreatedAt: l.now().Unix(),
	})
	return id
}

// Annotate applies fn to the pending record. It reports false when the id is unknown.
func (l *Logger) Annotate(requestID string, fn func(*models.RequestLog)) bool {
	found := false
	l.pending.Compute(requestID, func(entry *models.RequestLog, loaded bool) (*models.RequestLog, bool) {
		if !loaded {
			return nil, true
		}
		fn(entry)
		found = true
		return entry, false
	})
	return found
}

// Complete takes the pending record and, in one transaction, persists it (when
// logging is enabled) and folds it into the daily stats.
func (l *Logger) Complete(ctx context.Context, requestID string, statusCode int, responseBody string, elapsedMs int64) error {
	entry, ok := l.pending.LoadAndDelete(requestID)
	if !ok {
		l.log.Error().Str("request_id", requestID).Msg("no pending record for request")
		return errors.Internal("Request log record lost", fmt.Sprintf("No pending request log with id %s", requestID))
	}

	entry.StatusCode = statusCode
	entry.ResponseBody = responseBody
	entry.ProcessingTimeMs = elapsedMs

	settings := l.settings.Current()
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if settings.LoggingEnabled {
			if err := l.logs.CreateTx(ctx, tx, entry); err != nil {
				return fmt.Errorf("persist request log: %w", err)
			}
		}
		return l.stats.Update(ctx, tx, entry.WebhookID, statusCode, elapsedMs, entry.Validated, entry.Delivered)
	})
	if err != nil {
		l.log.Error().Err(err).Str("request_id", requestID).Msg("failed to complete request log")
		return errors.Internal("Failed to record request", err.Error())
	}

	l.log.Debug().Str("request_id", requestID).Int("status", statusCode).Int64("elapsed_ms", elapsedMs).
		Bool("persisted", settings.LoggingEnabled).Msg("request completed")
	return nil
}

// Pending returns the number of in-flight records.
func (l *Logger) Pending() int {
	return l.pending.Size()
}
