package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"hookbot/internal/platform/models"
)

type RequestLogRepository struct {
	db DBTX
}

func NewRequestLogRepository(db DBTX) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// CreateTx inserts entry through q, which is normally the completion transaction.
func (r *RequestLogRepository) CreateTx(ctx context.Context, q DBTX, entry *models.RequestLog) error {
	headersJSON, err := json.Marshal(entry.Headers)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO request_logs (request_id, webhook_id, method, url, headers, body, status_code, response_body,
			processing_time_ms, validated, delivered, rendered_text, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RequestID, entry.WebhookID, entry.Method, entry.URL, string(headersJSON), entry.Body, entry.StatusCode,
		entry.ResponseBody, entry.ProcessingTimeMs, entry.Validated, entry.Delivered, entry.RenderedText,
		entry.ErrorMessage, entry.CreatedAt)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

// ListRecent returns the newest entries first, optionally filtered to one webhook.
func (r *RequestLogRepository) ListRecent(ctx context.Context, webhookID *int64, limit int) ([]*models.RequestLog, error) {
	query := `SELECT id, request_id, webhook_id, method, url, headers, body, status_code, response_body,
		processing_time_ms, validated, delivered, rendered_text, error_message, created_at
		FROM request_logs`
	args := []any{}
	if webhookID != nil {
		query += ` WHERE webhook_id = ?`
		args = append(args, *webhookID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var l models.RequestLog
		var webhook sql.NullInt64
		var headersStr string
		if err := rows.Scan(&l.ID, &l.RequestID, &webhook, &l.Method, &l.URL, &headersStr, &l.Body, &l.StatusCode,
			&l.ResponseBody, &l.ProcessingTimeMs, &l.Validated, &l.Delivered, &l.RenderedText, &l.ErrorMessage,
			&l.CreatedAt); err != nil {
			return nil, err
		}
		if webhook.Valid {
			l.WebhookID = &webhook.Int64
		}
		json.Unmarshal([]byte(headersStr), &l.Headers)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *RequestLogRepository) DeleteOlderThan(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM request_logs WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
