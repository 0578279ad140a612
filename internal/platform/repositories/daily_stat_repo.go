package repositories

import (
	"context"
	"database/sql"
	"time"

	"hookbot/internal/platform/models"
)

// StatSample is one processed request as seen by a daily rollup row.
type StatSample struct {
	Successful        bool
	Failed            bool
	ValidationFailure bool
	DeliveryFailure   bool
	ElapsedMs         int64
}

type DailyStatRepository struct {
	db DBTX
}

func NewDailyStatRepository(db DBTX) *DailyStatRepository {
	return &DailyStatRepository{db: db}
}

func webhookKey(webhookID *int64) int64 {
	if webhookID == nil {
		return 0
	}
	return *webhookID
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Increment folds one sample into the row for (date, webhookID) in a single statement,
// so concurrent writers to the same row serialize inside SQLite.
func (r *DailyStatRepository) Increment(ctx context.Context, q DBTX, date string, webhookID *int64, s StatSample) error {
	now := time.Now().Unix()
	_, err := q.ExecContext(ctx, `
		INSERT INTO daily_stats (stat_date, webhook_key, webhook_id, total_requests, successful_requests,
			failed_requests, validation_failures, delivery_failures, total_processing_time_ms,
			avg_processing_time_ms, min_processing_time_ms, max_processing_time_ms, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stat_date, webhook_key) DO UPDATE SET
			total_requests = total_requests + 1,
			successful_requests = successful_requests + excluded.successful_requests,
			failed_requests = failed_requests + excluded.failed_requests,
			validation_failures = validation_failures + excluded.validation_failures,
			delivery_failures = delivery_failures + excluded.delivery_failures,
			total_processing_time_ms = total_processing_time_ms + excluded.total_processing_time_ms,
			avg_processing_time_ms = CAST(total_processing_time_ms + excluded.total_processing_time_ms AS REAL) / (total_requests + 1),
			min_processing_time_ms = MIN(min_processing_time_ms, excluded.min_processing_time_ms),
			max_processing_time_ms = MAX(max_processing_time_ms, excluded.max_processing_time_ms),
			updated_at = excluded.updated_at
	`, date, webhookKey(webhookID), webhookID, flag(s.Successful), flag(s.Failed), flag(s.ValidationFailure),
		flag(s.DeliveryFailure), s.ElapsedMs, float64(s.ElapsedMs), s.ElapsedMs, s.ElapsedMs, now, now)
	return err
}

func (r *DailyStatRepository) Get(ctx context.Context, date string, webhookID *int64) (*models.DailyStat, error) {
	rows, err := r.query(ctx, `WHERE stat_date = ? AND webhook_key = ?`, date, webhookKey(webhookID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Range returns rows with from <= stat_date <= to (YYYY-MM-DD), oldest first.
func (r *DailyStatRepository) Range(ctx context.Context, webhookID *int64, from, to string) ([]*models.DailyStat, error) {
	return r.query(ctx, `WHERE webhook_key = ? AND stat_date >= ? AND stat_date <= ? ORDER BY stat_date`,
		webhookKey(webhookID), from, to)
}

func (r *DailyStatRepository) DeleteOlderThan(ctx context.Context, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM daily_stats WHERE stat_date < ?`, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *DailyStatRepository) query(ctx context.Context, where string, args ...any) ([]*models.DailyStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stat_date, webhook_id, total_requests, successful_requests, failed_requests,
			validation_failures, delivery_failures, total_processing_time_ms, avg_processing_time_ms,
			min_processing_time_ms, max_processing_time_ms, created_at, updated_at
		FROM daily_stats `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		var webhook sql.NullInt64
		if err := rows.Scan(&s.ID, &s.StatDate, &webhook, &s.TotalRequests, &s.SuccessfulRequests,
			&s.FailedRequests, &s.ValidationFailures, &s.DeliveryFailures, &s.TotalProcessingTimeMs,
			&s.AvgProcessingTimeMs, &s.MinProcessingTimeMs, &s.MaxProcessingTimeMs, &s.CreatedAt,
			&s.UpdatedAt); err != nil {
			return nil, err
		}
		if webhook.Valid {
			s.WebhookID = &webhook.Int64
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}
