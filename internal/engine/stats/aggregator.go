package stats

import (
	"context"
	"fmt"
	"time"

	"hookbot/internal/platform/models"
	"hookbot/internal/platform/repositories"
)

const dateLayout = "2006-01-02"

// Aggregator maintains the per-webhook and global daily rollups.
type Aggregator struct {
	repo *repositories.DailyStatRepository
	now  func() time.Time
}

func NewAggregator(repo *repositories.DailyStatRepository) *Aggregator {
	return &Aggregator{repo: repo, now: time.Now}
}

// Classify maps one request outcome onto the rollup counters. Statuses between
// 300 and 399 count toward neither successful nor failed.
func Classify(statusCode int, elapsedMs int64, validated, delivered bool) repositories.StatSample {
	return repositories.StatSample{
		Successful:        statusCode >= 200 && statusCode < 300,
		Failed:            statusCode >= 400,
		ValidationFailure: !validated,
		DeliveryFailure:   validated && !delivered,
		ElapsedMs:         elapsedMs,
	}
}

// Update records one request on q, which should be the caller's transaction.
// A nil webhookID only touches the global row.
func (a *Aggregator) Update(ctx context.Context, q repositories.DBTX, webhookID *int64, statusCode int, elapsedMs int64, validated, delivered bool) error {
	date := a.now().UTC().Format(dateLayout)
	sample := Classify(statusCode, elapsedMs, validated, delivered)

	if webhookID != nil {
		if err := a.repo.Increment(ctx, q, date, webhookID, sample); err != nil {
			return fmt.Errorf("update webhook stats: %w", err)
		}
	}
	if err := a.repo.Increment(ctx, q, date, nil, sample); err != nil {
		return fmt.Errorf("update global stats: %w", err)
	}
	return nil
}

// Range returns daily rows between from and to inclusive (UTC days).
func (a *Aggregator) Range(ctx context.Context, webhookID *int64, from, to time.Time) ([]*models.DailyStat, error) {
	return a.repo.Range(ctx, webhookID, from.UTC().Format(dateLayout), to.UTC().Format(dateLayout))
}

// Window returns the last days of rows ending today.
func (a *Aggregator) Window(ctx context.Context, webhookID *int64, days int) ([]*models.DailyStat, error) {
	if days <= 0 {
		days = 1
	}
	to := a.now()
	return a.Range(ctx, webhookID, to.AddDate(0, 0, -(days-1)), to)
}

// Purge deletes rows older than the window.
func (a *Aggregator) Purge(ctx context.Context, days int) (int64, error) {
	cutoff := a.now().UTC().AddDate(0, 0, -days).Format(dateLayout)
	return a.repo.DeleteOlderThan(ctx, cutoff)
}
