package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDailyStatRepository_Increment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDailyStatRepository(db)
	webhookID := int64(9)

	tests := []struct {
		name      string
		webhookID *int64
		key       int64
		sample    StatSample
		want      []int
	}{
		{"Webhook row success", &webhookID, 9, StatSample{Successful: true, ElapsedMs: 120}, []int{1, 0, 0, 0}},
		{"Global row delivery failure", nil, 0, StatSample{Failed: true, DeliveryFailure: true, ElapsedMs: 80}, []int{0, 1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id any
			if tt.webhookID != nil {
				id = *tt.webhookID
			}
			mock.ExpectExec("INSERT INTO daily_stats (.+) ON CONFLICT\\(stat_date, webhook_key\\) DO UPDATE").
				WithArgs("2026-10-18", tt.key, id, tt.want[0], tt.want[1], tt.want[2], tt.want[3],
					tt.sample.ElapsedMs, float64(tt.sample.ElapsedMs), tt.sample.ElapsedMs, tt.sample.ElapsedMs,
					sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))

			if err := repo.Increment(context.Background(), db, "2026-10-18", tt.webhookID, tt.sample); err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
		})
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRequestLogRepository_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM request_logs WHERE created_at < ?").
		WithArgs(int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewRequestLogRepository(db).DeleteOlderThan(context.Background(), 1700000000)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 4 {
		t.Errorf("deleted = %d, want 4", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
