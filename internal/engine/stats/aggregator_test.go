package stats

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hookbot/internal/platform/config"
	"hookbot/internal/platform/database"
	"hookbot/internal/platform/repositories"
	"hookbot/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrations.Apply(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedWebhook(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO bots (name, token, chat_id, created_at, updated_at) VALUES ('b', 't', '1', 0, 0)`)
	if err != nil {
		t.Fatalf("seed bot: %v", err)
	}
	botID, _ := res.LastInsertId()
	res, err = db.Exec(`INSERT INTO webhooks (uuid, name, bot_id, created_at, updated_at) VALUES ('u-1', 'w', ?, 0, 0)`, botID)
	if err != nil {
		t.Fatalf("seed webhook: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestAggregator_Update(t *testing.T) {
	db := setupTestDB(t)
	webhookID := seedWebhook(t, db)
	repo := repositories.NewDailyStatRepository(db)
	agg := NewAggregator(repo)
	agg.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	events := []struct {
		status    int
		elapsed   int64
		validated bool
		delivered bool
	}{
		{200, 120, true, true},
		{502, 40, true, false},
		{401, 5, false, false},
		{302, 300, true, true},
		{200, 35, true, true},
	}
	var total int64
	for _, e := range events {
		total += e.elapsed
		if err := agg.Update(ctx, db, &webhookID, e.status, e.elapsed, e.validated, e.delivered); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if err := agg.Update(ctx, db, nil, 404, 2, false, false); err != nil {
		t.Fatalf("Update(nil) error = %v", err)
	}

	row, err := repo.Get(ctx, "2026-10-18", &webhookID)
	if err != nil || row == nil {
		t.Fatalf("Get() = %v, %v", row, err)
	}

	k := int64(len(events))
	if row.TotalRequests != k {
		t.Errorf("total = %d, want %d", row.TotalRequests, k)
	}
	if row.SuccessfulRequests != 2 || row.FailedRequests != 2 {
		t.Errorf("successful/failed = %d/%d, want 2/2", row.SuccessfulRequests, row.FailedRequests)
	}
	if row.ValidationFailures != 1 || row.DeliveryFailures != 1 {
		t.Errorf("validation/delivery failures = %d/%d, want 1/1", row.ValidationFailures, row.DeliveryFailures)
	}
	if row.TotalProcessingTimeMs != total {
		t.Errorf("total time = %d, want %d", row.TotalProcessingTimeMs, total)
	}
	if want := float64(total) / float64(k); row.AvgProcessingTimeMs != want {
		t.Errorf("avg = %v, want %v", row.AvgProcessingTimeMs, want)
	}
	if row.MinProcessingTimeMs != 5 || row.MaxProcessingTimeMs != 300 {
		t.Errorf("min/max = %d/%d, want 5/300", row.MinProcessingTimeMs, row.MaxProcessingTimeMs)
	}

	global, err := repo.Get(ctx, "2026-10-18", nil)
	if err != nil || global == nil {
		t.Fatalf("Get(global) = %v, %v", global, err)
	}
	if global.WebhookID != nil {
		t.Errorf("global row webhook id = %v, want nil", *global.WebhookID)
	}
	if global.TotalRequests != k+1 || global.MinProcessingTimeMs != 2 {
		t.Errorf("global total/min = %d/%d, want %d/2", global.TotalRequests, global.MinProcessingTimeMs, k+1)
	}
}

func TestAggregator_ConcurrentUpdatesAreNotLost(t *testing.T) {
	db, err := database.NewDB(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "stats.db"),
		MaxConnections: 4,
		BusyTimeout:    10 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	webhookID := seedWebhook(t, db)

	repo := repositories.NewDailyStatRepository(db)
	agg := NewAggregator(repo)

	const n = 40
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(elapsed int64) {
			defer wg.Done()
			err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
				return agg.Update(ctx, tx, &webhookID, 200, elapsed, true, true)
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	row, err := repo.Get(ctx, agg.now().UTC().Format(dateLayout), &webhookID)
	if err != nil || row == nil {
		t.Fatalf("Get() = %v, %v", row, err)
	}
	if row.TotalRequests != n || row.SuccessfulRequests != n {
		t.Errorf("total/successful = %d/%d, want %d", row.TotalRequests, row.SuccessfulRequests, n)
	}
	if want := int64(n * (n + 1) / 2); row.TotalProcessingTimeMs != want {
		t.Errorf("total time = %d, want %d", row.TotalProcessingTimeMs, want)
	}
	if row.MinProcessingTimeMs != 1 || row.MaxProcessingTimeMs != n {
		t.Errorf("min/max = %d/%d", row.MinProcessingTimeMs, row.MaxProcessingTimeMs)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		v, d   bool
		want   repositories.StatSample
	}{
		{"Delivered", 200, true, true, repositories.StatSample{Successful: true}},
		{"Redirect counts neither", 304, true, true, repositories.StatSample{}},
		{"Unauthorized", 401, false, false, repositories.StatSample{Failed: true, ValidationFailure: true}},
		{"Provider failure", 502, true, false, repositories.StatSample{Failed: true, DeliveryFailure: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.status, 0, tt.v, tt.d); got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregator_WindowAndPurge(t *testing.T) {
	db := setupTestDB(t)
	agg := NewAggregator(repositories.NewDailyStatRepository(db))
	ctx := context.Background()

	day := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		agg.now = func() time.Time { return day.AddDate(0, 0, i) }
		if err := agg.Update(ctx, db, nil, 200, 10, true, true); err != nil {
			t.Fatalf("Update() day %d error = %v", i, err)
		}
	}

	// today is 2026-10-10
	rows, err := agg.Window(ctx, nil, 3)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if len(rows) != 3 || rows[0].StatDate != "2026-10-08" {
		t.Fatalf("Window(3) returned %d rows starting %v", len(rows), rows)
	}

	removed, err := agg.Purge(ctx, 5)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 4 {
		t.Errorf("Purge(5) removed %d rows, want 4", removed)
	}

	rows, err = agg.Range(ctx, nil, day, day.AddDate(0, 0, 9))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(rows) != 6 || rows[0].StatDate != "2026-10-05" {
		t.Errorf("after purge: %d rows, first %s", len(rows), rows[0].StatDate)
	}
}
