package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hookbot/internal/platform/config"
)

// DSN builds a go-sqlite3 connection string. Writers take the lock at BEGIN so
// concurrent stat upserts queue on the busy timeout instead of failing on upgrade.
func DSN(path string, busyTimeout time.Duration) string {
	path = strings.TrimPrefix(path, "file:")
	params := fmt.Sprintf("_busy_timeout=%d&_txlock=immediate&_foreign_keys=on", busyTimeout.Milliseconds())
	if path == ":memory:" {
		return "file::memory:?" + params
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&%s", path, params)
}

func NewDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(strings.TrimPrefix(cfg.Path, "file:")); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", DSN(cfg.Path, cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 || cfg.Path == ":memory:" {
		// every connection to :memory: is a separate database
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
