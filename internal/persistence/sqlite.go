package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nabha-health/telehealth-auth/internal/config"
)

// SQLite wraps a single-file identity database.
type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens the database at cfg.Path and applies migrations.
// The path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := cfg.Path
	if cfg.Path != ":memory:" {
		cleanPath := filepath.Clean(cfg.Path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	} else {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SQLite free of SQLITE_BUSY and keeps :memory: on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := RunSQLiteMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("opened sqlite", zap.String("path", cfg.Path))
	return &SQLite{DB: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}
