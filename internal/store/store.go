// Package store persists tasks, check-ins, activity logs and learned
// patterns in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the bun handle over SQLite. All methods take a context and
// return explicit errors; callers decide what is fatal.
type Store struct {
	db     *bun.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	// modernc.org/sqlite takes pragmas via _pragma, not the mattn-style
	// _busy_timeout parameter.
	sqldb, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// SQLite handles one writer at a time; keeping a single connection avoids
	// SQLITE_BUSY churn between the bot handlers and the scheduler.
	sqldb.SetMaxOpenConns(1)

	s := &Store{
		db:     bun.NewDB(sqldb, sqlitedialect.New()),
		logger: logger.Named("store"),
	}
	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.logger.Info("Database initialized", zap.String("path", path))
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the bun handle for tests.
func (s *Store) DB() *bun.DB {
	return s.db
}
