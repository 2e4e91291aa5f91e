package store

import (
	"context"
	"fmt"
)

// Schema statements are idempotent so Migrate can run on every startup,
// matching the behaviour users expect from a single-file database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task TEXT NOT NULL,
		raw_input TEXT,
		category TEXT,
		priority TEXT,
		due_date DATE,
		due_time TEXT,
		is_scheduled INTEGER DEFAULT 1,
		status TEXT DEFAULT 'Pending',
		user_clarification TEXT,
		reasoning TEXT,
		vault_links TEXT,
		recurrence TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pattern_type TEXT,
		pattern_data TEXT,
		confidence REAL,
		last_used TIMESTAMP,
		usage_count INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS insights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		week_start DATE,
		week_end DATE,
		report_markdown TEXT,
		metrics_json TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT,
		details TEXT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_config (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER UNIQUE NOT NULL,
		check_ins_enabled INTEGER DEFAULT 1,
		is_sleeping INTEGER DEFAULT 0,
		sleep_start_time TIMESTAMP,
		default_wake_time TEXT DEFAULT '08:00',
		last_wake_time TIMESTAMP,
		timezone TEXT DEFAULT 'UTC',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS check_ins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scheduled_time TIMESTAMP NOT NULL,
		sent_time TIMESTAMP,
		response_time TIMESTAMP,
		status TEXT DEFAULT 'pending',
		retry_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL,
		user_response TEXT,
		activity_summary TEXT,
		productivity_type TEXT,
		alignment_score INTEGER,
		matched_todo_id INTEGER,
		category TEXT,
		reasoning TEXT,
		check_in_id INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (matched_todo_id) REFERENCES todos(id),
		FOREIGN KEY (check_in_id) REFERENCES check_ins(id)
	)`,
	`CREATE TABLE IF NOT EXISTS productivity_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_start TIMESTAMP NOT NULL,
		period_end TIMESTAMP NOT NULL,
		period_type TEXT,
		total_check_ins INTEGER DEFAULT 0,
		responded_check_ins INTEGER DEFAULT 0,
		missed_check_ins INTEGER DEFAULT 0,
		sleeping_check_ins INTEGER DEFAULT 0,
		aligned_activities INTEGER DEFAULT 0,
		beneficial_activities INTEGER DEFAULT 0,
		wasted_activities INTEGER DEFAULT 0,
		avg_alignment_score REAL,
		productivity_ratio REAL,
		metrics_json TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_logs(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_type ON activity_logs(productivity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_checkin_scheduled ON check_ins(scheduled_time)`,
	`CREATE INDEX IF NOT EXISTS idx_checkin_status ON check_ins(status)`,
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
