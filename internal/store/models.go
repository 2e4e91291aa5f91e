package store

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// Task statuses.
const (
	TaskStatusPending   = "Pending"
	TaskStatusCompleted = "Completed"
)

// Task priorities as assigned by triage.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Check-in lifecycle states.
const (
	CheckInPending   = "pending"
	CheckInSent      = "sent"
	CheckInCompleted = "completed"
	CheckInMissed    = "missed"
	CheckInSleeping  = "sleeping"
)

// Productivity types recorded for hourly activity.
const (
	ActivityAligned    = "aligned"
	ActivityBeneficial = "beneficial"
	ActivityWasted     = "wasted"
	ActivitySleeping   = "sleeping"
)

// Task maps the todos table.
type Task struct {
	bun.BaseModel `bun:"table:todos"`

	ID                int64          `bun:"id,pk,autoincrement"`
	Task              string         `bun:"task,notnull"`
	RawInput          string         `bun:"raw_input"`
	Category          string         `bun:"category"`
	Priority          string         `bun:"priority"`
	DueDate           sql.NullString `bun:"due_date"`
	DueTime           sql.NullString `bun:"due_time"`
	IsScheduled       bool           `bun:"is_scheduled"`
	Status            string         `bun:"status"`
	UserClarification sql.NullString `bun:"user_clarification"`
	Reasoning         string         `bun:"reasoning"`
	VaultLinks        sql.NullString `bun:"vault_links"`
	Recurrence        sql.NullString `bun:"recurrence"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,default:current_timestamp"`
	CompletedAt       sql.NullString `bun:"completed_at"`
	UpdatedAt         time.Time      `bun:"updated_at,nullzero,default:current_timestamp"`
}

// Pattern maps the patterns table. Patterns are one-sentence behavioural
// themes learned from repeated pushback overrides.
type Pattern struct {
	bun.BaseModel `bun:"table:patterns"`

	ID          int64        `bun:"id,pk,autoincrement"`
	PatternType string       `bun:"pattern_type"`
	PatternData string       `bun:"pattern_data"`
	Confidence  float64      `bun:"confidence"`
	LastUsed    sql.NullTime `bun:"last_used"`
	UsageCount  int          `bun:"usage_count"`
	CreatedAt   time.Time    `bun:"created_at,nullzero,default:current_timestamp"`
}

// Insight maps the insights table holding generated weekly reports.
type Insight struct {
	bun.BaseModel `bun:"table:insights"`

	ID             int64     `bun:"id,pk,autoincrement"`
	WeekStart      string    `bun:"week_start"`
	WeekEnd        string    `bun:"week_end"`
	ReportMarkdown string    `bun:"report_markdown"`
	MetricsJSON    string    `bun:"metrics_json"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// AuditLog maps the audit_logs table.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EventType string    `bun:"event_type"`
	Details   string    `bun:"details"`
	Timestamp time.Time `bun:"timestamp,nullzero,default:current_timestamp"`
}

// UserConfig maps the user_config table. A single row per chat; the bot is a
// single-user system so in practice there is at most one enabled row.
type UserConfig struct {
	bun.BaseModel `bun:"table:user_config"`

	ID              int64        `bun:"id,pk,autoincrement"`
	ChatID          int64        `bun:"chat_id,unique,notnull"`
	CheckInsEnabled bool         `bun:"check_ins_enabled"`
	IsSleeping      bool         `bun:"is_sleeping"`
	SleepStartTime  sql.NullTime `bun:"sleep_start_time"`
	DefaultWakeTime string       `bun:"default_wake_time"`
	LastWakeTime    sql.NullTime `bun:"last_wake_time"`
	Timezone        string       `bun:"timezone"`
	CreatedAt       time.Time    `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt       time.Time    `bun:"updated_at,nullzero,default:current_timestamp"`
}

// CheckIn maps the check_ins table.
type CheckIn struct {
	bun.BaseModel `bun:"table:check_ins"`

	ID            int64        `bun:"id,pk,autoincrement"`
	ScheduledTime time.Time    `bun:"scheduled_time,notnull"`
	SentTime      sql.NullTime `bun:"sent_time"`
	ResponseTime  sql.NullTime `bun:"response_time"`
	Status        string       `bun:"status"`
	RetryCount    int          `bun:"retry_count"`
	CreatedAt     time.Time    `bun:"created_at,nullzero,default:current_timestamp"`
}

// ActivityLog maps the activity_logs table.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs"`

	ID               int64         `bun:"id,pk,autoincrement"`
	Timestamp        time.Time     `bun:"timestamp,notnull"`
	UserResponse     string        `bun:"user_response"`
	ActivitySummary  string        `bun:"activity_summary"`
	ProductivityType string        `bun:"productivity_type"`
	AlignmentScore   int           `bun:"alignment_score"`
	MatchedTaskID    sql.NullInt64 `bun:"matched_todo_id"`
	Category         string        `bun:"category"`
	Reasoning        string        `bun:"reasoning"`
	CheckInID        int64         `bun:"check_in_id"`
	CreatedAt        time.Time     `bun:"created_at,nullzero,default:current_timestamp"`
}

// ProductivityMetrics maps the productivity_metrics table with per-period
// aggregates computed from check_ins and activity_logs.
type ProductivityMetrics struct {
	bun.BaseModel `bun:"table:productivity_metrics"`

	ID                   int64           `bun:"id,pk,autoincrement"`
	PeriodStart          time.Time       `bun:"period_start,notnull"`
	PeriodEnd            time.Time       `bun:"period_end,notnull"`
	PeriodType           string          `bun:"period_type"`
	TotalCheckIns        int             `bun:"total_check_ins"`
	RespondedCheckIns    int             `bun:"responded_check_ins"`
	MissedCheckIns       int             `bun:"missed_check_ins"`
	SleepingCheckIns     int             `bun:"sleeping_check_ins"`
	AlignedActivities    int             `bun:"aligned_activities"`
	BeneficialActivities int             `bun:"beneficial_activities"`
	WastedActivities     int             `bun:"wasted_activities"`
	AvgAlignmentScore    sql.NullFloat64 `bun:"avg_alignment_score"`
	ProductivityRatio    sql.NullFloat64 `bun:"productivity_ratio"`
	MetricsJSON          sql.NullString  `bun:"metrics_json"`
	CreatedAt            time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}
