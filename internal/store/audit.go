package store

import (
	"context"

	"go.uber.org/zap"
)

// LogAudit appends an event to the audit trail. Audit failures are logged
// and swallowed; they must never break a user-facing flow.
func (s *Store) LogAudit(ctx context.Context, eventType, details string) {
	entry := &AuditLog{EventType: eventType, Details: details}
	if _, err := s.db.NewInsert().Model(entry).
		Column("event_type", "details").
		Exec(ctx); err != nil {
		s.logger.Error("Failed to log audit event",
			zap.String("eventType", eventType),
			zap.Error(err),
		)
	}
}

// RecentAuditDetails returns the details of the latest events of a type,
// newest first.
func (s *Store) RecentAuditDetails(ctx context.Context, eventType string, limit int) ([]string, error) {
	var entries []AuditLog
	err := s.db.NewSelect().Model(&entries).
		Where("event_type = ?", eventType).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Details)
	}
	return out, nil
}
