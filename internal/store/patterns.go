package store

import (
	"context"
	"fmt"
)

// ActivePatterns returns learned pattern descriptions above the confidence
// threshold, for inclusion in triage prompts.
func (s *Store) ActivePatterns(ctx context.Context, minConfidence float64) ([]string, error) {
	var patterns []Pattern
	err := s.db.NewSelect().Model(&patterns).
		Where("confidence > ?", minConfidence).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.PatternData)
	}
	return out, nil
}

// SavePattern stores a newly detected pattern.
func (s *Store) SavePattern(ctx context.Context, patternType, description string, confidence float64) error {
	p := &Pattern{
		PatternType: patternType,
		PatternData: description,
		Confidence:  confidence,
		UsageCount:  1,
	}
	if _, err := s.db.NewInsert().Model(p).
		Column("pattern_type", "pattern_data", "confidence", "usage_count").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}
