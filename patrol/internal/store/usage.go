package store

import (
	"context"
	"fmt"
	"time"
)

// InsertUsageEvent appends one usage event.
func (s *Store) InsertUsageEvent(ctx context.Context, e *UsageEvent) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO usage_events (id, pattern_id, user_id, action, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PatternID, e.UserID, e.Action, e.Context, e.CreatedAt,
	)
	return err
}

// PatternUsageStats recomputes usage aggregates from the event log. The
// cached usage_count on patterns is a fast path; this is the authoritative
// read.
func (s *Store) PatternUsageStats(ctx context.Context, patternID string, recentLimit int) (*UsageStats, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	stats := &UsageStats{
		PatternID: patternID,
		ByAction:  make(map[string]int),
	}

	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM usage_events WHERE pattern_id = ?`, patternID).
		Scan(&stats.Total, &stats.UniqueUsers)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM usage_events
		WHERE pattern_id = ? GROUP BY action`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan usage count: %w", err)
		}
		stats.ByAction[action] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := s.DB.QueryContext(ctx,
		`SELECT id, pattern_id, user_id, action, context, created_at
		FROM usage_events WHERE pattern_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, patternID, recentLimit)
	if err != nil {
		return nil, err
	}
	defer recent.Close()
	for recent.Next() {
		var e UsageEvent
		if err := recent.Scan(&e.ID, &e.PatternID, &e.UserID, &e.Action,
			&e.Context, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		stats.Recent = append(stats.Recent, &e)
	}
	return stats, recent.Err()
}
