package store

import (
	"context"
	"fmt"
	"time"
)

// InsertFetchLog records one fetch attempt, success or failure.
func (s *Store) InsertFetchLog(ctx context.Context, e *FetchLogEntry) error {
	if e.FetchedAt == 0 {
		e.FetchedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO fetch_log (id, source_id, status, status_code, content_hash,
		error_message, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceID, e.Status, e.StatusCode, e.ContentHash,
		e.ErrorMessage, e.DurationMs, e.FetchedAt,
	)
	return err
}

// FetchHistory returns recent fetch attempts for a source, newest first.
func (s *Store) FetchHistory(ctx context.Context, sourceID string, limit int) ([]*FetchLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, source_id, status, status_code, content_hash,
		error_message, duration_ms, fetched_at
		FROM fetch_log WHERE source_id = ?
		ORDER BY fetched_at DESC, rowid DESC LIMIT ?`, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		var statusCode *int
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Status, &statusCode,
			&e.ContentHash, &e.ErrorMessage, &e.DurationMs, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		if statusCode != nil {
			e.StatusCode = *statusCode
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
