package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const updateCols = `id, source_id, title, content, markdown, content_hash, changed,
	fetch_method, fetch_duration_ms, status_code, scraped_at, processed, processed_at`

// InsertUpdate appends a content snapshot. Updates are never rewritten.
func (s *Store) InsertUpdate(ctx context.Context, u *Update) error {
	if u.ScrapedAt == 0 {
		u.ScrapedAt = time.Now().UnixMilli()
	}
	if u.FetchMethod == "" {
		u.FetchMethod = "http"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO updates (id, source_id, title, content, markdown, content_hash, changed,
		fetch_method, fetch_duration_ms, status_code, scraped_at, processed, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.SourceID, u.Title, u.Content, u.Markdown, u.ContentHash, u.Changed,
		u.FetchMethod, u.FetchDurationMs, u.StatusCode, u.ScrapedAt, u.Processed, u.ProcessedAt,
	)
	return err
}

// GetUpdate retrieves an update by ID. Returns nil, nil when absent.
func (s *Store) GetUpdate(ctx context.Context, id string) (*Update, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+updateCols+` FROM updates WHERE id = ?`, id)
	u, err := scanUpdateFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan update: %w", err)
	}
	return u, nil
}

// LatestUpdate returns the most recent update for a source, or nil on cold
// start.
func (s *Store) LatestUpdate(ctx context.Context, sourceID string) (*Update, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+updateCols+` FROM updates
		WHERE source_id = ?
		ORDER BY scraped_at DESC, rowid DESC LIMIT 1`, sourceID)
	u, err := scanUpdateFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan update: %w", err)
	}
	return u, nil
}

// ListUpdates returns updates for a source, newest first.
func (s *Store) ListUpdates(ctx context.Context, sourceID string, limit int) ([]*Update, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+updateCols+` FROM updates
		WHERE source_id = ?
		ORDER BY scraped_at DESC, rowid DESC LIMIT ?`, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []*Update
	for rows.Next() {
		u, err := scanUpdateFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// MarkProcessed flips the processed flag exactly once. Returns false when the
// update was already processed (or does not exist).
func (s *Store) MarkProcessed(ctx context.Context, id string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE updates SET processed = 1, processed_at = ?
		WHERE id = ? AND processed = 0`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountUnprocessed returns how many updates still await extraction.
func (s *Store) CountUnprocessed(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM updates WHERE processed = 0`).Scan(&n)
	return n, err
}

func scanUpdateFrom(sc rowScanner) (*Update, error) {
	var u Update
	var changed, processed int
	err := sc.Scan(
		&u.ID, &u.SourceID, &u.Title, &u.Content, &u.Markdown, &u.ContentHash, &changed,
		&u.FetchMethod, &u.FetchDurationMs, &u.StatusCode, &u.ScrapedAt, &processed, &u.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Changed = changed != 0
	u.Processed = processed != 0
	return &u, nil
}
