package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sourceCols = `id, name, url, category, frequency, priority, reliability,
	extract_enabled, active, last_scraped_at, last_hash, last_error, fail_count,
	created_at, updated_at`

// InsertSource adds a new source.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.Category == "" {
		src.Category = "general"
	}
	if src.Frequency == "" {
		src.Frequency = "daily"
	}
	if src.Priority == 0 {
		src.Priority = 5
	}
	if src.Reliability == 0 {
		src.Reliability = 0.5
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (id, name, url, category, frequency, priority, reliability,
		extract_enabled, active, last_scraped_at, last_hash, last_error, fail_count,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.URL, src.Category, src.Frequency, src.Priority, src.Reliability,
		src.ExtractEnabled, src.Active, src.LastScrapedAt, src.LastHash, src.LastError,
		src.FailCount, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource retrieves a source by ID. Returns nil, nil when absent.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceCols+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// GetSourceByURL returns the source matching the given URL, or nil.
func (s *Store) GetSourceByURL(ctx context.Context, url string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceCols+` FROM sources WHERE url = ? LIMIT 1`, url)
	return scanSource(row)
}

// ListSources returns sources, optionally only active ones.
func (s *Store) ListSources(ctx context.Context, activeOnly bool) ([]*Source, error) {
	q := `SELECT ` + sourceCols + ` FROM sources`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// UpdateSource updates a source's mutable fields.
func (s *Store) UpdateSource(ctx context.Context, src *Source) error {
	src.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET name=?, url=?, category=?, frequency=?, priority=?,
		extract_enabled=?, active=?, updated_at=?
		WHERE id=?`,
		src.Name, src.URL, src.Category, src.Frequency, src.Priority,
		src.ExtractEnabled, src.Active, src.UpdatedAt, src.ID,
	)
	return err
}

// SetSourceActive flips the active flag (soft disable/enable).
func (s *Store) SetSourceActive(ctx context.Context, id string, active bool) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET active=?, updated_at=? WHERE id=?`,
		active, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSource removes a source (cascades to updates, queue, fetch_log).
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

// CountSources returns the total number of sources.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// ClaimDueSources atomically selects and stamps up to limit active sources of
// the given frequency whose last scrape is older than interval (or who were
// never scraped), oldest first. Stamping last_scraped_at inside the claim
// keeps overlapping runs from fetching the same source twice.
func (s *Store) ClaimDueSources(ctx context.Context, frequency string, interval time.Duration, limit int) ([]*Source, error) {
	now := time.Now().UnixMilli()
	cutoff := now - interval.Milliseconds()
	rows, err := s.DB.QueryContext(ctx,
		`UPDATE sources SET last_scraped_at = ?
		WHERE id IN (
			SELECT id FROM sources
			WHERE active = 1 AND frequency = ?
			  AND (last_scraped_at IS NULL OR last_scraped_at <= ?)
			ORDER BY last_scraped_at ASC NULLS FIRST
			LIMIT ?
		)
		RETURNING `+sourceCols,
		now, frequency, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// ClaimSources stamps last_scraped_at on the given active sources regardless
// of schedule (manual trigger path) and returns the claimed rows.
func (s *Store) ClaimSources(ctx context.Context, ids []string, limit int) ([]*Source, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	now := time.Now().UnixMilli()
	var out []*Source
	for _, id := range ids {
		row := s.DB.QueryRowContext(ctx,
			`UPDATE sources SET last_scraped_at = ?
			WHERE id = ? AND active = 1
			RETURNING `+sourceCols, now, id)
		src, err := scanSource(row)
		if err != nil {
			return nil, err
		}
		if src != nil {
			out = append(out, src)
		}
	}
	return out, nil
}

// ClaimAllActive stamps and returns up to limit active sources, oldest
// scrape first.
func (s *Store) ClaimAllActive(ctx context.Context, limit int) ([]*Source, error) {
	now := time.Now().UnixMilli()
	rows, err := s.DB.QueryContext(ctx,
		`UPDATE sources SET last_scraped_at = ?
		WHERE id IN (
			SELECT id FROM sources WHERE active = 1
			ORDER BY last_scraped_at ASC NULLS FIRST
			LIMIT ?
		)
		RETURNING `+sourceCols, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// ApplyReliability shifts a source's reliability by delta, clamped to [0,1].
func (s *Store) ApplyReliability(ctx context.Context, id string, delta float64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET reliability = MAX(0.0, MIN(1.0, reliability + ?)), updated_at = ?
		WHERE id = ?`, delta, time.Now().UnixMilli(), id)
	return err
}

// RecordFetchSuccess updates a source after a successful fetch.
func (s *Store) RecordFetchSuccess(ctx context.Context, id, hash string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_hash=?, last_error='', fail_count=0, updated_at=?
		WHERE id=?`, hash, now, id)
	return err
}

// RecordFetchError updates a source after a failed fetch.
func (s *Store) RecordFetchError(ctx context.Context, id, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET last_error=?, fail_count=fail_count+1, updated_at=?
		WHERE id=?`, errMsg, now, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSourceFrom(sc rowScanner) (*Source, error) {
	var src Source
	var extractEnabled, active int
	err := sc.Scan(
		&src.ID, &src.Name, &src.URL, &src.Category, &src.Frequency, &src.Priority,
		&src.Reliability, &extractEnabled, &active, &src.LastScrapedAt, &src.LastHash,
		&src.LastError, &src.FailCount, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	src.ExtractEnabled = extractEnabled != 0
	src.Active = active != 0
	return &src, nil
}

func scanSource(row *sql.Row) (*Source, error) {
	src, err := scanSourceFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return src, nil
}

func collectSources(rows *sql.Rows) ([]*Source, error) {
	var sources []*Source
	for rows.Next() {
		src, err := scanSourceFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
