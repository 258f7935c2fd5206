package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const queueCols = `id, update_id, source_id, priority, attempts, visible_at, created_at`

// Enqueue inserts an extraction job for an update. The unique index on
// update_id makes this idempotent: a second enqueue for the same update is a
// no-op. Returns true when a new entry was created.
func (s *Store) Enqueue(ctx context.Context, e *QueueEntry) (bool, error) {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	if e.Priority == 0 {
		e.Priority = 5
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO extraction_queue
		(id, update_id, source_id, priority, attempts, visible_at, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)`,
		e.ID, e.UpdateID, e.SourceID, e.Priority, e.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClaimNext atomically picks the highest-priority visible entry (FIFO within
// a priority level), hides it for the visibility duration, and returns it.
// Returns nil, nil when the queue is empty. Crashed workers release their
// claim implicitly when the visibility window lapses.
func (s *Store) ClaimNext(ctx context.Context, visibility time.Duration) (*QueueEntry, error) {
	now := time.Now()
	hideUntil := now.Add(visibility).UnixMilli()

	row := s.DB.QueryRowContext(ctx, `
		UPDATE extraction_queue
		SET visible_at = ?, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM extraction_queue
			WHERE visible_at <= ?
			ORDER BY priority DESC, created_at ASC, rowid ASC
			LIMIT 1
		)
		RETURNING `+queueCols,
		hideUntil, now.UnixMilli(),
	)

	var e QueueEntry
	err := row.Scan(&e.ID, &e.UpdateID, &e.SourceID, &e.Priority,
		&e.Attempts, &e.VisibleAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RemoveQueueEntry deletes a completed (or skipped) entry. Exactly-once by
// construction: the second delete affects zero rows.
func (s *Store) RemoveQueueEntry(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM extraction_queue WHERE id = ?`, id)
	return err
}

// RemoveQueueEntryByUpdate deletes the entry for an update, claimed or not.
// Used when an update is extracted outside the worker loop.
func (s *Store) RemoveQueueEntryByUpdate(ctx context.Context, updateID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM extraction_queue WHERE update_id = ?`, updateID)
	return err
}

// ReleaseQueueEntry makes a claimed entry immediately visible again so another
// worker can pick it up.
func (s *Store) ReleaseQueueEntry(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE extraction_queue SET visible_at = 0 WHERE id = ?`, id)
	return err
}

// QueueDepth returns the number of entries, claimed or not.
func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM extraction_queue`).Scan(&n)
	return n, err
}
