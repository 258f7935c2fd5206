package store

import (
	"context"
	"fmt"
	"time"
)

// InsertReview appends a review to a pattern's history. Reviews are never
// updated or deleted.
func (s *Store) InsertReview(ctx context.Context, r *Review) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO reviews (id, pattern_id, action, feedback, reviewer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.PatternID, r.Action, r.Feedback, r.ReviewerID, r.CreatedAt,
	)
	return err
}

// ListReviews returns a pattern's review history in insertion order. rowid
// breaks ties for reviews created in the same millisecond.
func (s *Store) ListReviews(ctx context.Context, patternID string) ([]*Review, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, pattern_id, action, feedback, reviewer_id, created_at
		FROM reviews WHERE pattern_id = ?
		ORDER BY created_at ASC, rowid ASC`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.PatternID, &r.Action, &r.Feedback,
			&r.ReviewerID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}
