package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/docpatrol/docpatrol/dbopen"
)

const patternCols = `id, update_id, source_id, title, description, content, category,
	confidence, relevance, tags_json, status, extracted_by, approved_at, approved_by,
	usage_count, last_used_at, created_at, updated_at`

// InsertPattern adds an extracted pattern.
func (s *Store) InsertPattern(ctx context.Context, p *Pattern) error {
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = now
	}
	if p.Category == "" {
		p.Category = "other"
	}
	if p.Status == "" {
		p.Status = "pending"
	}
	if p.ExtractedBy == "" {
		p.ExtractedBy = "ai"
	}
	if p.TagsJSON == "" {
		p.TagsJSON = "[]"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO patterns (id, update_id, source_id, title, description, content,
		category, confidence, relevance, tags_json, status, extracted_by, approved_at,
		approved_by, usage_count, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UpdateID, p.SourceID, p.Title, p.Description, p.Content,
		p.Category, p.Confidence, p.Relevance, p.TagsJSON, p.Status, p.ExtractedBy,
		p.ApprovedAt, p.ApprovedBy, p.UsageCount, p.LastUsedAt, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// InsertPatterns inserts a batch of patterns in one transaction so an
// extraction lands all-or-nothing. Retries on SQLITE_BUSY.
func (s *Store) InsertPatterns(ctx context.Context, patterns []*Pattern) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		return insertPatternsTx(ctx, tx, patterns)
	})
}

// FinishExtraction persists an update's patterns and flips the update to
// processed in the same transaction. Either both land or neither does, so a
// retried job can never insert a second copy of patterns whose processed
// flip was lost. Retries on SQLITE_BUSY.
func (s *Store) FinishExtraction(ctx context.Context, updateID string, patterns []*Pattern) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := insertPatternsTx(ctx, tx, patterns); err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`UPDATE updates SET processed = 1, processed_at = ? WHERE id = ?`,
			now, updateID); err != nil {
			return fmt.Errorf("mark processed %s: %w", updateID, err)
		}
		return nil
	})
}

func insertPatternsTx(ctx context.Context, tx *sql.Tx, patterns []*Pattern) error {
	now := time.Now().UnixMilli()
	for _, p := range patterns {
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}
		if p.UpdatedAt == 0 {
			p.UpdatedAt = now
		}
		if p.Category == "" {
			p.Category = "other"
		}
		if p.Status == "" {
			p.Status = "pending"
		}
		if p.ExtractedBy == "" {
			p.ExtractedBy = "ai"
		}
		if p.TagsJSON == "" {
			p.TagsJSON = "[]"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO patterns (id, update_id, source_id, title, description, content,
			category, confidence, relevance, tags_json, status, extracted_by, approved_at,
			approved_by, usage_count, last_used_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UpdateID, p.SourceID, p.Title, p.Description, p.Content,
			p.Category, p.Confidence, p.Relevance, p.TagsJSON, p.Status, p.ExtractedBy,
			p.ApprovedAt, p.ApprovedBy, p.UsageCount, p.LastUsedAt, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert pattern %s: %w", p.ID, err)
		}
	}
	return nil
}

// GetPattern retrieves a pattern by ID. Returns nil, nil when absent.
func (s *Store) GetPattern(ctx context.Context, id string) (*Pattern, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+patternCols+` FROM patterns WHERE id = ?`, id)
	p, err := scanPatternFrom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pattern: %w", err)
	}
	return p, nil
}

// ListPatterns returns patterns matching the filter, newest first.
func (s *Store) ListPatterns(ctx context.Context, f PatternFilter, limit, offset int) ([]*Pattern, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := patternFilterSQL(f)
	q := `SELECT ` + patternCols + ` FROM patterns` + where +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*Pattern
	for rows.Next() {
		p, err := scanPatternFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// SetPatternStatus updates the derived status of a pattern. When the new
// status is approved, approvedAt/approvedBy are stamped; otherwise they are
// cleared.
func (s *Store) SetPatternStatus(ctx context.Context, id, status, reviewerID string) error {
	now := time.Now().UnixMilli()
	if status == "approved" {
		_, err := s.DB.ExecContext(ctx,
			`UPDATE patterns SET status=?, approved_at=?, approved_by=?, updated_at=?
			WHERE id=?`, status, now, reviewerID, now, id)
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE patterns SET status=?, approved_at=NULL, approved_by='', updated_at=?
		WHERE id=?`, status, now, id)
	return err
}

// BumpUsage increments the cached usage counter and stamps last_used_at. The
// usage_events table remains the source of truth; this is a read-path cache.
func (s *Store) BumpUsage(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE patterns SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
	return err
}

func patternFilterSQL(f PatternFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.SourceID != "" {
		conds = append(conds, "source_id = ?")
		args = append(args, f.SourceID)
	}
	if f.MinConfidence > 0 {
		conds = append(conds, "confidence >= ?")
		args = append(args, f.MinConfidence)
	}
	if f.MinRelevance > 0 {
		conds = append(conds, "relevance >= ?")
		args = append(args, f.MinRelevance)
	}
	if f.Since > 0 {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.Until)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPatternFrom(sc rowScanner) (*Pattern, error) {
	var p Pattern
	err := sc.Scan(
		&p.ID, &p.UpdateID, &p.SourceID, &p.Title, &p.Description, &p.Content,
		&p.Category, &p.Confidence, &p.Relevance, &p.TagsJSON, &p.Status, &p.ExtractedBy,
		&p.ApprovedAt, &p.ApprovedBy, &p.UsageCount, &p.LastUsedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
