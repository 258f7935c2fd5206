package patrol

import (
	"context"
	"fmt"

	"github.com/docpatrol/docpatrol/patrol/internal/workflow"
)

// Review appends a moderation action to a pattern's history and re-derives
// its status from the full history. The review row is the fact; the status
// column is a cache of the fold.
func (s *Service) Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	if req.PatternID == "" {
		return nil, fmt.Errorf("%w: pattern_id is required", ErrInvalidInput)
	}
	if !workflow.ValidAction(req.Action) {
		return nil, fmt.Errorf("%w: unknown review action %q", ErrInvalidInput, req.Action)
	}
	if req.ReviewerID == "" {
		return nil, fmt.Errorf("%w: reviewer_id is required", ErrInvalidInput)
	}
	if _, err := s.GetPattern(ctx, req.PatternID); err != nil {
		return nil, err
	}

	review := &Review{
		ID:         s.newID(),
		PatternID:  req.PatternID,
		Action:     req.Action,
		Feedback:   req.Feedback,
		ReviewerID: req.ReviewerID,
	}
	if err := s.store.InsertReview(ctx, review); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	history, err := s.store.ListReviews(ctx, req.PatternID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	status := workflow.DeriveStatus(history)
	if err := s.store.SetPatternStatus(ctx, req.PatternID, status, req.ReviewerID); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}

	pattern, err := s.GetPattern(ctx, req.PatternID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review: recorded",
		"pattern_id", req.PatternID, "action", req.Action, "status", status)
	return &ReviewResult{Review: review, Pattern: pattern}, nil
}

// ReviewHistory returns a pattern's full review history in order.
func (s *Service) ReviewHistory(ctx context.Context, patternID string) ([]*Review, error) {
	if _, err := s.GetPattern(ctx, patternID); err != nil {
		return nil, err
	}
	return s.store.ListReviews(ctx, patternID)
}
