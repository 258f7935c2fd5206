package patrol

import (
	"context"
	"fmt"
)

// usageActions is the set of valid usage event actions.
var usageActions = map[string]bool{
	"viewed":     true,
	"applied":    true,
	"exported":   true,
	"shared":     true,
	"copied":     true,
	"referenced": true,
}

// TrackUsage appends a usage event and bumps the pattern's cached counter.
func (s *Service) TrackUsage(ctx context.Context, req UsageRequest) (*UsageEvent, error) {
	if req.PatternID == "" {
		return nil, fmt.Errorf("%w: pattern_id is required", ErrInvalidInput)
	}
	if !usageActions[req.Action] {
		return nil, fmt.Errorf("%w: unknown usage action %q", ErrInvalidInput, req.Action)
	}
	if _, err := s.GetPattern(ctx, req.PatternID); err != nil {
		return nil, err
	}

	event := &UsageEvent{
		ID:        s.newID(),
		PatternID: req.PatternID,
		UserID:    req.UserID,
		Action:    req.Action,
		Context:   req.Context,
	}
	if err := s.store.InsertUsageEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert usage event: %w", err)
	}
	if err := s.store.BumpUsage(ctx, req.PatternID); err != nil {
		s.logger.Warn("usage: counter bump failed", "pattern_id", req.PatternID, "error", err)
	}
	return event, nil
}

// PatternUsageStats returns usage aggregates recomputed from the event log.
func (s *Service) PatternUsageStats(ctx context.Context, patternID string) (*UsageStats, error) {
	if _, err := s.GetPattern(ctx, patternID); err != nil {
		return nil, err
	}
	return s.store.PatternUsageStats(ctx, patternID, 10)
}
