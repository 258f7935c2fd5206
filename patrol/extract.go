package patrol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docpatrol/docpatrol/patrol/internal/extractor"
	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// Extract runs pattern extraction for one target: a specific update, the
// latest update of a source, or ad-hoc raw content. Processed updates are
// skipped unless forced.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no AI collaborator configured", ErrInvalidInput)
	}

	switch {
	case req.RawContent != "":
		return s.extractRaw(ctx, req)
	case req.UpdateID != "":
		update, err := s.store.GetUpdate(ctx, req.UpdateID)
		if err != nil {
			return nil, err
		}
		if update == nil {
			return nil, fmt.Errorf("%w: update %s", ErrNotFound, req.UpdateID)
		}
		return s.extractUpdate(ctx, update, req.Force)
	case req.SourceID != "":
		update, err := s.store.LatestUpdate(ctx, req.SourceID)
		if err != nil {
			return nil, err
		}
		if update == nil {
			return nil, fmt.Errorf("%w: source %s has no updates", ErrNotFound, req.SourceID)
		}
		return s.extractUpdate(ctx, update, req.Force)
	default:
		return nil, fmt.Errorf("%w: one of update_id, source_id, or raw_content is required", ErrInvalidInput)
	}
}

// extractUpdate runs the full pipeline for a stored update: AI call, then
// pattern insert and processed flip in one transaction, then queue cleanup.
func (s *Service) extractUpdate(ctx context.Context, update *store.Update, force bool) (*ExtractResult, error) {
	if update.Processed && !force {
		return &ExtractResult{Patterns: []*Pattern{}, Skipped: true}, nil
	}

	sourceName := update.SourceID
	if src, err := s.store.GetSource(ctx, update.SourceID); err == nil && src != nil {
		sourceName = src.Name
	}

	candidates, err := s.extractor.Extract(ctx, sourceName, update.Title, update.Content)
	if err != nil {
		return nil, err
	}

	patterns := s.materialize(candidates, update.ID, update.SourceID)
	if err := s.store.FinishExtraction(ctx, update.ID, patterns); err != nil {
		return nil, fmt.Errorf("finish extraction: %w", err)
	}

	s.logger.Info("extractor: update processed",
		"update_id", update.ID, "patterns", len(patterns))
	return &ExtractResult{
		Patterns: patterns,
		Stats:    ExtractStats{Total: len(candidates), Saved: len(patterns)},
	}, nil
}

// extractRaw extracts from caller-supplied content. Patterns are persisted;
// no update row is involved.
func (s *Service) extractRaw(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	candidates, err := s.extractor.Extract(ctx, "ad-hoc", req.Title, req.RawContent)
	if err != nil {
		return nil, err
	}
	patterns := s.materialize(candidates, "", req.SourceID)
	if len(patterns) > 0 {
		if err := s.store.InsertPatterns(ctx, patterns); err != nil {
			return nil, fmt.Errorf("insert patterns: %w", err)
		}
	}
	return &ExtractResult{
		Patterns: patterns,
		Stats:    ExtractStats{Total: len(candidates), Saved: len(patterns)},
	}, nil
}

// materialize converts extractor candidates into storable patterns.
func (s *Service) materialize(candidates []*extractor.Candidate, updateID, sourceID string) []*Pattern {
	var patterns []*Pattern
	for _, c := range candidates {
		tags, err := json.Marshal(c.Tags)
		if err != nil || c.Tags == nil {
			tags = []byte("[]")
		}
		patterns = append(patterns, &Pattern{
			ID:          s.newID(),
			UpdateID:    updateID,
			SourceID:    sourceID,
			Title:       c.Title,
			Description: c.Description,
			Content:     c.Content,
			Category:    c.Category,
			Confidence:  c.Confidence,
			Relevance:   c.Relevance,
			TagsJSON:    string(tags),
			Status:      "pending",
			ExtractedBy: "ai",
		})
	}
	return patterns
}

// ProcessQueue claims and processes up to max extraction jobs. Returns how
// many were completed. A failed job stays claimed and becomes visible again
// once its visibility timeout lapses.
func (s *Service) ProcessQueue(ctx context.Context, max int) (int, error) {
	if s.extractor == nil {
		return 0, fmt.Errorf("%w: no AI collaborator configured", ErrInvalidInput)
	}
	if max <= 0 {
		max = 10
	}

	done := 0
	for done < max {
		entry, err := s.store.ClaimNext(ctx, s.config.QueueVisibility)
		if err != nil {
			return done, fmt.Errorf("claim queue entry: %w", err)
		}
		if entry == nil {
			return done, nil
		}

		update, err := s.store.GetUpdate(ctx, entry.UpdateID)
		if err != nil {
			s.releaseEntry(ctx, entry.ID)
			return done, err
		}
		if update == nil || update.Processed {
			// The update vanished or was processed out of band; the
			// entry is stale, drop it.
			if err := s.store.RemoveQueueEntry(ctx, entry.ID); err != nil {
				s.logger.Warn("extractor: remove stale entry failed", "entry_id", entry.ID, "error", err)
			}
			continue
		}

		if _, err := s.extractUpdate(ctx, update, false); err != nil {
			// Leave the entry claimed: the visibility timeout doubles as
			// the retry backoff, so this pass moves on to the next job
			// instead of hammering a failing one.
			s.logger.Warn("extractor: job failed, will retry after visibility timeout",
				"entry_id", entry.ID, "update_id", update.ID,
				"attempts", entry.Attempts, "error", err)
			continue
		}
		if err := s.store.RemoveQueueEntry(ctx, entry.ID); err != nil {
			s.logger.Warn("extractor: remove entry failed", "entry_id", entry.ID, "error", err)
		}
		done++
	}
	return done, nil
}

// fastExtract runs extraction inline for a high-priority source right after
// its job was queued. Best effort: on failure the queue entry is untouched
// and the worker picks the update up later, so the fast path can never make
// things worse than the queued path alone.
func (s *Service) fastExtract(ctx context.Context, update *store.Update) {
	if s.extractor == nil {
		return
	}
	res, err := s.extractUpdate(ctx, update, false)
	if err != nil {
		s.logger.Warn("extractor: fast-path failed, update stays queued",
			"update_id", update.ID, "error", err)
		return
	}
	if err := s.store.RemoveQueueEntryByUpdate(ctx, update.ID); err != nil {
		s.logger.Warn("extractor: fast-path dequeue failed", "update_id", update.ID, "error", err)
	}
	s.logger.Info("extractor: fast-path done",
		"update_id", update.ID, "patterns", len(res.Patterns))
}

func (s *Service) releaseEntry(ctx context.Context, id string) {
	if err := s.store.ReleaseQueueEntry(ctx, id); err != nil {
		s.logger.Warn("extractor: release entry failed", "entry_id", id, "error", err)
	}
}

// RunWorker polls the extraction queue until ctx is cancelled.
func (s *Service) RunWorker(ctx context.Context) {
	s.logger.Info("extractor: worker started", "poll", s.config.WorkerPoll)
	ticker := time.NewTicker(s.config.WorkerPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("extractor: worker stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessQueue(ctx, 10); err != nil && ctx.Err() == nil {
				s.logger.Warn("extractor: queue pass failed", "error", err)
			}
		}
	}
}

// GetPattern retrieves a pattern by ID.
func (s *Service) GetPattern(ctx context.Context, id string) (*Pattern, error) {
	p, err := s.store.GetPattern(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: pattern %s", ErrNotFound, id)
	}
	return p, nil
}

// ListPatterns lists patterns matching the filter.
func (s *Service) ListPatterns(ctx context.Context, f PatternFilter, limit, offset int) ([]*Pattern, error) {
	return s.store.ListPatterns(ctx, f, limit, offset)
}
