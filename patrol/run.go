package patrol

import (
	"context"
	"fmt"

	"github.com/docpatrol/docpatrol/patrol/internal/scheduler"
	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// Run executes one monitoring pass over the selected sources. Selection is
// by frequency tier (scheduled), explicit IDs, or all active sources; the
// batch cap applies in every mode. A failing source is recorded in the
// result and never aborts the rest of the batch.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.Scheduler.BatchLimit
	}
	if limit <= 0 {
		limit = 10
	}

	var (
		sources []*store.Source
		err     error
	)
	switch {
	case req.Frequency != "":
		interval, ok := scheduler.Intervals[req.Frequency]
		if !ok {
			return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, req.Frequency)
		}
		sources, err = s.store.ClaimDueSources(ctx, req.Frequency, interval, limit)
	case len(req.SourceIDs) > 0:
		sources, err = s.store.ClaimSources(ctx, req.SourceIDs, limit)
	case req.All:
		sources, err = s.store.ClaimAllActive(ctx, limit)
	default:
		return nil, fmt.Errorf("%w: one of frequency, source_ids, or all is required", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("claim sources: %w", err)
	}

	result := &RunResult{Sources: []*SourceRunResult{}}
	for _, src := range sources {
		result.Checked++
		sr := &SourceRunResult{SourceID: src.ID, URL: src.URL}
		result.Sources = append(result.Sources, sr)

		update, err := s.checkSource(ctx, src)
		if err != nil {
			sr.Status = "error"
			sr.Error = err.Error()
			result.Failed++
			continue
		}
		sr.Status = "success"
		sr.Changed = update.Changed
		sr.UpdateID = update.ID
		if update.Changed {
			result.Changed++
		}
	}
	return result, nil
}

// processSource is the scheduler sink: one source, outcome logged.
func (s *Service) processSource(ctx context.Context, src *store.Source) error {
	update, err := s.checkSource(ctx, src)
	if err != nil {
		return err
	}
	s.logger.Info("patrol: source checked",
		"source_id", src.ID, "changed", update.Changed, "update_id", update.ID)
	return nil
}

// checkSource fetches one source, detects change against the latest stored
// update, appends the new update row, enqueues extraction when warranted,
// and applies reliability feedback. A failed fetch creates no update row:
// it is recorded in the fetch log and the source's error state only.
func (s *Service) checkSource(ctx context.Context, src *store.Source) (*store.Update, error) {
	snap, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		s.recordFailure(ctx, src, err)
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}

	// Cold start counts as changed: there is nothing to compare against.
	latest, err := s.store.LatestUpdate(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("latest update: %w", err)
	}
	changed := latest == nil || latest.ContentHash != snap.Hash

	update := &store.Update{
		ID:              s.newID(),
		SourceID:        src.ID,
		Title:           snap.Title,
		Content:         snap.Text,
		Markdown:        snap.Markdown,
		ContentHash:     snap.Hash,
		Changed:         changed,
		FetchMethod:     snap.Method,
		FetchDurationMs: snap.Duration.Milliseconds(),
		StatusCode:      snap.StatusCode,
	}
	if err := s.store.InsertUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("insert update: %w", err)
	}

	status := "unchanged"
	delta := reliabilityUnchanged
	if changed {
		status = "changed"
		delta = reliabilityChanged
	}

	// Best-effort bookkeeping around the update row. Failures here are
	// logged, not returned: the snapshot is already durable.
	if err := s.store.InsertFetchLog(ctx, &store.FetchLogEntry{
		ID: s.newID(), SourceID: src.ID, Status: status,
		StatusCode: snap.StatusCode, ContentHash: snap.Hash,
		DurationMs: snap.Duration.Milliseconds(),
	}); err != nil {
		s.logger.Warn("patrol: fetch log insert failed", "source_id", src.ID, "error", err)
	}
	if err := s.store.RecordFetchSuccess(ctx, src.ID, snap.Hash); err != nil {
		s.logger.Warn("patrol: record success failed", "source_id", src.ID, "error", err)
	}
	if err := s.store.ApplyReliability(ctx, src.ID, delta); err != nil {
		s.logger.Warn("patrol: reliability update failed", "source_id", src.ID, "error", err)
	}

	if changed && src.ExtractEnabled {
		created, err := s.store.Enqueue(ctx, &store.QueueEntry{
			ID:       s.newID(),
			UpdateID: update.ID,
			SourceID: src.ID,
			Priority: src.Priority,
		})
		if err != nil {
			s.logger.Warn("patrol: enqueue failed", "update_id", update.ID, "error", err)
		} else {
			if created {
				s.logger.Info("patrol: extraction queued", "update_id", update.ID, "priority", src.Priority)
			}
			// High-priority sources get an inline attempt on top of the
			// durable entry.
			if s.config.FastPathPriority > 0 && src.Priority >= s.config.FastPathPriority {
				s.fastExtract(ctx, update)
			}
		}
	}

	return update, nil
}

// recordFailure books a failed fetch: fetch log entry, source error state,
// reliability penalty. No update row is created.
func (s *Service) recordFailure(ctx context.Context, src *store.Source, fetchErr error) {
	if err := s.store.InsertFetchLog(ctx, &store.FetchLogEntry{
		ID: s.newID(), SourceID: src.ID, Status: "error",
		ErrorMessage: fetchErr.Error(),
	}); err != nil {
		s.logger.Warn("patrol: fetch log insert failed", "source_id", src.ID, "error", err)
	}
	if err := s.store.RecordFetchError(ctx, src.ID, fetchErr.Error()); err != nil {
		s.logger.Warn("patrol: record error failed", "source_id", src.ID, "error", err)
	}
	if err := s.store.ApplyReliability(ctx, src.ID, reliabilityFailure); err != nil {
		s.logger.Warn("patrol: reliability update failed", "source_id", src.ID, "error", err)
	}
}
