package patrol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddSource registers a new documentation source. The URL is normalized
// before the dedup check, so trivially different spellings of the same
// address collide.
func (s *Service) AddSource(ctx context.Context, in *SourceInput) (*Source, error) {
	if err := validateSourceInput(in); err != nil {
		return nil, err
	}
	normalized, err := NormalizeSourceURL(in.URL)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	if count >= s.config.MaxSources {
		return nil, fmt.Errorf("%w: max %d sources", ErrQuotaExceeded, s.config.MaxSources)
	}

	existing, err := s.store.GetSourceByURL(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup source: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, normalized)
	}

	src := &Source{
		ID:             s.newID(),
		Name:           in.Name,
		URL:            normalized,
		Category:       in.Category,
		Frequency:      in.Frequency,
		Priority:       in.Priority,
		ExtractEnabled: in.ExtractEnabled == nil || *in.ExtractEnabled,
		Active:         in.Active == nil || *in.Active,
	}
	if err := s.store.InsertSource(ctx, src); err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	s.logger.Info("patrol: source added", "source_id", src.ID, "url", src.URL, "frequency", src.Frequency)
	return src, nil
}

// GetSource retrieves a source by ID.
func (s *Service) GetSource(ctx context.Context, id string) (*Source, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return src, nil
}

// ListSources lists sources, optionally only active ones.
func (s *Service) ListSources(ctx context.Context, activeOnly bool) ([]*Source, error) {
	return s.store.ListSources(ctx, activeOnly)
}

// UpdateSource modifies a source's mutable fields.
func (s *Service) UpdateSource(ctx context.Context, id string, in *SourceInput) (*Source, error) {
	src, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateSourceInput(in); err != nil {
		return nil, err
	}
	normalized, err := NormalizeSourceURL(in.URL)
	if err != nil {
		return nil, err
	}
	if normalized != src.URL {
		other, err := s.store.GetSourceByURL(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, normalized)
		}
	}

	src.Name = in.Name
	src.URL = normalized
	if in.Category != "" {
		src.Category = in.Category
	}
	if in.Frequency != "" {
		src.Frequency = in.Frequency
	}
	if in.Priority != 0 {
		src.Priority = in.Priority
	}
	if in.ExtractEnabled != nil {
		src.ExtractEnabled = *in.ExtractEnabled
	}
	if in.Active != nil {
		src.Active = *in.Active
	}
	if err := s.store.UpdateSource(ctx, src); err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	return src, nil
}

// DisableSource soft-disables a source: it stops being scheduled but its
// history stays queryable.
func (s *Service) DisableSource(ctx context.Context, id string) error {
	err := s.store.SetSourceActive(ctx, id, false)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return err
}

// EnableSource reactivates a disabled source.
func (s *Service) EnableSource(ctx context.Context, id string) error {
	err := s.store.SetSourceActive(ctx, id, true)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return err
}

// DeleteSource hard-deletes a source and cascades to its updates, queue
// entries, and fetch log. Operator cleanup only; DisableSource is the
// everyday path.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.GetSource(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteSource(ctx, id)
}

// FetchHistory returns recent fetch attempts for a source.
func (s *Service) FetchHistory(ctx context.Context, sourceID string, limit int) ([]*FetchLogEntry, error) {
	if _, err := s.GetSource(ctx, sourceID); err != nil {
		return nil, err
	}
	return s.store.FetchHistory(ctx, sourceID, limit)
}
