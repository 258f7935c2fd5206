package patrol

import (
	"context"
	"fmt"

	"github.com/docpatrol/docpatrol/patrol/internal/export"
)

// Export renders patterns matching the filter in the requested format.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if _, ok := export.Formats[req.Format]; !ok {
		return nil, fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, req.Format)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1000
	}
	patterns, err := s.store.ListPatterns(ctx, req.Filter, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}

	data, mime, err := export.Export(patterns, req.Format)
	if err != nil {
		return nil, err
	}

	if req.TrackUsage {
		for _, p := range patterns {
			if _, err := s.TrackUsage(ctx, UsageRequest{
				PatternID: p.ID, UserID: req.UserID, Action: "exported",
				Context: "export:" + req.Format,
			}); err != nil {
				s.logger.Warn("export: usage tracking failed", "pattern_id", p.ID, "error", err)
			}
		}
	}

	s.logger.Info("export: rendered", "format", req.Format, "count", len(patterns))
	return &ExportResult{Data: data, MIMEType: mime, Count: len(patterns)}, nil
}

// ExportFormats lists the supported formats.
func (s *Service) ExportFormats() map[string]export.FormatInfo {
	return export.Formats
}
