package patrol

import "github.com/docpatrol/docpatrol/patrol/internal/store"

// Re-exported storage types: callers deal in these, the store owns them.
type (
	Source        = store.Source
	Update        = store.Update
	Pattern       = store.Pattern
	Review        = store.Review
	UsageEvent    = store.UsageEvent
	FetchLogEntry = store.FetchLogEntry
	PatternFilter = store.PatternFilter
	UsageStats    = store.UsageStats
	Stats         = store.Stats
)

// SourceInput carries the mutable fields for creating or updating a source.
type SourceInput struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	Category       string `json:"category"`
	Frequency      string `json:"frequency"`
	Priority       int    `json:"priority"`
	ExtractEnabled *bool  `json:"extract_enabled,omitempty"`
	Active         *bool  `json:"active,omitempty"`
}

// RunRequest selects which sources a monitoring run covers. Exactly one of
// Frequency, SourceIDs, or All should be set; Frequency runs one tier on
// schedule, SourceIDs and All bypass the schedule (manual trigger).
type RunRequest struct {
	Frequency string   `json:"frequency,omitempty"`
	SourceIDs []string `json:"source_ids,omitempty"`
	All       bool     `json:"all,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// SourceRunResult is the per-source outcome of a run.
type SourceRunResult struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Status   string `json:"status"` // success | error
	Changed  bool   `json:"changed"`
	UpdateID string `json:"update_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunResult summarizes one monitoring run.
type RunResult struct {
	Checked int                `json:"checked"`
	Changed int                `json:"changed"`
	Failed  int                `json:"failed"`
	Sources []*SourceRunResult `json:"sources"`
}

// ExtractRequest identifies what to extract patterns from. Exactly one of
// UpdateID, SourceID (latest update), or RawContent should be set.
type ExtractRequest struct {
	UpdateID   string `json:"update_id,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	RawContent string `json:"raw_content,omitempty"`
	Title      string `json:"title,omitempty"`
	// Force re-extracts an already-processed update.
	Force bool `json:"force,omitempty"`
}

// ExtractStats counts outcomes of one extraction.
type ExtractStats struct {
	Total  int `json:"total"`
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// ExtractResult is the outcome of an extraction request.
type ExtractResult struct {
	Patterns []*Pattern   `json:"patterns"`
	Stats    ExtractStats `json:"stats"`
	Skipped  bool         `json:"skipped,omitempty"` // already processed, not forced
}

// ReviewRequest records one moderation action.
type ReviewRequest struct {
	PatternID  string `json:"pattern_id"`
	Action     string `json:"action"`
	Feedback   string `json:"feedback,omitempty"`
	ReviewerID string `json:"reviewer_id"`
}

// ReviewResult returns the review and the pattern with its re-derived
// status.
type ReviewResult struct {
	Review  *Review  `json:"review"`
	Pattern *Pattern `json:"pattern"`
}

// UsageRequest records one pattern use.
type UsageRequest struct {
	PatternID string `json:"pattern_id"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Context   string `json:"context,omitempty"`
}

// ExportRequest selects and formats patterns for export.
type ExportRequest struct {
	Format string        `json:"format"`
	Filter PatternFilter `json:"filter"`
	Limit  int           `json:"limit,omitempty"`
	// TrackUsage records an "exported" usage event per pattern.
	TrackUsage bool   `json:"track_usage,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// ExportResult carries the rendered payload.
type ExportResult struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Count    int    `json:"count"`
}
