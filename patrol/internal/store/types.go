package store

// Source is a monitored documentation source.
type Source struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	Category       string  `json:"category"`
	Frequency      string  `json:"frequency"` // hourly | daily | weekly
	Priority       int     `json:"priority"`  // 1..10
	Reliability    float64 `json:"reliability"`
	ExtractEnabled bool    `json:"extract_enabled"`
	Active         bool    `json:"active"`
	LastScrapedAt  *int64  `json:"last_scraped_at,omitempty"`
	LastHash       string  `json:"last_hash"`
	LastError      string  `json:"last_error"`
	FailCount      int     `json:"fail_count"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

// Update is one content snapshot of a source. Rows are append-only; the
// processed flag flips false→true exactly once.
type Update struct {
	ID              string `json:"id"`
	SourceID        string `json:"source_id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Markdown        string `json:"markdown"`
	ContentHash     string `json:"content_hash"`
	Changed         bool   `json:"changed"`
	FetchMethod     string `json:"fetch_method"`
	FetchDurationMs int64  `json:"fetch_duration_ms"`
	StatusCode      int    `json:"status_code"`
	ScrapedAt       int64  `json:"scraped_at"`
	Processed       bool   `json:"processed"`
	ProcessedAt     *int64 `json:"processed_at,omitempty"`
}

// QueueEntry is one pending extraction job.
type QueueEntry struct {
	ID        string `json:"id"`
	UpdateID  string `json:"update_id"`
	SourceID  string `json:"source_id"`
	Priority  int    `json:"priority"`
	Attempts  int    `json:"attempts"`
	VisibleAt int64  `json:"visible_at"`
	CreatedAt int64  `json:"created_at"`
}

// Pattern is a reusable engineering pattern extracted from an update.
type Pattern struct {
	ID          string  `json:"id"`
	UpdateID    string  `json:"update_id"`
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Content     string  `json:"content"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Relevance   float64 `json:"relevance"`
	TagsJSON    string  `json:"tags_json"`
	Status      string  `json:"status"` // pending | approved | rejected | needs_refinement
	ExtractedBy string  `json:"extracted_by"`
	ApprovedAt  *int64  `json:"approved_at,omitempty"`
	ApprovedBy  string  `json:"approved_by"`
	UsageCount  int     `json:"usage_count"`
	LastUsedAt  *int64  `json:"last_used_at,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Review is one moderation action on a pattern. Append-only.
type Review struct {
	ID         string `json:"id"`
	PatternID  string `json:"pattern_id"`
	Action     string `json:"action"` // approve | reject | refine | request_info
	Feedback   string `json:"feedback"`
	ReviewerID string `json:"reviewer_id"`
	CreatedAt  int64  `json:"created_at"`
}

// UsageEvent records one use of a pattern. Append-only.
type UsageEvent struct {
	ID        string `json:"id"`
	PatternID string `json:"pattern_id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"` // viewed | applied | exported | shared | copied | referenced
	Context   string `json:"context"`
	CreatedAt int64  `json:"created_at"`
}

// FetchLogEntry is one fetch attempt record, success or failure.
type FetchLogEntry struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	Status       string `json:"status"` // changed | unchanged | error
	StatusCode   int    `json:"status_code"`
	ContentHash  string `json:"content_hash"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	FetchedAt    int64  `json:"fetched_at"`
}

// PatternFilter narrows pattern listings and exports.
type PatternFilter struct {
	Status        string
	Category      string
	SourceID      string
	MinConfidence float64
	MinRelevance  float64
	Since         int64 // created_at >= Since when > 0
	Until         int64 // created_at <= Until when > 0
}

// UsageStats aggregates usage_events for one pattern.
type UsageStats struct {
	PatternID   string         `json:"pattern_id"`
	Total       int            `json:"total"`
	UniqueUsers int            `json:"unique_users"`
	ByAction    map[string]int `json:"by_action"`
	Recent      []*UsageEvent  `json:"recent"`
}

// Stats holds aggregate counters for the whole database.
type Stats struct {
	Sources            int `json:"sources"`
	ActiveSources      int `json:"active_sources"`
	Updates            int `json:"updates"`
	UnprocessedUpdates int `json:"unprocessed_updates"`
	QueueDepth         int `json:"queue_depth"`
	Patterns           int `json:"patterns"`
	PendingPatterns    int `json:"pending_patterns"`
	ApprovedPatterns   int `json:"approved_patterns"`
	Reviews            int `json:"reviews"`
	UsageEvents        int `json:"usage_events"`
}
