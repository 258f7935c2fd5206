// Package extractor turns a documentation update into candidate patterns by
// way of an AI collaborator.
//
// The extractor is deliberately forgiving about model output: it recovers the
// first well-formed JSON array from fences and prose, and degrades malformed
// output to a single synthetic "other" candidate carrying the raw excerpt so
// a reviewer can salvage it. A transport failure, by contrast, is an error —
// the caller keeps the work queued and retries later.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docpatrol/docpatrol/llm"
)

// Categories are the valid pattern categories.
var Categories = map[string]bool{
	"api_change":      true,
	"best_practice":   true,
	"warning":         true,
	"example":         true,
	"concept":         true,
	"performance":     true,
	"security":        true,
	"breaking_change": true,
	"deprecation":     true,
	"other":           true,
}

// Candidate is one pattern proposed by the collaborator, normalized and
// ready for persistence.
type Candidate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"`
	Relevance   float64  `json:"relevance"`
	Tags        []string `json:"tags"`
	Synthetic   bool     `json:"-"`
}

// Config configures the extractor.
type Config struct {
	// MaxExcerptBytes caps how much update content is sent to the model.
	// Default: 10 KB.
	MaxExcerptBytes int
	// Timeout bounds one model call. Default: 90s.
	Timeout time.Duration
	// Temperature for the completion request. Default: 0.2.
	Temperature float64
	// MaxRawBytes caps the raw excerpt stored on a synthetic candidate.
	// Default: 2 KB.
	MaxRawBytes int
}

func (c *Config) defaults() {
	if c.MaxExcerptBytes <= 0 {
		c.MaxExcerptBytes = 10 * 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxRawBytes <= 0 {
		c.MaxRawBytes = 2 * 1024
	}
}

// Extractor drives pattern extraction through an llm.Completer.
type Extractor struct {
	completer llm.Completer
	config    Config
	logger    *slog.Logger
}

// New creates an Extractor.
func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Extractor {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{completer: completer, config: cfg, logger: logger}
}

// Extract asks the collaborator for patterns in the given content. A nil
// error with candidates is the happy path; malformed model output still
// returns nil error with one synthetic candidate. Only transport/context
// failures return an error.
func (e *Extractor) Extract(ctx context.Context, sourceName, title, content string) ([]*Candidate, error) {
	excerpt := truncateExcerpt(content, e.config.MaxExcerptBytes)

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	temp := e.config.Temperature
	resp, err := e.completer.Complete(callCtx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(sourceName, title, excerpt)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: completion: %w", err)
	}

	candidates, ok := e.parse(resp.Content)
	if !ok {
		e.logger.Warn("extractor: malformed model output, degrading to synthetic candidate",
			"source", sourceName, "output_len", len(resp.Content))
		return []*Candidate{e.synthetic(resp.Content)}, nil
	}
	if len(candidates) == 0 {
		// An empty array is a valid "nothing worth keeping" answer.
		return nil, nil
	}
	return candidates, nil
}

// parse recovers and normalizes the candidate array. ok=false means the
// output could not be interpreted at all.
func (e *Extractor) parse(output string) ([]*Candidate, bool) {
	raw := llm.ExtractJSONArray(output)
	if raw == "" {
		return nil, false
	}
	var parsed []Candidate
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}

	var out []*Candidate
	for i := range parsed {
		c := parsed[i]
		c.Title = strings.TrimSpace(c.Title)
		c.Content = strings.TrimSpace(c.Content)
		if c.Title == "" && c.Content == "" {
			continue
		}
		if c.Title == "" {
			c.Title = firstLine(c.Content, 120)
		}
		if c.Content == "" {
			c.Content = c.Title
		}
		c.Category = normalizeCategory(c.Category)
		c.Confidence = clamp01(c.Confidence)
		c.Relevance = clamp01(c.Relevance)
		out = append(out, &c)
	}
	return out, true
}

// synthetic builds the degraded single-pattern fallback for output that
// could not be parsed. The truncated raw excerpt goes into the description
// (and content) so the failure stays auditable in every listing.
func (e *Extractor) synthetic(output string) *Candidate {
	raw := strings.TrimSpace(output)
	if len(raw) > e.config.MaxRawBytes {
		raw = raw[:e.config.MaxRawBytes] + "\n[truncated]"
	}
	return &Candidate{
		Title:       "Unparseable extraction output",
		Description: raw,
		Content:     raw,
		Category:    "other",
		Confidence:  0.1,
		Relevance:   0.1,
		Tags:        []string{"needs-review"},
		Synthetic:   true,
	}
}

// normalizeCategory lowercases and validates a category, mapping a few
// common variants the model produces.
func normalizeCategory(cat string) string {
	c := strings.ToLower(strings.TrimSpace(cat))
	c = strings.ReplaceAll(c, "-", "_")
	c = strings.ReplaceAll(c, " ", "_")
	switch c {
	case "breaking", "breaking_changes":
		c = "breaking_change"
	case "api_changes", "api":
		c = "api_change"
	case "deprecated", "deprecations":
		c = "deprecation"
	case "best_practices":
		c = "best_practice"
	}
	if !Categories[c] {
		return "other"
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncateExcerpt caps content at maxBytes, preferring a paragraph boundary
// in the second half of the window.
func truncateExcerpt(content string, maxBytes int) string {
	if len(content) <= maxBytes {
		return content
	}
	truncated := content[:maxBytes]
	if lastPara := strings.LastIndex(truncated, "\n\n"); lastPara > maxBytes/2 {
		return truncated[:lastPara] + "\n\n[Content truncated for analysis...]"
	}
	return truncated + "\n\n[Content truncated for analysis...]"
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max]
	}
	return strings.TrimSpace(s)
}
