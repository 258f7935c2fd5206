package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docpatrol/docpatrol/llm"
)

// fakeCompleter returns a canned response (or error) and records the last
// request for assertions.
type fakeCompleter struct {
	content string
	err     error
	lastReq llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func TestExtractWellFormed(t *testing.T) {
	fake := &fakeCompleter{content: `[
		{"title": "Pin API version", "content": "Set the X-API-Version header.",
		 "category": "best_practice", "confidence": 0.9, "relevance": 0.8, "tags": ["versioning"]},
		{"title": "v1 auth removed", "content": "Migrate to OAuth2 before 2026-10.",
		 "category": "breaking_change", "confidence": 0.95, "relevance": 0.9}
	]`}
	e := New(fake, Config{}, nil)

	got, err := e.Extract(context.Background(), "acme-docs", "Changelog", "...")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates: got %d", len(got))
	}
	if got[0].Category != "best_practice" || got[1].Category != "breaking_change" {
		t.Errorf("categories: %q %q", got[0].Category, got[1].Category)
	}
	if got[0].Synthetic || got[1].Synthetic {
		t.Error("well-formed output marked synthetic")
	}
}

func TestExtractMalformedDegradesToSynthetic(t *testing.T) {
	// WHAT: Non-JSON output yields exactly one "other" candidate carrying
	// the raw text, not an error.
	// WHY: the model's answer may still be useful to a human; losing it
	// silently would waste the call.
	fake := &fakeCompleter{content: "Sorry, I cannot produce JSON today."}
	e := New(fake, Config{}, nil)

	got, err := e.Extract(context.Background(), "acme-docs", "Changelog", "...")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	c := got[0]
	if !c.Synthetic || c.Category != "other" {
		t.Errorf("synthetic shape: %+v", c)
	}
	if !strings.Contains(c.Description, "cannot produce JSON") {
		t.Errorf("raw output missing from description: %q", c.Description)
	}
	if !strings.Contains(c.Content, "cannot produce JSON") {
		t.Errorf("raw output not preserved: %q", c.Content)
	}
}

func TestSyntheticDescriptionTruncated(t *testing.T) {
	// WHAT: An oversized unparseable response is cut down before it becomes
	// the synthetic candidate's description.
	long := "garbage " + strings.Repeat("x", 200)
	fake := &fakeCompleter{content: long}
	e := New(fake, Config{MaxRawBytes: 64}, nil)

	got, err := e.Extract(context.Background(), "s", "t", "c")
	if err != nil || len(got) != 1 {
		t.Fatalf("extract: %v, %d candidates", err, len(got))
	}
	c := got[0]
	if !strings.HasPrefix(c.Description, "garbage ") {
		t.Errorf("excerpt start lost: %q", c.Description)
	}
	if !strings.HasSuffix(c.Description, "[truncated]") {
		t.Errorf("truncation marker missing: %q", c.Description)
	}
	if len(c.Description) > 64+len("\n[truncated]") {
		t.Errorf("description not capped: %d bytes", len(c.Description))
	}
}

func TestExtractEmptyArrayMeansNothing(t *testing.T) {
	fake := &fakeCompleter{content: "```json\n[]\n```"}
	e := New(fake, Config{}, nil)

	got, err := e.Extract(context.Background(), "s", "t", "c")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestExtractTransportErrorPropagates(t *testing.T) {
	// WHAT: A completion failure is an error, not a synthetic pattern.
	// WHY: the caller must keep the queue entry for retry.
	fake := &fakeCompleter{err: errors.New("connection refused")}
	e := New(fake, Config{}, nil)

	_, err := e.Extract(context.Background(), "s", "t", "c")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractNormalizesScoresAndCategories(t *testing.T) {
	fake := &fakeCompleter{content: `[
		{"title": "a", "content": "x", "category": "Breaking-Change", "confidence": 1.7, "relevance": -0.2},
		{"title": "b", "content": "y", "category": "made_up_category", "confidence": 0.5, "relevance": 0.5}
	]`}
	e := New(fake, Config{}, nil)

	got, err := e.Extract(context.Background(), "s", "t", "c")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got[0].Category != "breaking_change" || got[0].Confidence != 1.0 || got[0].Relevance != 0.0 {
		t.Errorf("normalize: %+v", got[0])
	}
	if got[1].Category != "other" {
		t.Errorf("unknown category: got %q", got[1].Category)
	}
}

func TestExcerptCapAtParagraphBoundary(t *testing.T) {
	para := strings.Repeat("All writes are idempotent. ", 20) // ~540 bytes
	content := para + "\n\n" + para + "\n\n" + para
	e := New(&fakeCompleter{content: "[]"}, Config{MaxExcerptBytes: 1200}, nil)

	_, err := e.Extract(context.Background(), "s", "t", content)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	sent := e.completer.(*fakeCompleter).lastReq.Messages[1].Content
	if !strings.Contains(sent, "[Content truncated for analysis...]") {
		t.Error("truncation marker missing")
	}
	if strings.Count(sent, "idempotent") > 45 {
		t.Errorf("excerpt not capped: %d bytes", len(sent))
	}
}

func TestExcerptUnderCapUntouched(t *testing.T) {
	e := New(&fakeCompleter{content: "[]"}, Config{}, nil)
	if _, err := e.Extract(context.Background(), "s", "t", "short content"); err != nil {
		t.Fatal(err)
	}
	sent := e.completer.(*fakeCompleter).lastReq.Messages[1].Content
	if strings.Contains(sent, "[Content truncated") {
		t.Error("short content was truncated")
	}
}
