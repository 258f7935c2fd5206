package export

import (
	"encoding/csv"
	"reflect"
	"strings"
	"testing"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

func samplePatterns() []*store.Pattern {
	return []*store.Pattern{
		{ID: "p1", Title: "Use cursor pagination", Content: "Prefer cursors over offsets.",
			Category: "best_practice", Confidence: 0.8, Relevance: 0.7, TagsJSON: `["pagination"]`,
			Status: "approved", CreatedAt: 1700000000000},
		{ID: "p2", Title: "v1 endpoints removed", Content: "All /v1/* routes return 410.",
			Category: "breaking_change", Confidence: 0.95, Relevance: 0.9, TagsJSON: "[]",
			Status: "approved", CreatedAt: 1700000000000},
		{ID: "p3", Title: "Example: batch insert", Content: "POST /items/batch with up to 100 rows.",
			Category: "example", Confidence: 0.6, Relevance: 0.5, TagsJSON: "[]",
			Status: "pending", CreatedAt: 1700000000000},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	// WHAT: export → import reproduces the exact pattern set.
	// WHY: JSON is the lossless interchange format; any drift breaks
	// re-import.
	orig := samplePatterns()
	data, mime, err := Export(orig, "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if mime != "application/json" {
		t.Errorf("mime: %q", mime)
	}
	back, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(orig, back) {
		t.Errorf("round trip drift:\norig %+v\nback %+v", orig[0], back[0])
	}
}

func TestCSVShape(t *testing.T) {
	data, mime, err := Export(samplePatterns(), "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if mime != "text/csv" {
		t.Errorf("mime: %q", mime)
	}
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows: got %d, want header + 3", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "p1" {
		t.Errorf("layout: %v", rows[0])
	}
	if rows[1][7] != "pagination" {
		t.Errorf("tags flattening: %q", rows[1][7])
	}
}

func TestMarkdownCriticalFirst(t *testing.T) {
	// WHAT: breaking_change renders before best_practice and example.
	data, _, err := Export(samplePatterns(), "markdown")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := string(data)
	breaking := strings.Index(out, "v1 endpoints removed")
	practice := strings.Index(out, "Use cursor pagination")
	example := strings.Index(out, "Example: batch insert")
	if breaking == -1 || practice == -1 || example == -1 {
		t.Fatalf("missing sections:\n%s", out)
	}
	if !(breaking < practice && practice < example) {
		t.Errorf("ordering: breaking=%d practice=%d example=%d", breaking, practice, example)
	}
}

func TestContextFormatCompact(t *testing.T) {
	data, mime, err := Export(samplePatterns(), "context")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if mime != "text/plain" {
		t.Errorf("mime: %q", mime)
	}
	out := string(data)
	if !strings.Contains(out, "[breaking_change]") {
		t.Errorf("category header missing:\n%s", out)
	}
	if strings.Index(out, "[breaking_change]") > strings.Index(out, "[example]") {
		t.Error("critical group not first")
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, _, err := Export(nil, "xlsx"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEmptyExport(t *testing.T) {
	data, _, err := Export(nil, "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty json: %q", data)
	}
}
