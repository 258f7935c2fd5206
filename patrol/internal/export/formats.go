package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// exportJSON is the lossless projection: every stored field survives a
// round-trip through encoding/json.
func exportJSON(patterns []*store.Pattern) ([]byte, error) {
	if patterns == nil {
		patterns = []*store.Pattern{}
	}
	return json.MarshalIndent(patterns, "", "  ")
}

// ImportJSON parses a JSON export back into patterns (round-trip path).
func ImportJSON(data []byte) ([]*store.Pattern, error) {
	var patterns []*store.Pattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("import json: %w", err)
	}
	return patterns, nil
}

var csvHeader = []string{
	"id", "title", "category", "status", "confidence", "relevance",
	"source_id", "tags", "usage_count", "created_at", "content",
}

func exportCSV(patterns []*store.Pattern) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, p := range patterns {
		row := []string{
			p.ID, p.Title, p.Category, p.Status,
			strconv.FormatFloat(p.Confidence, 'f', 2, 64),
			strconv.FormatFloat(p.Relevance, 'f', 2, 64),
			p.SourceID, tagsList(p.TagsJSON),
			strconv.Itoa(p.UsageCount),
			time.UnixMilli(p.CreatedAt).UTC().Format(time.RFC3339),
			p.Content,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportMarkdown(patterns []*store.Pattern) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# Extracted Patterns\n\n")
	fmt.Fprintf(&sb, "%d pattern(s), exported %s\n",
		len(patterns), time.Now().UTC().Format("2006-01-02"))

	sorted := sortForReading(patterns)
	var current string
	for _, p := range sorted {
		if p.Category != current {
			current = p.Category
			heading := strings.ReplaceAll(current, "_", " ")
			if isCritical(current) {
				fmt.Fprintf(&sb, "\n## ⚠ %s\n", heading)
			} else {
				fmt.Fprintf(&sb, "\n## %s\n", heading)
			}
		}
		fmt.Fprintf(&sb, "\n### %s\n\n", p.Title)
		if p.Description != "" {
			sb.WriteString(p.Description)
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Content)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "*confidence %.2f · relevance %.2f · status %s*\n",
			p.Confidence, p.Relevance, p.Status)
	}
	return []byte(sb.String()), nil
}

// exportContext renders the compact block meant to be pasted into an AI
// session: critical changes up top, terse one-liners, no decoration.
func exportContext(patterns []*store.Pattern) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# Engineering patterns from monitored documentation\n")

	sorted := sortForReading(patterns)
	var current string
	for _, p := range sorted {
		if p.Category != current {
			current = p.Category
			fmt.Fprintf(&sb, "\n[%s]\n", current)
		}
		fmt.Fprintf(&sb, "- %s: %s\n", p.Title, condense(p.Content, 300))
	}
	return []byte(sb.String()), nil
}

func condense(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		s = s[:max] + "…"
	}
	return s
}

func tagsList(tagsJSON string) string {
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return ""
	}
	return strings.Join(tags, ";")
}
