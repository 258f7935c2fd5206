// Package export renders approved (or filtered) patterns into external
// formats: lossless JSON, flattened CSV, grouped markdown, and a compact
// "context" format meant for pasting into an AI session.
package export

import (
	"fmt"
	"sort"

	"github.com/docpatrol/docpatrol/patrol/internal/store"
)

// FormatInfo describes one export format.
type FormatInfo struct {
	Name        string
	MIMEType    string
	Extension   string
	Description string
}

// Formats is the registry of supported export formats.
var Formats = map[string]FormatInfo{
	"json": {
		Name:        "json",
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "lossless pattern dump, re-importable",
	},
	"csv": {
		Name:        "csv",
		MIMEType:    "text/csv",
		Extension:   ".csv",
		Description: "flattened rows for spreadsheets",
	},
	"markdown": {
		Name:        "markdown",
		MIMEType:    "text/markdown",
		Extension:   ".md",
		Description: "human-readable digest grouped by category",
	},
	"context": {
		Name:        "context",
		MIMEType:    "text/plain",
		Extension:   ".txt",
		Description: "compact prompt-ready context block",
	},
}

// criticalCategories are always rendered first, in this order.
var criticalCategories = []string{"breaking_change", "api_change", "deprecation"}

// categoryRank orders categories for markdown and context output: critical
// first, then guidance, then illustrations, then the rest.
var categoryRank = map[string]int{
	"breaking_change": 0,
	"api_change":      1,
	"deprecation":     2,
	"warning":         3,
	"security":        4,
	"best_practice":   5,
	"performance":     6,
	"concept":         7,
	"example":         8,
	"other":           9,
}

// Export renders patterns in the named format. Returns the payload and its
// MIME type.
func Export(patterns []*store.Pattern, format string) ([]byte, string, error) {
	info, ok := Formats[format]
	if !ok {
		return nil, "", fmt.Errorf("unknown export format %q", format)
	}

	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = exportJSON(patterns)
	case "csv":
		out, err = exportCSV(patterns)
	case "markdown":
		out, err = exportMarkdown(patterns)
	case "context":
		out, err = exportContext(patterns)
	}
	if err != nil {
		return nil, "", err
	}
	return out, info.MIMEType, nil
}

// sortForReading orders patterns by category rank, then relevance
// descending, then title for stability.
func sortForReading(patterns []*store.Pattern) []*store.Pattern {
	sorted := make([]*store.Pattern, len(patterns))
	copy(sorted, patterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rankOf(sorted[i].Category), rankOf(sorted[j].Category)
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Relevance != sorted[j].Relevance {
			return sorted[i].Relevance > sorted[j].Relevance
		}
		return sorted[i].Title < sorted[j].Title
	})
	return sorted
}

func rankOf(category string) int {
	if r, ok := categoryRank[category]; ok {
		return r
	}
	return len(categoryRank)
}

func isCritical(category string) bool {
	for _, c := range criticalCategories {
		if category == c {
			return true
		}
	}
	return false
}
