package patrol

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docpatrol/docpatrol/kit"
)

// RegisterMCP registers all patrol tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAddSource(srv)
	s.registerListSources(srv)
	s.registerRun(srv)
	s.registerExtract(srv)
	s.registerListPatterns(srv)
	s.registerReview(srv)
	s.registerTrackUsage(srv)
	s.registerExport(srv)
	s.registerStats(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}

func (s *Service) registerAddSource(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_add_source",
		Description: "Register a documentation source for monitoring",
		InputSchema: inputSchema(map[string]any{
			"name":      map[string]any{"type": "string", "description": "Source name"},
			"url":       map[string]any{"type": "string", "description": "URL to monitor"},
			"category":  map[string]any{"type": "string", "description": "Source category"},
			"frequency": map[string]any{"type": "string", "description": "Check frequency: hourly, daily, weekly"},
			"priority":  map[string]any{"type": "integer", "description": "Priority 1-10"},
		}, []string{"name", "url"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.AddSource(ctx, r.(*SourceInput))
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[SourceInput])
}

func (s *Service) registerListSources(srv *mcp.Server) {
	type req struct {
		ActiveOnly bool `json:"active_only"`
	}
	tool := &mcp.Tool{
		Name:        "patrol_list_sources",
		Description: "List monitored documentation sources",
		InputSchema: inputSchema(map[string]any{
			"active_only": map[string]any{"type": "boolean", "description": "Only active sources"},
		}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.ListSources(ctx, r.(*req).ActiveOnly)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerRun(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_run",
		Description: "Run a monitoring pass: fetch due or named sources and detect changes",
		InputSchema: inputSchema(map[string]any{
			"frequency":  map[string]any{"type": "string", "description": "Tier to run: hourly, daily, weekly"},
			"source_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Explicit source IDs"},
			"all":        map[string]any{"type": "boolean", "description": "Run all active sources"},
			"limit":      map[string]any{"type": "integer", "description": "Batch cap"},
		}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Run(ctx, *r.(*RunRequest))
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[RunRequest])
}

func (s *Service) registerExtract(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_extract",
		Description: "Extract engineering patterns from an update, a source's latest update, or raw content",
		InputSchema: inputSchema(map[string]any{
			"update_id":   map[string]any{"type": "string", "description": "Update to process"},
			"source_id":   map[string]any{"type": "string", "description": "Source whose latest update to process"},
			"raw_content": map[string]any{"type": "string", "description": "Ad-hoc content"},
			"force":       map[string]any{"type": "boolean", "description": "Re-extract an already-processed update"},
		}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Extract(ctx, *r.(*ExtractRequest))
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[ExtractRequest])
}

func (s *Service) registerListPatterns(srv *mcp.Server) {
	type req struct {
		Status   string `json:"status"`
		Category string `json:"category"`
		Limit    int    `json:"limit"`
		Offset   int    `json:"offset"`
	}
	tool := &mcp.Tool{
		Name:        "patrol_list_patterns",
		Description: "List extracted patterns, optionally filtered by status or category",
		InputSchema: inputSchema(map[string]any{
			"status":   map[string]any{"type": "string", "description": "pending, approved, rejected, needs_refinement"},
			"category": map[string]any{"type": "string", "description": "Pattern category"},
			"limit":    map[string]any{"type": "integer"},
			"offset":   map[string]any{"type": "integer"},
		}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.ListPatterns(ctx, PatternFilter{Status: p.Status, Category: p.Category}, p.Limit, p.Offset)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerReview(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_review",
		Description: "Record a review action on a pattern (approve, reject, refine, request_info)",
		InputSchema: inputSchema(map[string]any{
			"pattern_id":  map[string]any{"type": "string"},
			"action":      map[string]any{"type": "string", "description": "approve, reject, refine, request_info"},
			"feedback":    map[string]any{"type": "string"},
			"reviewer_id": map[string]any{"type": "string"},
		}, []string{"pattern_id", "action", "reviewer_id"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Review(ctx, *r.(*ReviewRequest))
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[ReviewRequest])
}

func (s *Service) registerTrackUsage(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_track_usage",
		Description: "Record one use of a pattern (viewed, applied, exported, shared, copied, referenced)",
		InputSchema: inputSchema(map[string]any{
			"pattern_id": map[string]any{"type": "string"},
			"user_id":    map[string]any{"type": "string"},
			"action":     map[string]any{"type": "string"},
			"context":    map[string]any{"type": "string"},
		}, []string{"pattern_id", "action"}),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.TrackUsage(ctx, *r.(*UsageRequest))
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[UsageRequest])
}

func (s *Service) registerExport(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "patrol_export",
		Description: "Export patterns as json, csv, markdown, or context",
		InputSchema: inputSchema(map[string]any{
			"format":   map[string]any{"type": "string", "description": "json, csv, markdown, context"},
			"status":   map[string]any{"type": "string", "description": "Filter by status"},
			"category": map[string]any{"type": "string", "description": "Filter by category"},
		}, []string{"format"}),
	}
	type req struct {
		Format   string `json:"format"`
		Status   string `json:"status"`
		Category string `json:"category"`
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		result, err := s.Export(ctx, ExportRequest{
			Format: p.Format,
			Filter: PatternFilter{Status: p.Status, Category: p.Category},
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"mime_type": result.MIMEType,
			"count":     result.Count,
			"data":      string(result.Data),
		}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerStats(srv *mcp.Server) {
	type req struct{}
	tool := &mcp.Tool{
		Name:        "patrol_stats",
		Description: "Aggregate counters: sources, updates, queue depth, patterns, reviews, usage",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, r any) (any, error) {
		return s.Stats(ctx)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}
