package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

func (h *toolHandler) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := h.date(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := h.baseCfg.TopK
	if k := request.GetInt("top_k", 0); k > 0 {
		if k > contract.MaxTopK {
			return mcp.NewToolResultError(fmt.Sprintf("top_k cannot exceed %d", contract.MaxTopK)), nil
		}
		topK = k
	}

	summary, err := core.SummaryForDate(ctx, h.mgr.GetStore(), date, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"date": schema.FormatDate(date), "summary": summary})
}

func (h *toolHandler) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := h.date(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := h.baseCfg.ResultLimit
	if l := request.GetInt("limit", 0); l > 0 {
		limit = l
	}

	rows, err := h.mgr.GetStore().StatisticsForDate(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("statistics failed: %v", err)), nil
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return jsonResult(rows)
}

func (h *toolHandler) handleGetEntityHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("entity_id", "")
	if id == "" {
		return mcp.NewToolResultError("entity_id is required"), nil
	}

	facts, err := h.mgr.GetStore().EntityHistory(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(facts) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no rank history for %s", id)), nil
	}
	return jsonResult(facts)
}

// date returns the requested date or the configured run date.
func (h *toolHandler) date(request mcp.CallToolRequest) (time.Time, error) {
	raw := request.GetString("date", "")
	if raw == "" {
		return h.baseCfg.RunDate, nil
	}
	return schema.ParseDate(raw)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
