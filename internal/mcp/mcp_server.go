// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the apprank MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Apprank Ranking Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_summary ---
	s.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Top rank gainers over 24h and the top overall entities for a ranking date."),
		mcp.WithString("date", mcp.Description("Ranking date as YYYY-MM-DD (defaults to the configured run date).")),
		mcp.WithNumber("top_k", mcp.Description("Number of entities in each list.")),
	), h.handleGetSummary)

	// --- 2. Tool: get_statistics ---
	s.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Per-entity rank statistics (current rank, 24h/72h/7d/30d changes, average, best and worst rank) for a ranking date."),
		mcp.WithString("date", mcp.Description("Ranking date as YYYY-MM-DD.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of rows returned, ordered by current rank.")),
	), h.handleGetStatistics)

	// --- 3. Tool: get_entity_history ---
	s.AddTool(mcp.NewTool("get_entity_history",
		mcp.WithDescription("Every recorded daily rank of one entity, oldest first."),
		mcp.WithString("entity_id", mcp.Description("Upstream identifier of the entity."), mcp.Required()),
	), h.handleGetEntityHistory)

	return s
}

// StartMCPServer starts the apprank MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
