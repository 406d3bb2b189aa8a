package cmd

import (
	"github.com/huangsam/apprank/internal/mcp"
	"github.com/huangsam/apprank/internal/store"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the apprank MCP server",
	Long:  `Launch an MCP server that lets AI agents query summaries, statistics and entity history via standard tools.`,
	// Logs already go to stderr, so stdout stays free for the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		logger.Debug("starting MCP server on stdio")
		return mcp.StartMCPServer(rootCtx, cfg, store.Manager)
	},
}
