package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/mcp"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio)",
		Long:  "Start an MCP server on stdio exposing visual_compare and visual_parse_judgment to AI coding assistants.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcp.NewServer(version, pixeldiff.New(a.cfg.OutputDir, a.log), mcp.Defaults{
				PassThreshold: a.cfg.Thresholds.Pass,
				FailThreshold: a.cfg.Thresholds.Fail,
			})
			return server.ServeStdio(s)
		},
	}
}
