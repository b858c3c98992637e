// Package mcp exposes file comparisons and judge-reply parsing as MCP tools
// for host processes that have no rendering session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/verify"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// Defaults applied to tool arguments that are left out.
type Defaults struct {
	PassThreshold float64
	FailThreshold float64
}

// NewServer creates an MCP server with the visualgate tools registered.
func NewServer(version string, differ *pixeldiff.Differ, defaults Defaults) *server.MCPServer {
	if defaults.FailThreshold == 0 {
		defaults = Defaults{PassThreshold: models.DefaultPassThreshold, FailThreshold: models.DefaultFailThreshold}
	}

	s := server.NewMCPServer(
		"visualgate",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcplib.NewTool("visual_compare",
			mcplib.WithDescription("Pixel-compare an implementation screenshot with a design image and return a pass, needs_review or fail verdict"),
			mcplib.WithString("design", mcplib.Required(), mcplib.Description("Path to the design reference PNG")),
			mcplib.WithString("actual", mcplib.Required(), mcplib.Description("Path to the implementation screenshot PNG")),
			mcplib.WithString("component_id", mcplib.Description("Component identifier; names the output directory (default: component)")),
			mcplib.WithNumber("pass_threshold", mcplib.Description("Diff percentage below which the verdict is pass")),
			mcplib.WithNumber("fail_threshold", mcplib.Description("Diff percentage above which the verdict is fail")),
		),
		handleCompare(differ, defaults),
	)

	s.AddTool(
		mcplib.NewTool("visual_parse_judgment",
			mcplib.WithDescription("Parse a vision model's free-text comparison reply into a structured verdict; unparsable replies yield significant_differences"),
			mcplib.WithString("response", mcplib.Required(), mcplib.Description("Raw model reply")),
		),
		handleParseJudgment(),
	)

	return s
}

func handleCompare(differ *pixeldiff.Differ, defaults Defaults) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		design, err := request.RequireString("design")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		actual, err := request.RequireString("actual")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		res, err := verify.CompareFiles(differ,
			request.GetString("component_id", "component"),
			design, actual,
			request.GetFloat("pass_threshold", defaults.PassThreshold),
			request.GetFloat("fail_threshold", defaults.FailThreshold),
		)
		if err != nil {
			return errorResult(fmt.Sprintf("compare failed: %v", err)), nil
		}
		return jsonResult(res)
	}
}

func handleParseJudgment() server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		raw, err := request.RequireString("response")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		// a parse failure still yields the fail-closed result
		res, _ := judge.ParseResponse(raw)
		return jsonResult(res)
	}
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
