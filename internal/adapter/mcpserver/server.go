// Package mcpserver exposes the canvas tool registry to the remote agent
// over the Model Context Protocol on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canvasd/internal/domain"
)

// Server wraps an MCP stdio server over the tool registry. Tool names,
// schemas and results pass through unchanged; the agent sees the same
// catalog the gateway does.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New builds the MCP server and registers every tool from the registry.
func New(tools []domain.Tool, version string, logger *slog.Logger) *Server {
	s := server.NewMCPServer(
		"canvasd",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, t := range tools {
		schema := t.Schema()
		mcpTool := mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters)
		s.AddTool(mcpTool, toolHandler(t, logger))
		logger.Debug("mcp tool registered", "tool", schema.Name)
	}

	return &Server{mcp: s, logger: logger}
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout until the
// context is cancelled or the stream closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	if err := server.ServeStdio(s.mcp, server.WithStdioContextFunc(
		func(context.Context) context.Context { return ctx },
	)); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

func toolHandler(t domain.Tool, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		params, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := t.Execute(ctx, params)
		if err != nil {
			logger.Warn("mcp tool failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result.IsError {
			return mcp.NewToolResultError(result.Content), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}
