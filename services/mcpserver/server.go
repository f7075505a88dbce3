// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package mcpserver exposes the task tools over the Model Context Protocol.
//
// Each registered tool in services/agent/tools becomes one MCP tool. Unlike
// the chat agent, MCP callers pass user_id explicitly; it is required.
// Successful calls return the JSON result envelope as text. Failed calls
// return an MCP tool error carrying the user-safe translated message.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/AleutianTasks/services/agent/errmsg"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the MCP implementation name.
const ServerName = "aleutian-tasks"

// Executor runs a tool for a user. *tools.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, userID, name string, args map[string]any) tools.Result
}

var _ Executor = (*tools.Dispatcher)(nil)

const instructions = "Task management tools. Every call needs the user_id of the " +
	"task owner. delete_task is permanent; confirm with the user before calling it."

// New creates an MCP server with one tool per task operation.
func New(exec Executor, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, spec := range tools.Specs() {
		t := NewTaskTool(spec, exec, logger)
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Serve runs s over stdio until ctx is cancelled or in is closed.
// Protocol errors are logged to logger, never written to out.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// =============================================================================
// Tools
// =============================================================================

// TaskTool adapts one tools.Spec to an MCP tool.
type TaskTool struct {
	spec   tools.Spec
	exec   Executor
	logger *slog.Logger
}

// NewTaskTool creates a TaskTool for spec.
func NewTaskTool(spec tools.Spec, exec Executor, logger *slog.Logger) *TaskTool {
	return &TaskTool{spec: spec, exec: exec, logger: logger}
}

// Definition returns the MCP tool definition. Every parameter is offered,
// including user_id.
func (t *TaskTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.spec.Description)}
	for _, p := range t.spec.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case "integer":
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.spec.Name, opts...)
}

// Handle processes one tool call.
func (t *TaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("'user_id' is required"), nil
	}

	result := t.exec.Execute(ctx, userID, t.spec.Name, req.GetArguments())
	if f, ok := result.(tools.Failure); ok {
		return mcp.NewToolResultError(errmsg.Translate(t.spec.Name, f).Message), nil
	}

	body, err := json.Marshal(result.Envelope())
	if err != nil {
		t.logger.Error("encode tool result", "tool", t.spec.Name, "error", err)
		return mcp.NewToolResultError("failed to encode result"), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
