// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/storage/sqlite"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := tasks.NewStore(context.Background(), db)
	require.NoError(t, err)
	return tools.NewDispatcher(store, quietLogger())
}

func toolFor(t *testing.T, name string, exec Executor) *TaskTool {
	t.Helper()
	spec, ok := tools.Lookup(name)
	require.True(t, ok)
	return NewTaskTool(spec, exec, quietLogger())
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeEnvelope(t *testing.T, r *mcp.CallToolResult) tools.Envelope {
	t.Helper()
	require.False(t, r.IsError, resultText(r))
	var env tools.Envelope
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &env))
	return env
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestTaskTool_DefinitionOffersUserID(t *testing.T) {
	for _, spec := range tools.Specs() {
		t.Run(spec.Name, func(t *testing.T) {
			def := NewTaskTool(spec, nil, quietLogger()).Definition()

			assert.Equal(t, spec.Name, def.Name)
			assert.Contains(t, def.InputSchema.Properties, "user_id")
			assert.Contains(t, def.InputSchema.Required, "user_id")
			for _, p := range spec.Params {
				assert.Contains(t, def.InputSchema.Properties, p.Name)
			}
		})
	}
}

func TestTaskTool_DefinitionTypes(t *testing.T) {
	def := toolFor(t, tools.ListTasks, nil).Definition()

	prop := func(name string) map[string]any {
		p, ok := def.InputSchema.Properties[name].(map[string]any)
		require.True(t, ok, name)
		return p
	}
	assert.Equal(t, "boolean", prop("is_complete")["type"])
	assert.Equal(t, "number", prop("limit")["type"])
	assert.Equal(t, "string", prop("user_id")["type"])
	assert.NotContains(t, def.InputSchema.Required, "limit")
}

// ─── Handling ────────────────────────────────────────────────────────────────

func TestTaskTool_RequiresUserID(t *testing.T) {
	res, err := toolFor(t, tools.AddTask, newDispatcher(t)).Handle(context.Background(),
		makeReq(map[string]any{"title": "Buy milk"}))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "'user_id' is required", resultText(res))
}

func TestTaskTool_Lifecycle(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)

	// add
	res, err := toolFor(t, tools.AddTask, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "alice",
		"title":   "Buy milk",
	}))
	require.NoError(t, err)
	added := decodeEnvelope(t, res)
	require.True(t, added.Success)
	require.NotNil(t, added.Task)
	assert.Equal(t, "Buy milk", added.Task.Title)
	id := added.Task.ID

	// list, JSON numbers arrive as float64
	res, err = toolFor(t, tools.ListTasks, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "alice",
		"limit":   float64(10),
	}))
	require.NoError(t, err)
	listed := decodeEnvelope(t, res)
	require.NotNil(t, listed.Total)
	assert.Equal(t, 1, *listed.Total)
	require.Len(t, listed.Tasks, 1)

	// complete
	res, err = toolFor(t, tools.CompleteTask, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "alice",
		"task_id": id,
	}))
	require.NoError(t, err)
	completed := decodeEnvelope(t, res)
	require.NotNil(t, completed.Task)
	assert.True(t, completed.Task.IsComplete)

	// delete
	res, err = toolFor(t, tools.DeleteTask, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "alice",
		"task_id": id,
	}))
	require.NoError(t, err)
	deleted := decodeEnvelope(t, res)
	assert.Equal(t, id, deleted.TaskID)
}

func TestTaskTool_FailureIsTranslated(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "empty title",
			tool: tools.AddTask,
			args: map[string]any{"user_id": "alice", "title": "   "},
			want: "title is empty",
		},
		{
			name: "unknown task",
			tool: tools.CompleteTask,
			args: map[string]any{"user_id": "alice", "task_id": "00000000-0000-0000-0000-000000000001"},
			want: "couldn't find",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := toolFor(t, tt.tool, newDispatcher(t)).Handle(context.Background(), makeReq(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), tt.want)
			assert.NotContains(t, strings.ToLower(resultText(res)), "sql")
		})
	}
}

func TestTaskTool_OtherUsersTasksAreHidden(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)

	res, err := toolFor(t, tools.AddTask, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "alice",
		"title":   "Private",
	}))
	require.NoError(t, err)
	id := decodeEnvelope(t, res).Task.ID

	res, err = toolFor(t, tools.DeleteTask, d).Handle(ctx, makeReq(map[string]any{
		"user_id": "mallory",
		"task_id": id,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

// ─── Server ──────────────────────────────────────────────────────────────────

func TestNew_RegistersEveryTool(t *testing.T) {
	s := New(newDispatcher(t), "test", quietLogger())
	ctx := context.Background()

	initResp := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize",`+
		`"params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
	require.NotNil(t, initResp)

	resp := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, spec := range tools.Specs() {
		assert.Contains(t, string(raw), `"`+spec.Name+`"`)
	}
}

func TestNew_CallsThroughServer(t *testing.T) {
	s := New(newDispatcher(t), "test", quietLogger())
	ctx := context.Background()

	resp := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":3,"method":"tools/call",`+
		`"params":{"name":"add_task","arguments":{"user_id":"alice","title":"Water plants"}}}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(raw), "Water plants")
	assert.NotContains(t, string(raw), `"isError":true`)
}

func TestServe_StopsAtEOF(t *testing.T) {
	s := New(newDispatcher(t), "test", quietLogger())
	var out strings.Builder

	err := Serve(context.Background(), s, strings.NewReader(""), &out, quietLogger())
	assert.NoError(t, err)
}
