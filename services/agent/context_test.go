// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/conversation"
	"github.com/AleutianAI/AleutianTasks/services/llm"
)

func record(name string, r tools.Result) tools.Record {
	return tools.Record{ID: "call", Name: name, Result: r.Envelope()}
}

func turn(records ...tools.Record) HistoryEntry {
	return HistoryEntry{Role: llm.RoleAssistant, Content: "ok", ToolCalls: records}
}

func TestRebuildContext(t *testing.T) {
	a := tools.Summary{ID: "a", Title: "alpha"}
	b := tools.Summary{ID: "b", Title: "beta"}
	c := tools.Summary{ID: "c", Title: "gamma"}

	t.Run("collects single-task results in order", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			turn(record(tools.AddTask, tools.TaskResult{Task: a})),
			turn(record(tools.CompleteTask, tools.TaskResult{Task: b})),
		}, 5)

		require.Len(t, cc.RecentTasks, 2)
		assert.Equal(t, "a", cc.RecentTasks[0].TaskID)
		assert.Equal(t, "beta", cc.RecentTasks[1].Title)
		assert.Nil(t, cc.LastListResult)
	})

	t.Run("latest list wins", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			turn(record(tools.ListTasks, tools.ListResult{Tasks: []tools.Summary{a}, Total: 1})),
			turn(record(tools.ListTasks, tools.ListResult{Tasks: []tools.Summary{b, c}, Total: 2})),
		}, 5)

		require.Len(t, cc.LastListResult, 2)
		assert.Equal(t, "c", cc.LastListResult[1].ID)
	})

	t.Run("failures are ignored", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			turn(record(tools.CompleteTask, tools.Failure{Message: "Task not found"})),
		}, 5)

		assert.Empty(t, cc.RecentTasks)
	})

	t.Run("only the window is scanned", func(t *testing.T) {
		history := []HistoryEntry{turn(record(tools.AddTask, tools.TaskResult{Task: a}))}
		for i := 0; i < 5; i++ {
			history = append(history, HistoryEntry{Role: llm.RoleUser, Content: "hi"})
		}
		cc := RebuildContext(history, 5)

		assert.Empty(t, cc.RecentTasks)
	})

	t.Run("empty history", func(t *testing.T) {
		cc := RebuildContext(nil, 5)
		assert.Empty(t, cc.RecentTasks)
		assert.Nil(t, cc.LastListResult)
	})
}

// storedTurn passes records through the conversation store's tool-call
// encoding, as history loaded from SQLite does.
func storedTurn(t *testing.T, records ...tools.Record) HistoryEntry {
	t.Helper()
	raw, err := conversation.EncodeToolCalls(records)
	require.NoError(t, err)
	require.True(t, raw.Valid)
	decoded, err := conversation.DecodeToolCalls(raw.String)
	require.NoError(t, err)
	return turn(decoded...)
}

func TestRebuildContext_StoredHistory(t *testing.T) {
	a := tools.Summary{ID: "a", Title: "alpha"}
	b := tools.Summary{ID: "b", Title: "beta"}

	t.Run("empty list replaces the previous list", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			storedTurn(t, record(tools.ListTasks, tools.ListResult{Tasks: []tools.Summary{a, b}, Total: 2})),
			storedTurn(t, record(tools.ListTasks, tools.ListResult{Total: 0})),
		}, 0)
		require.NotNil(t, cc.LastListResult)
		assert.Empty(t, cc.LastListResult)
	})

	t.Run("non-empty list survives encoding", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			storedTurn(t, record(tools.ListTasks, tools.ListResult{Tasks: []tools.Summary{a, b}, Total: 2})),
		}, 0)
		require.Len(t, cc.LastListResult, 2)
		assert.Equal(t, "b", cc.LastListResult[1].ID)
	})

	t.Run("delete result does not touch the list", func(t *testing.T) {
		cc := RebuildContext([]HistoryEntry{
			storedTurn(t, record(tools.ListTasks, tools.ListResult{Tasks: []tools.Summary{a}, Total: 1})),
			storedTurn(t, record(tools.DeleteTask, tools.DeleteResult{TaskID: "a"})),
		}, 0)
		assert.Len(t, cc.LastListResult, 1)
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1} "))
}
