// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

// =============================================================================
// Mock Backend
// =============================================================================

type mockBackend struct {
	calls    []string
	userIDs  []string
	lastNew  tasks.NewTask
	lastList tasks.ListFilter
	lastID   uuid.UUID
	lastUpd  tasks.Update
	task     tasks.Task
	list     []tasks.Task
	total    int
	err      error
}

func (m *mockBackend) record(op, userID string) {
	m.calls = append(m.calls, op)
	m.userIDs = append(m.userIDs, userID)
}

func (m *mockBackend) AddTask(_ context.Context, userID string, in tasks.NewTask) (*tasks.Task, error) {
	m.record("add", userID)
	m.lastNew = in
	if m.err != nil {
		return nil, m.err
	}
	t := m.task
	t.Title = in.Title
	return &t, nil
}

func (m *mockBackend) ListTasks(_ context.Context, userID string, f tasks.ListFilter) ([]tasks.Task, int, error) {
	m.record("list", userID)
	m.lastList = f
	return m.list, m.total, m.err
}

func (m *mockBackend) CompleteTask(_ context.Context, userID string, id uuid.UUID) (*tasks.Task, error) {
	m.record("complete", userID)
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	t := m.task
	t.IsComplete = true
	return &t, nil
}

func (m *mockBackend) UpdateTask(_ context.Context, userID string, id uuid.UUID, u tasks.Update) (*tasks.Task, error) {
	m.record("update", userID)
	m.lastID = id
	m.lastUpd = u
	if m.err != nil {
		return nil, m.err
	}
	t := m.task
	return &t, nil
}

func (m *mockBackend) DeleteTask(_ context.Context, userID string, id uuid.UUID) error {
	m.record("delete", userID)
	m.lastID = id
	return m.err
}

func newMock() *mockBackend {
	return &mockBackend{task: tasks.Task{
		ID:        uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		UserID:    "user-1",
		Title:     "buy milk",
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
}

// =============================================================================
// Execute Tests
// =============================================================================

func TestExecute_UnknownTool(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	r := d.Execute(context.Background(), "user-1", "rename_everything", nil)

	f, ok := r.(Failure)
	require.True(t, ok)
	assert.Equal(t, "Unknown tool: rename_everything", f.Message)
	assert.Empty(t, m.calls, "backend must not be called")
}

func TestExecute_InjectsUserID(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	args := map[string]any{"title": "buy milk"}
	r := d.Execute(context.Background(), "user-1", AddTask, args)

	require.True(t, r.OK())
	assert.Equal(t, []string{"user-1"}, m.userIDs)
	_, mutated := args["user_id"]
	assert.False(t, mutated, "caller's map must not be modified")
}

func TestExecute_ReplacesForeignUserID(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	d.Execute(context.Background(), "user-1", ListTasks, map[string]any{"user_id": "someone-else"})

	assert.Equal(t, []string{"user-1"}, m.userIDs)
}

func TestExecute_AddTask(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	r := d.Execute(context.Background(), "user-1", AddTask, map[string]any{
		"title":       "call mom",
		"description": "sunday",
	})

	tr, ok := r.(TaskResult)
	require.True(t, ok)
	assert.Equal(t, "call mom", tr.Task.Title)
	require.NotNil(t, m.lastNew.Description)
	assert.Equal(t, "sunday", *m.lastNew.Description)
}

func TestExecute_ListTasks_Arguments(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		wantFilter tasks.ListFilter
	}{
		{"defaults", map[string]any{}, tasks.ListFilter{}},
		{"json numbers", map[string]any{"limit": float64(5), "offset": float64(10)}, tasks.ListFilter{Limit: 5, Offset: 10}},
		{"string numbers", map[string]any{"limit": "3"}, tasks.ListFilter{Limit: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMock()
			d := NewDispatcher(m, nil)
			r := d.Execute(context.Background(), "user-1", ListTasks, tt.args)
			require.True(t, r.OK())
			assert.Equal(t, tt.wantFilter, m.lastList)
		})
	}
}

func TestExecute_ListTasks_CompletionFilter(t *testing.T) {
	for _, raw := range []any{false, "false", "pending"} {
		m := newMock()
		d := NewDispatcher(m, nil)
		d.Execute(context.Background(), "user-1", ListTasks, map[string]any{"is_complete": raw})
		require.NotNil(t, m.lastList.IsComplete, "%v", raw)
		assert.False(t, *m.lastList.IsComplete)
	}

	m := newMock()
	d := NewDispatcher(m, nil)
	r := d.Execute(context.Background(), "user-1", ListTasks, map[string]any{"is_complete": "sometimes"})
	f, ok := r.(Failure)
	require.True(t, ok)
	assert.Equal(t, tasks.CodeInvalidStatus, f.Code)
	assert.Empty(t, m.calls)
}

func TestExecute_ListTasks_Result(t *testing.T) {
	m := newMock()
	m.list = []tasks.Task{m.task, m.task}
	m.total = 7
	d := NewDispatcher(m, nil)

	r := d.Execute(context.Background(), "user-1", ListTasks, nil)

	lr, ok := r.(ListResult)
	require.True(t, ok)
	assert.Len(t, lr.Tasks, 2)
	assert.Equal(t, 7, lr.Total)
}

func TestExecute_ParsesTaskID(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)
	id := m.task.ID.String()

	r := d.Execute(context.Background(), "user-1", CompleteTask, map[string]any{"task_id": id})
	require.True(t, r.OK())
	assert.Equal(t, m.task.ID, m.lastID)

	r = d.Execute(context.Background(), "user-1", DeleteTask, map[string]any{"task_id": "3"})
	f, ok := r.(Failure)
	require.True(t, ok)
	assert.Equal(t, tasks.KindValidation, f.Kind)
	assert.Equal(t, tasks.CodeInvalidTaskID, f.Code)
	assert.Equal(t, []string{"complete"}, m.calls)
}

func TestExecute_DeleteTask(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	r := d.Execute(context.Background(), "user-1", DeleteTask, map[string]any{"task_id": m.task.ID.String()})

	dr, ok := r.(DeleteResult)
	require.True(t, ok)
	assert.Equal(t, m.task.ID.String(), dr.TaskID)
}

func TestExecute_UpdateTask(t *testing.T) {
	m := newMock()
	d := NewDispatcher(m, nil)

	r := d.Execute(context.Background(), "user-1", UpdateTask, map[string]any{
		"task_id":     m.task.ID.String(),
		"title":       "buy oat milk",
		"is_complete": true,
	})

	require.True(t, r.OK())
	require.NotNil(t, m.lastUpd.Title)
	assert.Equal(t, "buy oat milk", *m.lastUpd.Title)
	assert.Nil(t, m.lastUpd.Description)
	require.NotNil(t, m.lastUpd.IsComplete)
	assert.True(t, *m.lastUpd.IsComplete)
}

func TestExecute_BackendErrorsBecomeFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind tasks.Kind
		wantMsg  string
	}{
		{"typed", tasks.ErrTaskNotFound, tasks.KindNotFound, "Task not found"},
		{"wrapped typed", errors.Join(errors.New("ctx"), tasks.ErrAccessDenied), tasks.KindAuthorization, "Not authorized to access this task"},
		{"untyped", errors.New("connection reset"), "", "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMock()
			m.err = tt.err
			d := NewDispatcher(m, nil)

			r := d.Execute(context.Background(), "user-1", CompleteTask, map[string]any{"task_id": m.task.ID.String()})

			f, ok := r.(Failure)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.wantMsg, f.Message)
		})
	}
}

// =============================================================================
// Envelope and Registry Tests
// =============================================================================

func TestEnvelope_DecodesVariants(t *testing.T) {
	s := Summary{ID: "a", Title: "x"}
	variants := []Result{
		TaskResult{Task: s},
		ListResult{Tasks: []Summary{s}, Total: 4},
		ListResult{Tasks: []Summary{}, Total: 0},
		DeleteResult{TaskID: "a"},
		Failure{Kind: tasks.KindNotFound, Code: tasks.CodeTaskNotFound, Message: "Task not found"},
	}
	for _, v := range variants {
		data, err := json.Marshal(v.Envelope())
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, v, env.Result(), string(data))
	}
}

func TestDefinitions_OmitInjectedUserID(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 5)

	for _, def := range defs {
		props := def.Parameters["properties"].(map[string]any)
		assert.NotContains(t, props, "user_id", def.Name)
	}

	spec, ok := Lookup(AddTask)
	require.True(t, ok)
	full := spec.Schema(true)
	assert.Equal(t, []string{"user_id", "title"}, full["required"])
}
