// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools holds the fixed registry of task tools, their schemas, and
// the dispatcher that routes a (tool name, arguments) pair to the task
// backend.
package tools

import (
	"github.com/AleutianAI/AleutianTasks/services/llm"
)

// Tool names.
const (
	AddTask      = "add_task"
	ListTasks    = "list_tasks"
	CompleteTask = "complete_task"
	DeleteTask   = "delete_task"
	UpdateTask   = "update_task"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        string // JSON schema type: string, integer or boolean
	Description string
	Required    bool

	// Injected params are filled in by the dispatcher and are not offered
	// to the model.
	Injected bool
}

// Spec describes one registered tool.
type Spec struct {
	Name        string
	Description string
	Params      []Param
}

var userIDParam = Param{
	Name:        "user_id",
	Type:        "string",
	Description: "ID of the user who owns the tasks",
	Required:    true,
	Injected:    true,
}

var taskIDParam = Param{
	Name:        "task_id",
	Type:        "string",
	Description: "ID of the task",
	Required:    true,
}

// registry is the fixed set of five task operations.
var registry = []Spec{
	{
		Name:        AddTask,
		Description: "Create a new task for the user",
		Params: []Param{
			userIDParam,
			{Name: "title", Type: "string", Description: "Task title (1-200 characters)", Required: true},
			{Name: "description", Type: "string", Description: "Optional task details (max 2000 characters)"},
		},
	},
	{
		Name:        ListTasks,
		Description: "List the user's tasks, newest first",
		Params: []Param{
			userIDParam,
			{Name: "is_complete", Type: "boolean", Description: "Only completed (true) or only pending (false) tasks; omit for all"},
			{Name: "limit", Type: "integer", Description: "Maximum tasks to return (default 50)"},
			{Name: "offset", Type: "integer", Description: "Number of tasks to skip"},
		},
	},
	{
		Name:        CompleteTask,
		Description: "Mark a task as complete",
		Params:      []Param{userIDParam, taskIDParam},
	},
	{
		Name:        DeleteTask,
		Description: "Permanently delete a task",
		Params:      []Param{userIDParam, taskIDParam},
	},
	{
		Name:        UpdateTask,
		Description: "Change a task's title, description or completion state",
		Params: []Param{
			userIDParam,
			taskIDParam,
			{Name: "title", Type: "string", Description: "New title"},
			{Name: "description", Type: "string", Description: "New description; empty clears it"},
			{Name: "is_complete", Type: "boolean", Description: "New completion state"},
		},
	},
}

// Specs returns the registered tools in registry order.
func Specs() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Schema renders the spec's parameters as a JSON schema object. Injected
// params are included only when withInjected is true.
func (s Spec) Schema(withInjected bool) map[string]any {
	props := map[string]any{}
	required := []string{}
	for _, p := range s.Params {
		if p.Injected && !withInjected {
			continue
		}
		props[p.Name] = map[string]any{"type": p.Type, "description": p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definitions returns the tool schema offered to the model. The user id is
// injected by the dispatcher and is not part of it.
func Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(registry))
	for _, s := range registry {
		defs = append(defs, llm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Schema(false),
		})
	}
	return defs
}
