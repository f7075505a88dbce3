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
	"time"

	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

// =============================================================================
// Results
// =============================================================================

// Result is the outcome of one dispatched tool call. It is one of
// TaskResult, ListResult, DeleteResult or Failure.
type Result interface {
	// OK reports whether the call succeeded.
	OK() bool

	// Envelope returns the uniform wire shape used for history storage,
	// MCP responses and API clients.
	Envelope() Envelope
}

// Summary is the task view carried in results and conversation context.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	IsComplete  bool      `json:"is_complete"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summarize converts a backend task into a Summary.
func Summarize(t tasks.Task) Summary {
	return Summary{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		IsComplete:  t.IsComplete,
		CreatedAt:   t.CreatedAt,
	}
}

// TaskResult is the success shape of add_task, complete_task and update_task.
type TaskResult struct {
	Task Summary
}

// ListResult is the success shape of list_tasks.
type ListResult struct {
	Tasks []Summary
	Total int
}

// DeleteResult is the success shape of delete_task.
type DeleteResult struct {
	TaskID string
}

// Failure is the shared failure shape. Kind and Code are empty when the
// failure did not come from the task backend (for example an unknown tool).
type Failure struct {
	Kind    tasks.Kind
	Code    string
	Message string
}

func (TaskResult) OK() bool { return true }
func (ListResult) OK() bool { return true }
func (DeleteResult) OK() bool { return true }
func (Failure) OK() bool { return false }

func (r TaskResult) Envelope() Envelope {
	task := r.Task
	return Envelope{Success: true, Task: &task}
}

func (r ListResult) Envelope() Envelope {
	list := r.Tasks
	if list == nil {
		list = []Summary{}
	}
	total := r.Total
	return Envelope{Success: true, Tasks: list, Total: &total}
}

func (r DeleteResult) Envelope() Envelope {
	return Envelope{Success: true, TaskID: r.TaskID}
}

func (f Failure) Envelope() Envelope {
	return Envelope{Success: false, Error: f.Message, ErrorKind: f.Kind, ErrorCode: f.Code}
}

// Envelope is the serialized form of a Result.
type Envelope struct {
	Success   bool       `json:"success"`
	Task      *Summary   `json:"task,omitempty"`
	Tasks     []Summary  `json:"tasks,omitempty"`
	Total     *int       `json:"total,omitempty"`
	TaskID    string     `json:"task_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind tasks.Kind `json:"error_kind,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
}

// Result decodes the envelope back into its variant. A successful
// envelope with neither task nor tasks decodes as a DeleteResult.
func (e Envelope) Result() Result {
	switch {
	case !e.Success:
		return Failure{Kind: e.ErrorKind, Code: e.ErrorCode, Message: e.Error}
	case e.Task != nil:
		return TaskResult{Task: *e.Task}
	case e.Tasks != nil || e.Total != nil:
		list := e.Tasks
		if list == nil {
			list = []Summary{}
		}
		total := len(list)
		if e.Total != nil {
			total = *e.Total
		}
		return ListResult{Tasks: list, Total: total}
	default:
		return DeleteResult{TaskID: e.TaskID}
	}
}

// failureFrom converts a backend error into a Failure, keeping the
// explicit kind and code when the backend supplied them.
func failureFrom(err error) Failure {
	if te, ok := tasks.AsError(err); ok {
		return Failure{Kind: te.Kind, Code: te.Code, Message: te.Message}
	}
	return Failure{Message: err.Error()}
}

// =============================================================================
// Calls
// =============================================================================

// Call is a tool invocation requested by the model or issued directly by
// the orchestrator.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Record is an executed call together with its result, as returned to the
// caller and stored in conversation history.
type Record struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    Envelope       `json:"result"`
}

// NewRecord pairs a call with its result.
func NewRecord(c Call, r Result) Record {
	return Record{ID: c.ID, Name: c.Name, Arguments: c.Arguments, Result: r.Envelope()}
}
