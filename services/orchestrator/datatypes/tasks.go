// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package datatypes

import (
	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

// CreateTaskRequest is the body of POST /v1/tasks.
//
// Length limits are enforced by the task backend after sanitizing, so the
// API and the agent report the same errors.
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the request against its validation tags.
func (r *CreateTaskRequest) Validate() error {
	return apiValidate.Struct(r)
}

// NewTask converts the request to backend input.
func (r *CreateTaskRequest) NewTask() tasks.NewTask {
	return tasks.NewTask{Title: r.Title, Description: r.Description}
}

// UpdateTaskRequest is the body of PATCH /v1/tasks/:id. Omitted fields are
// left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsComplete  *bool   `json:"is_complete,omitempty"`
}

// Update converts the request to a backend update.
func (r *UpdateTaskRequest) Update() tasks.Update {
	return tasks.Update{Title: r.Title, Description: r.Description, IsComplete: r.IsComplete}
}

// ListTasksQuery is the query string of GET /v1/tasks.
type ListTasksQuery struct {
	IsComplete *bool `form:"is_complete"`
	Limit      int   `form:"limit" validate:"gte=0,lte=1000"`
	Offset     int   `form:"offset" validate:"gte=0"`
}

// Validate checks the query against its validation tags.
func (q *ListTasksQuery) Validate() error {
	return apiValidate.Struct(q)
}

// Filter converts the query to a backend filter.
func (q *ListTasksQuery) Filter() tasks.ListFilter {
	return tasks.ListFilter{IsComplete: q.IsComplete, Limit: q.Limit, Offset: q.Offset}
}

// TaskListResponse is the body of GET /v1/tasks.
type TaskListResponse struct {
	Tasks []tasks.Task `json:"tasks"`
	Total int          `json:"total"`
}
