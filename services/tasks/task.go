// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tasks provides the task model and the ownership-checked CRUD
// backend that the agent's tools dispatch to.
//
// Every operation is scoped to a user id. A task owned by another user is
// reported as an authorization failure, never returned. Failures are
// returned as *Error values carrying an explicit Kind and Code so callers
// do not have to inspect message text.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxTitleLength is the maximum title length in characters.
	MaxTitleLength = 200

	// MaxDescriptionLength is the maximum description length in characters.
	MaxDescriptionLength = 2000

	// DefaultListLimit is the page size used when a list request has none.
	DefaultListLimit = 50

	// MaxListLimit caps the page size of a single list request.
	MaxListLimit = 1000
)

// Task is one todo item owned by a single user.
type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	IsComplete  bool      `json:"is_complete"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask holds the caller-supplied fields of a task being created.
type NewTask struct {
	Title       string
	Description *string
}

// Update holds the fields to change on an existing task. Nil fields are
// left untouched. A non-nil empty Description clears it.
type Update struct {
	Title       *string
	Description *string
	IsComplete  *bool
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.IsComplete == nil
}

// ListFilter narrows and pages a task listing.
type ListFilter struct {
	// IsComplete filters by completion state when non-nil.
	IsComplete *bool

	// Limit is the page size. Zero or negative means DefaultListLimit;
	// values above MaxListLimit are clamped.
	Limit int

	// Offset skips that many tasks of the ordered result. Negative is
	// treated as zero.
	Offset int
}

// normalize returns the filter with Limit and Offset clamped into range.
func (f ListFilter) normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Backend is the task-CRUD collaborator consumed by the tool dispatcher,
// the HTTP task handlers and the MCP server.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// AddTask validates and stores a new task for userID.
	AddTask(ctx context.Context, userID string, in NewTask) (*Task, error)

	// ListTasks returns one page of userID's tasks, newest first, and the
	// total number of tasks matching the filter.
	ListTasks(ctx context.Context, userID string, f ListFilter) ([]Task, int, error)

	// CompleteTask marks a task complete. Completing a completed task is
	// an INVALID_STATE failure.
	CompleteTask(ctx context.Context, userID string, id uuid.UUID) (*Task, error)

	// UpdateTask applies u to a task.
	UpdateTask(ctx context.Context, userID string, id uuid.UUID, u Update) (*Task, error)

	// DeleteTask removes a task permanently.
	DeleteTask(ctx context.Context, userID string, id uuid.UUID) error
}
