// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies a backend failure for the error translator and for
// transport-level status mapping.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindAuthorization Kind = "AUTHORIZATION_ERROR"
	KindInvalidState  Kind = "INVALID_STATE"
	KindServer        Kind = "SERVER_ERROR"
)

// Error codes name the specific failure within a Kind. They match the
// message keys of the agent's error translator.
const (
	CodeEmptyTitle         = "empty_title"
	CodeTitleTooLong       = "title_too_long"
	CodeDescriptionTooLong = "description_too_long"
	CodeInvalidTaskID      = "invalid_task_id"
	CodeInvalidStatus      = "invalid_status"
	CodeTaskNotFound       = "task_not_found"
	CodeAccessDenied       = "access_denied"
	CodeAlreadyCompleted   = "already_completed"
	CodeDatabaseError      = "database_error"
)

// Error is a classified backend failure.
//
// Message is safe to show to API clients but is not meant for chat
// replies; the agent translates Kind/Code into its own wording.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrEmptyTitle = &Error{Kind: KindValidation, Code: CodeEmptyTitle,
		Message: "Title cannot be empty or whitespace"}
	ErrTitleTooLong = &Error{Kind: KindValidation, Code: CodeTitleTooLong,
		Message: fmt.Sprintf("Title too long (max %d characters)", MaxTitleLength)}
	ErrDescriptionTooLong = &Error{Kind: KindValidation, Code: CodeDescriptionTooLong,
		Message: fmt.Sprintf("Description too long (max %d characters)", MaxDescriptionLength)}
	ErrTaskNotFound = &Error{Kind: KindNotFound, Code: CodeTaskNotFound,
		Message: "Task not found"}
	ErrAccessDenied = &Error{Kind: KindAuthorization, Code: CodeAccessDenied,
		Message: "Not authorized to access this task"}
	ErrAlreadyCompleted = &Error{Kind: KindInvalidState, Code: CodeAlreadyCompleted,
		Message: "Task is already complete"}
)

// InvalidTaskID reports a task identifier that is not a UUID.
func InvalidTaskID(raw string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidTaskID,
		Message: fmt.Sprintf("Invalid task id %q", raw)}
}

// databaseError wraps a storage failure. The wrapped error is kept for
// server-side logs only.
func databaseError(op string, err error) *Error {
	return &Error{Kind: KindServer, Code: CodeDatabaseError,
		Message: "database error during " + op, Err: err}
}

// ParseID converts a task identifier string to a UUID, returning an
// InvalidTaskID failure when it is malformed.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, InvalidTaskID(raw)
	}
	return id, nil
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindServer for unclassified errors.
func KindOf(err error) Kind {
	if te, ok := AsError(err); ok {
		return te.Kind
	}
	return KindServer
}
