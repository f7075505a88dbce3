// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
	"github.com/gin-gonic/gin"
)

// statusForKind maps a backend failure kind to an HTTP status.
func statusForKind(kind tasks.Kind) int {
	switch kind {
	case tasks.KindValidation:
		return http.StatusBadRequest
	case tasks.KindNotFound:
		return http.StatusNotFound
	case tasks.KindAuthorization:
		return http.StatusForbidden
	case tasks.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeTaskError responds with the status for err's kind. Server errors
// are logged and reported without detail.
func writeTaskError(c *gin.Context, op string, err error) {
	te, ok := tasks.AsError(err)
	if !ok || te.Kind == tasks.KindServer {
		slog.Error("task operation failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
			Error: "internal error",
			Code:  tasks.CodeDatabaseError,
		})
		return
	}
	c.JSON(statusForKind(te.Kind), datatypes.ErrorResponse{Error: te.Message, Code: te.Code})
}

// HandleListTasks serves GET /v1/tasks?is_complete=&limit=&offset=.
func HandleListTasks(backend tasks.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q datatypes.ListTasksQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
			return
		}
		if err := q.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
			return
		}
		list, total, err := backend.ListTasks(c.Request.Context(), middleware.UserID(c), q.Filter())
		if err != nil {
			writeTaskError(c, "list", err)
			return
		}
		c.JSON(http.StatusOK, datatypes.TaskListResponse{Tasks: list, Total: total})
	}
}

// HandleCreateTask serves POST /v1/tasks.
func HandleCreateTask(backend tasks.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body", Details: err.Error()})
			return
		}
		task, err := backend.AddTask(c.Request.Context(), middleware.UserID(c), req.NewTask())
		if err != nil {
			writeTaskError(c, "create", err)
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

// HandleUpdateTask serves PATCH /v1/tasks/:id.
func HandleUpdateTask(backend tasks.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := tasks.ParseID(c.Param("id"))
		if err != nil {
			writeTaskError(c, "update", err)
			return
		}
		var req datatypes.UpdateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		task, err := backend.UpdateTask(c.Request.Context(), middleware.UserID(c), id, req.Update())
		if err != nil {
			writeTaskError(c, "update", err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// HandleCompleteTask serves POST /v1/tasks/:id/complete.
func HandleCompleteTask(backend tasks.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := tasks.ParseID(c.Param("id"))
		if err != nil {
			writeTaskError(c, "complete", err)
			return
		}
		task, err := backend.CompleteTask(c.Request.Context(), middleware.UserID(c), id)
		if err != nil {
			writeTaskError(c, "complete", err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// HandleDeleteTask serves DELETE /v1/tasks/:id. Direct API deletions are
// not gated by confirmation; they are audited like chat deletions.
func HandleDeleteTask(backend tasks.Backend, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := tasks.ParseID(c.Param("id"))
		if err != nil {
			writeTaskError(c, "delete", err)
			return
		}
		userID := middleware.UserID(c)
		if err := backend.DeleteTask(c.Request.Context(), userID, id); err != nil {
			writeTaskError(c, "delete", err)
			return
		}
		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    extensions.EventTaskDeleted,
			UserID:       userID,
			Action:       "delete",
			ResourceType: "task",
			ResourceID:   id.String(),
			Outcome:      "success",
			Metadata:     map[string]any{"via": "api"},
		})
		c.Status(http.StatusNoContent)
	}
}
