// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package handlers implements the HTTP handlers of the task service.
//
// Handlers are factories returning gin.HandlerFunc so their collaborators
// are injected at route setup. Every handler reads the caller's identity
// from the auth middleware and never from the request body.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/services"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var handlerTracer = otel.Tracer("aleutian.orchestrator.handlers")

// ChatProcessor runs one chat turn. Implemented by services.ChatService.
type ChatProcessor interface {
	Process(ctx context.Context, userID string, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error)
}

var _ ChatProcessor = (*services.ChatService)(nil)

// HandleChat serves POST /v1/chat.
//
// Responds 200 with a ChatResponse for every processed turn, including
// turns the agent could not complete (success=false). 400 for an invalid
// body, 404 for an unknown or foreign conversation, 500 for storage
// failures.
func HandleChat(svc ChatProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}

		resp, err := svc.Process(ctx, middleware.UserID(c), &req)
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("chat request failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
