// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package routes wires the task service's handlers onto a gin router.
package routes

import (
	"net/http"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the routes need.
type Dependencies struct {
	Chat          handlers.ChatProcessor
	Conversations handlers.ConversationStore
	Tasks         tasks.Backend

	// Health lists the dependencies pinged by GET /health.
	Health map[string]handlers.Pinger

	// Metrics serves GET /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// RateLimiter guards POST /v1/chat. Nil disables limiting.
	RateLimiter *middleware.RateLimiter

	// Options supplies auth and audit. Nil fields take no-op defaults.
	Options extensions.ServiceOptions
}

// SetupRoutes registers every route on router.
//
//	GET    /health
//	GET    /metrics
//	POST   /v1/chat
//	GET    /v1/conversations
//	GET    /v1/conversations/:id/messages
//	DELETE /v1/conversations/:id
//	GET    /v1/tasks
//	POST   /v1/tasks
//	PATCH  /v1/tasks/:id
//	POST   /v1/tasks/:id/complete
//	DELETE /v1/tasks/:id
//
// Everything under /v1 requires authentication.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	opts := deps.Options.Normalize()

	router.GET("/health", handlers.HealthCheck(deps.Health))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider, opts.AuditLogger))
	{
		chat := []gin.HandlerFunc{handlers.HandleChat(deps.Chat)}
		if deps.RateLimiter != nil {
			chat = append([]gin.HandlerFunc{deps.RateLimiter.Middleware()}, chat...)
		}
		v1.POST("/chat", chat...)

		conversations := v1.Group("/conversations")
		{
			conversations.GET("", handlers.HandleListConversations(deps.Conversations))
			conversations.GET("/:id/messages", handlers.HandleListMessages(deps.Conversations))
			conversations.DELETE("/:id", handlers.HandleDeleteConversation(deps.Conversations, opts.AuditLogger))
		}

		taskRoutes := v1.Group("/tasks")
		{
			taskRoutes.GET("", handlers.HandleListTasks(deps.Tasks))
			taskRoutes.POST("", handlers.HandleCreateTask(deps.Tasks))
			taskRoutes.PATCH("/:id", handlers.HandleUpdateTask(deps.Tasks))
			taskRoutes.POST("/:id/complete", handlers.HandleCompleteTask(deps.Tasks))
			taskRoutes.DELETE("/:id", handlers.HandleDeleteTask(deps.Tasks, opts.AuditLogger))
		}
	}
}
