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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/conversation"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConversationStore is the read and delete side of conversation history.
type ConversationStore interface {
	List(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error)
	Recent(ctx context.Context, userID string, conversationID uuid.UUID, n int) ([]conversation.Message, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

var _ ConversationStore = (*conversation.Store)(nil)

// HandleListConversations serves GET /v1/conversations?limit=N.
func HandleListConversations(store ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := queryInt(c, "limit", conversation.DefaultListLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		convs, err := store.List(c.Request.Context(), middleware.UserID(c), limit)
		if err != nil {
			slog.Error("list conversations failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		out := datatypes.ConversationListResponse{Conversations: make([]datatypes.ConversationResponse, 0, len(convs))}
		for _, conv := range convs {
			out.Conversations = append(out.Conversations, datatypes.NewConversationResponse(conv))
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleListMessages serves GET /v1/conversations/:id/messages?limit=N.
// Without a limit every message is returned, oldest first.
func HandleListMessages(store ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := conversationParam(c)
		if !ok {
			return
		}
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		msgs, err := store.Recent(c.Request.Context(), middleware.UserID(c), id, limit)
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		if err != nil {
			slog.Error("list messages failed", "error", err, "conversation_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		out := datatypes.MessageListResponse{
			ConversationID: id.String(),
			Messages:       make([]datatypes.MessageResponse, 0, len(msgs)),
		}
		for _, m := range msgs {
			out.Messages = append(out.Messages, datatypes.NewMessageResponse(m))
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleDeleteConversation serves DELETE /v1/conversations/:id.
func HandleDeleteConversation(store ConversationStore, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := conversationParam(c)
		if !ok {
			return
		}
		userID := middleware.UserID(c)
		err := store.Delete(c.Request.Context(), userID, id)
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		if err != nil {
			slog.Error("delete conversation failed", "error", err, "conversation_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    extensions.EventConversationDeleted,
			UserID:       userID,
			Action:       "delete",
			ResourceType: "conversation",
			ResourceID:   id.String(),
			Outcome:      "success",
		})
		c.Status(http.StatusNoContent)
	}
}

// conversationParam parses the :id path parameter. A malformed id is
// reported as not found, the same as a foreign one.
func conversationParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
