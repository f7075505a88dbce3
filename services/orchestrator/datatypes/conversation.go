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
	"time"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/conversation"
)

// ConversationResponse is one conversation in API responses.
type ConversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationResponse converts a stored conversation.
func NewConversationResponse(c conversation.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationListResponse is the body of GET /v1/conversations.
type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// MessageResponse is one stored message in API responses.
type MessageResponse struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []tools.Record `json:"tool_calls"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessageResponse converts a stored message. ToolCalls is never nil.
func NewMessageResponse(m conversation.Message) MessageResponse {
	calls := m.ToolCalls
	if calls == nil {
		calls = []tools.Record{}
	}
	return MessageResponse{
		ID:        m.ID.String(),
		Role:      m.Role,
		Content:   m.Content,
		ToolCalls: calls,
		CreatedAt: m.CreatedAt,
	}
}

// MessageListResponse is the body of GET /v1/conversations/:id/messages.
type MessageListResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}
