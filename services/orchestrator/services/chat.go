// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package services provides business logic services for the task service.
//
// Services sit between the HTTP handlers and the stores: handlers bind
// and validate, services orchestrate, stores persist. Dependencies are
// injected via constructors and every method takes a context for tracing.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/agent"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/conversation"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// chatTracer is the OpenTelemetry tracer for ChatService operations.
var chatTracer = otel.Tracer("aleutian.orchestrator.services.chat")

// DefaultHistoryLimit is how many stored messages are loaded as agent
// history for each turn.
const DefaultHistoryLimit = 20

// ErrConversationNotFound is returned when the requested conversation does
// not exist or belongs to another user.
var ErrConversationNotFound = errors.New("conversation not found")

// =============================================================================
// Interfaces
// =============================================================================

// HistoryStore persists conversations and their messages.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	Create(ctx context.Context, userID, title string) (*conversation.Conversation, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*conversation.Conversation, error)
	Append(ctx context.Context, userID string, conversationID uuid.UUID, role, content string, calls []tools.Record) (*conversation.Message, error)
	Recent(ctx context.Context, userID string, conversationID uuid.UUID, n int) ([]conversation.Message, error)
}

// MessageProcessor runs one conversational turn.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, req agent.Request) *agent.Response
}

// Compile-time interface implementation checks.
var (
	_ HistoryStore     = (*conversation.Store)(nil)
	_ MessageProcessor = (*agent.Orchestrator)(nil)
)

// =============================================================================
// ChatService
// =============================================================================

// ChatService runs chat turns against stored conversation history.
//
// # Thread Safety
//
// Safe for concurrent use. Two turns on the same conversation are not
// serialized; the agent's confirmation gate keys on user and conversation,
// so the later turn sees whatever state the earlier one left.
type ChatService struct {
	history      HistoryStore
	agent        MessageProcessor
	audit        extensions.AuditLogger
	metrics      *observability.AgentMetrics
	logger       *slog.Logger
	historyLimit int
	now          func() time.Time
}

// ChatServiceOptions holds the optional collaborators of a ChatService.
type ChatServiceOptions struct {
	// AuditLogger receives one event per executed deletion.
	// Default: NopAuditLogger
	AuditLogger extensions.AuditLogger

	// Metrics records chat outcomes. Nil disables metrics.
	Metrics *observability.AgentMetrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// HistoryLimit defaults to DefaultHistoryLimit.
	HistoryLimit int
}

// NewChatService creates a chat service.
func NewChatService(history HistoryStore, processor MessageProcessor, opts ChatServiceOptions) *ChatService {
	if opts.AuditLogger == nil {
		opts.AuditLogger = &extensions.NopAuditLogger{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &ChatService{
		history:      history,
		agent:        processor,
		audit:        opts.AuditLogger,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("component", "chat_service"),
		historyLimit: opts.HistoryLimit,
		now:          time.Now,
	}
}

// Process runs one chat turn for userID.
//
// # Description
//
//  1. Resolves the conversation, creating one titled after the message
//     when req.ConversationID is empty.
//  2. Loads the most recent stored messages as agent history.
//  3. Stores the user message, runs the agent, stores the reply together
//     with its tool calls.
//  4. Audits executed deletions and records metrics.
//
// # Outputs
//
//   - *datatypes.ChatResponse: The turn's result. Agent failures are
//     reported in the response (Success=false), not as an error.
//   - error: ErrConversationNotFound, or a wrapped storage error.
func (s *ChatService) Process(ctx context.Context, userID string, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.Process",
		trace.WithAttributes(
			attribute.Int("message.len", len(req.Message)),
			attribute.Bool("conversation.new", req.ConversationID == ""),
		))
	defer span.End()
	start := s.now()

	conv, err := s.resolveConversation(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID.String()))

	stored, err := s.history.Recent(ctx, userID, conv.ID, s.historyLimit)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("load history: %w", err))
	}
	if _, err := s.history.Append(ctx, userID, conv.ID, conversation.RoleUser, req.Message, nil); err != nil {
		return nil, s.fail(span, fmt.Errorf("store user message: %w", err))
	}

	resp := s.agent.ProcessMessage(ctx, agent.Request{
		UserID:         userID,
		ConversationID: conv.ID.String(),
		Message:        req.Message,
		History:        toHistory(stored),
	})

	reply, err := s.history.Append(ctx, userID, conv.ID, conversation.RoleAssistant, resp.AssistantMessage, resp.ToolCalls)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("store assistant message: %w", err))
	}

	s.auditDeletions(ctx, userID, conv.ID, resp.ToolCalls)
	s.metrics.RecordChat(resp, s.now().Sub(start))

	s.logger.Info("chat turn completed",
		"conversation_id", conv.ID,
		"success", resp.Success,
		"intent", resp.Intent,
		"tool_calls", len(resp.ToolCalls),
		"requires_confirmation", resp.RequiresConfirmation)

	return &datatypes.ChatResponse{
		ConversationID:       conv.ID.String(),
		MessageID:            reply.ID.String(),
		Response:             resp.AssistantMessage,
		ToolCalls:            resp.ToolCalls,
		RequiresConfirmation: resp.RequiresConfirmation,
		Success:              resp.Success,
		Suggestion:           resp.Suggestion,
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, userID string, req *datatypes.ChatRequest) (*conversation.Conversation, error) {
	if req.ConversationID == "" {
		conv, err := s.history.Create(ctx, userID, req.Message)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conv, nil
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	conv, err := s.history.Get(ctx, userID, id)
	if errors.Is(err, conversation.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

func (s *ChatService) auditDeletions(ctx context.Context, userID string, convID uuid.UUID, calls []tools.Record) {
	for _, rec := range calls {
		if rec.Name != tools.DeleteTask || !rec.Result.Success {
			continue
		}
		err := s.audit.Log(ctx, extensions.AuditEvent{
			EventType:    extensions.EventTaskDeleted,
			UserID:       userID,
			Action:       "delete",
			ResourceType: "task",
			ResourceID:   rec.Result.TaskID,
			Outcome:      "success",
			Metadata: map[string]any{
				"conversation_id": convID.String(),
				"tool_call_id":    rec.ID,
				"via":             "chat",
			},
		})
		if err != nil {
			s.logger.Warn("audit log failed", "error", err, "task_id", rec.Result.TaskID)
		}
	}
}

func (s *ChatService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("chat turn failed", "error", err)
	return err
}

// toHistory converts stored messages to agent history entries.
func toHistory(msgs []conversation.Message) []agent.HistoryEntry {
	out := make([]agent.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, agent.HistoryEntry{
			Role:      m.Role,
			Content:   m.Content,
			ToolCalls: m.ToolCalls,
		})
	}
	return out
}
