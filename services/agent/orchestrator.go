// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package agent turns one user message plus conversation history into a
// reply, dispatching task operations and gating deletions behind an
// explicit confirmation.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianTasks/services/agent/classifier"
	"github.com/AleutianAI/AleutianTasks/services/agent/confirm"
	"github.com/AleutianAI/AleutianTasks/services/agent/errmsg"
	"github.com/AleutianAI/AleutianTasks/services/agent/reference"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/llm"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

var agentTracer = otel.Tracer("aleutian.agent")

// =============================================================================
// Types
// =============================================================================

// ToolExecutor runs one named tool for a user. *tools.Dispatcher
// implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, userID, name string, args map[string]any) tools.Result
}

var _ ToolExecutor = (*tools.Dispatcher)(nil)

// Config tunes the orchestrator.
type Config struct {
	// Temperature is the sampling temperature for every completion. Nil
	// selects the default; zero is a valid setting.
	Temperature *float32 `yaml:"temperature"`

	// MaxTokens bounds each completion.
	MaxTokens int `yaml:"max_tokens"`

	// HistoryWindow is how many trailing history entries are sent to the
	// model.
	HistoryWindow int `yaml:"history_window"`

	// ContextWindow is how many trailing history entries are scanned to
	// rebuild the conversation context.
	ContextWindow int `yaml:"context_window"`

	// NameLookupLimit bounds the task list searched for quoted names.
	NameLookupLimit int `yaml:"name_lookup_limit"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Temperature:     Float32(0.7),
		MaxTokens:       4096,
		HistoryWindow:   10,
		ContextWindow:   5,
		NameLookupLimit: 50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Temperature == nil {
		c.Temperature = d.Temperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = d.ContextWindow
	}
	if c.NameLookupLimit <= 0 {
		c.NameLookupLimit = d.NameLookupLimit
	}
	return c
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// Request is one incoming user message.
type Request struct {
	UserID         string
	ConversationID string
	Message        string
	History        []HistoryEntry
}

// Response is the outcome of one message. ToolCalls is never nil.
type Response struct {
	Success              bool              `json:"success"`
	AssistantMessage     string            `json:"assistant_message"`
	ToolCalls            []tools.Record    `json:"tool_calls"`
	RequiresConfirmation bool              `json:"requires_confirmation,omitempty"`
	Intent               classifier.Intent `json:"intent,omitempty"`
	FinishReason         string            `json:"finish_reason,omitempty"`
	Error                string            `json:"error,omitempty"`
	ErrorKind            tasks.Kind        `json:"error_kind,omitempty"`
	Suggestion           string            `json:"suggestion,omitempty"`
}

// Orchestrator composes classification, reference resolution, the
// confirmation gate, tool dispatch and error translation.
//
// # Thread Safety
//
// Safe for concurrent use. Per-conversation state lives in the gate's
// store, keyed by user and conversation.
type Orchestrator struct {
	tools  ToolExecutor
	model  llm.Client
	gate   *confirm.Gate
	cfg    Config
	logger *slog.Logger
	newID  func() string
}

// New creates an orchestrator. Zero Config fields take their defaults and
// a nil logger uses slog.Default().
func New(exec ToolExecutor, model llm.Client, gate *confirm.Gate, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tools:  exec,
		model:  model,
		gate:   gate,
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "agent"),
		newID:  uuid.NewString,
	}
}

// =============================================================================
// Entry point
// =============================================================================

// ProcessMessage handles one user message.
//
// # Description
//
// The conversation context is rebuilt from req.History. A pending
// confirmation for the conversation consumes the message as a yes/no
// answer. Otherwise the message is classified; delete intents resolve a
// target and enter the confirmation gate, everything else goes to the
// model with the tool definitions.
//
// # Outputs
//
//   - *Response: Always non-nil. Internal failures, including panics,
//     become Success=false with a generic user-safe message. An expired
//     model deadline yields the timeout message.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (resp *Response) {
	ctx, span := agentTracer.Start(ctx, "Orchestrator.ProcessMessage",
		trace.WithAttributes(
			attribute.String("conversation.id", req.ConversationID),
			attribute.Int("history.len", len(req.History)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while processing message",
				"panic", r,
				"conversation_id", req.ConversationID,
				"stack", string(debug.Stack()))
			span.SetStatus(codes.Error, "panic")
			resp = failureResponse(errmsg.Canned(tasks.KindServer, errmsg.KeyGeneric))
		}
	}()

	out, err := o.process(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error("message processing failed",
			"conversation_id", req.ConversationID,
			"error", err)
		if errors.Is(err, llm.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return failureResponse(errmsg.Canned(tasks.KindServer, errmsg.KeyTimeout))
		}
		return failureResponse(errmsg.Canned(tasks.KindServer, errmsg.KeyGeneric))
	}

	span.SetAttributes(
		attribute.String("agent.intent", string(out.Intent)),
		attribute.Bool("agent.requires_confirmation", out.RequiresConfirmation),
		attribute.Int("agent.tool_calls", len(out.ToolCalls)),
	)
	return out
}

func (o *Orchestrator) process(ctx context.Context, req Request) (*Response, error) {
	key := confirm.SessionKey(req.UserID, req.ConversationID)
	cc := RebuildContext(req.History, o.cfg.ContextWindow)

	decision, pending, err := o.gate.Respond(ctx, key, req.Message)
	switch {
	case err == nil:
		return o.answerConfirmation(ctx, req, decision, pending), nil
	case !errors.Is(err, confirm.ErrNoPending):
		return nil, err
	}

	intent := classifier.Classify(req.Message)
	o.logger.Debug("classified message",
		"conversation_id", req.ConversationID,
		"intent", intent)

	if confirm.RequiresConfirmation(intent) {
		return o.beginDelete(ctx, req, key, cc, intent)
	}
	return o.converse(ctx, req, key, cc, intent)
}

// =============================================================================
// Confirmation path
// =============================================================================

func (o *Orchestrator) answerConfirmation(ctx context.Context, req Request, d confirm.Decision, p *confirm.Pending) *Response {
	switch d {
	case confirm.Ambiguous:
		return &Response{
			Success:              true,
			AssistantMessage:     replyAskYesNo,
			ToolCalls:            []tools.Record{},
			RequiresConfirmation: true,
		}
	case confirm.Declined:
		o.logger.Info("deletion declined",
			"conversation_id", req.ConversationID,
			"task_id", p.TaskID)
		return &Response{Success: true, AssistantMessage: replyDeclined, ToolCalls: []tools.Record{}}
	}

	call := tools.Call{
		ID:        o.newID(),
		Name:      p.Tool,
		Arguments: map[string]any{"task_id": p.TaskID},
	}
	res := o.tools.Execute(ctx, req.UserID, call.Name, call.Arguments)
	if f, ok := res.(tools.Failure); ok {
		return translatedReply(errmsg.Translate(call.Name, f), classifier.DeleteTask)
	}

	o.logger.Info("deletion confirmed and executed",
		"conversation_id", req.ConversationID,
		"task_id", p.TaskID)
	return &Response{
		Success:          true,
		AssistantMessage: deletedReply(o.countPending(ctx, req.UserID)),
		ToolCalls:        []tools.Record{tools.NewRecord(call, res)},
		Intent:           classifier.DeleteTask,
	}
}

// beginDelete resolves the target of a delete request and, when one is
// found, moves the conversation to AWAITING_CONFIRMATION.
func (o *Orchestrator) beginDelete(ctx context.Context, req Request, key string, cc ConversationContext, intent classifier.Intent) (*Response, error) {
	target, clarification, err := o.resolveDeleteTarget(ctx, req, cc)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return &Response{
			Success:          true,
			AssistantMessage: clarification,
			ToolCalls:        []tools.Record{},
			Intent:           intent,
		}, nil
	}
	return o.awaitConfirmation(ctx, key, *target, intent, nil)
}

func (o *Orchestrator) awaitConfirmation(ctx context.Context, key string, target reference.Mention, intent classifier.Intent, executed []tools.Record) (*Response, error) {
	err := o.gate.Begin(ctx, key, confirm.Pending{
		Tool:      tools.DeleteTask,
		TaskID:    target.TaskID,
		TaskTitle: target.Title,
	})
	if err != nil {
		return nil, err
	}
	if executed == nil {
		executed = []tools.Record{}
	}
	return &Response{
		Success:              true,
		AssistantMessage:     confirmationPrompt(target.Title),
		ToolCalls:            executed,
		RequiresConfirmation: true,
		Intent:               intent,
	}, nil
}

// =============================================================================
// Model path
// =============================================================================

// converse sends the message to the model with the tool definitions and
// executes the calls it requests, in order.
func (o *Orchestrator) converse(ctx context.Context, req Request, key string, cc ConversationContext, intent classifier.Intent) (*Response, error) {
	content := req.Message
	if reference.ContainsPronoun(req.Message) {
		content += contextHint(cc.RecentTasks)
	}
	msgs := append(chatMessages(req.History, o.cfg.HistoryWindow),
		llm.Message{Role: llm.RoleUser, Content: content})

	comp, err := o.model.Complete(ctx, llm.Request{
		System:     SystemPrompt,
		Messages:   msgs,
		Tools:      tools.Definitions(),
		ToolChoice: llm.ToolChoiceAuto,
		Params:     o.params(),
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	records := []tools.Record{}
	for _, tc := range comp.ToolCalls {
		args, err := decodeArguments(tc.Arguments)
		if err != nil {
			o.logger.Warn("model produced unreadable tool arguments",
				"tool", tc.Name,
				"error", err)
			resp := translatedReply(errmsg.Canned(tasks.KindServer, errmsg.KeyGeneric), intent)
			resp.FinishReason = comp.FinishReason
			return resp, nil
		}

		if confirm.RequiresConfirmationTool(tc.Name) {
			return o.gateModelDelete(ctx, req, key, cc, intent, args, records)
		}

		call := tools.Call{ID: tc.ID, Name: tc.Name, Arguments: args}
		if call.ID == "" {
			call.ID = o.newID()
		}
		res := o.tools.Execute(ctx, req.UserID, call.Name, call.Arguments)
		if f, ok := res.(tools.Failure); ok {
			resp := translatedReply(errmsg.Translate(call.Name, f), intent)
			resp.FinishReason = comp.FinishReason
			return resp, nil
		}

		rec := tools.NewRecord(call, res)
		cc.apply(rec.Result)
		records = append(records, rec)
	}

	reply := comp.Content
	if reply == "" {
		reply = o.synthesizeReply(ctx, req.UserID, records)
	}
	return &Response{
		Success:          true,
		AssistantMessage: reply,
		ToolCalls:        records,
		Intent:           intent,
		FinishReason:     comp.FinishReason,
	}, nil
}

// gateModelDelete routes a model-requested delete_task into the
// confirmation gate instead of executing it.
func (o *Orchestrator) gateModelDelete(ctx context.Context, req Request, key string, cc ConversationContext, intent classifier.Intent, args map[string]any, executed []tools.Record) (*Response, error) {
	id, _ := args["task_id"].(string)
	target, found := o.knownTask(ctx, req.UserID, cc, id)
	if !found {
		return &Response{
			Success:          true,
			AssistantMessage: replyNotSure,
			ToolCalls:        executed,
			Intent:           intent,
		}, nil
	}
	return o.awaitConfirmation(ctx, key, target, classifier.DeleteTask, executed)
}

func (o *Orchestrator) params() llm.GenerationParams {
	temp := *o.cfg.Temperature
	maxTokens := o.cfg.MaxTokens
	return llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}
}

// =============================================================================
// Helpers
// =============================================================================

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func translatedReply(t errmsg.Translation, intent classifier.Intent) *Response {
	return &Response{
		Success:          true,
		AssistantMessage: t.Message,
		ToolCalls:        []tools.Record{},
		Intent:           intent,
		ErrorKind:        t.Kind,
		Suggestion:       t.Suggestion,
	}
}

func failureResponse(t errmsg.Translation) *Response {
	return &Response{
		Success:          false,
		AssistantMessage: t.Message,
		ToolCalls:        []tools.Record{},
		Error:            t.Message,
		ErrorKind:        t.Kind,
		Suggestion:       t.Suggestion,
	}
}
