// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var openaiTracer = otel.Tracer("aleutian.llm.openai")

const defaultOpenAIModel = "gpt-4-turbo"

// OpenAIClient talks to the OpenAI chat completions API, or any endpoint
// compatible with it.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client. The API key comes from cfg.APIKey,
// OPENAI_API_KEY or /run/secrets/openai_api_key, in that order.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	apiKey := resolveAPIKey(cfg.APIKey, "OPENAI_API_KEY", "openai_api_key")
	if apiKey == "" {
		slog.Error("OPENAI_API_KEY environment variable not set and secret not found")
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{client: openai.NewClientWithConfig(oc), model: model}, nil
}

// Complete implements Client.
func (o *OpenAIClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	ctx, span := openaiTracer.Start(ctx, "OpenAIClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Int("llm.num_messages", len(req.Messages)),
		attribute.Int("llm.num_tools", len(req.Tools)),
	)

	creq := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	for _, m := range req.Messages {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(creq.Tools) > 0 && req.ToolChoice != "" {
		creq.ToolChoice = string(req.ToolChoice)
	}
	if req.JSONObject {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if req.Params.Temperature != nil {
		creq.Temperature = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		creq.MaxTokens = *req.Params.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	out := &Completion{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	slog.Debug("Received response from OpenAI",
		"finish_reason", out.FinishReason,
		"tool_calls", len(out.ToolCalls))
	return out, nil
}
