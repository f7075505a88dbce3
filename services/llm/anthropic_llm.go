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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var anthropicTracer = otel.Tracer("aleutian.llm.anthropic")

const (
	anthropicAPIVersion   = "2023-06-01"
	defaultAnthropicURL   = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"
	defaultMaxTokens      = 4096

	jsonObjectInstruction = "Respond with a single JSON object and nothing else."
)

type anthropicRequest struct {
	Model       string               `json:"model"`
	Messages    []anthropicMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	MaxTokens   int                  `json:"max_tokens"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
	Temperature *float32             `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient talks to the Anthropic Messages API over REST.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	url        string
}

// NewAnthropicClient creates a client. The API key comes from
// cfg.APIKey, ANTHROPIC_API_KEY or /run/secrets/anthropic_api_key.
func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	apiKey := resolveAPIKey(cfg.APIKey, "ANTHROPIC_API_KEY", "anthropic_api_key")
	if apiKey == "" {
		slog.Warn("Anthropic API Key is missing.")
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is missing")
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
		slog.Info("CLAUDE_MODEL not set, defaulting to", "model", model)
	}
	url := cfg.BaseURL
	if url == "" {
		url = defaultAnthropicURL
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		url:        url,
	}, nil
}

// Complete implements Client.
func (a *AnthropicClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	ctx, span := anthropicTracer.Start(ctx, "AnthropicClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", a.model),
		attribute.Int("llm.num_messages", len(req.Messages)),
	)

	payload := anthropicRequest{
		Model:       a.model,
		System:      req.System,
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Params.Temperature,
	}
	if req.Params.MaxTokens != nil {
		payload.MaxTokens = *req.Params.MaxTokens
	}
	if req.JSONObject {
		payload.System = strings.TrimSpace(payload.System + "\n\n" + jsonObjectInstruction)
	}
	for _, m := range req.Messages {
		// System turns inside the history are folded into the top-level prompt.
		if m.Role == RoleSystem {
			payload.System = strings.TrimSpace(payload.System + "\n\n" + m.Content)
			continue
		}
		payload.Messages = append(payload.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		payload.Tools = append(payload.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	if len(payload.Tools) > 0 && req.ToolChoice == ToolChoiceAuto {
		payload.ToolChoice = &anthropicToolChoice{Type: "auto"}
	}
	if req.ToolChoice == ToolChoiceNone {
		payload.Tools = nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	slog.Debug("Sending REST request to Anthropic", "model", a.model)
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("anthropic API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	out := &Completion{FinishReason: anthropicFinishReason(apiResp.StopReason)}
	var text strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out, nil
}

func anthropicFinishReason(stop string) string {
	switch stop {
	case "tool_use":
		return FinishToolCalls
	case "max_tokens":
		return FinishLength
	case "":
		return ""
	default:
		return FinishStop
	}
}
