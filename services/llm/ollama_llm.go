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
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ollamaTracer = otel.Tracer("aleutian.llm.ollama")

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1"
)

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Tools    []ollamaTool   `json:"tools,omitempty"`
	Format   string         `json:"format,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type ollamaChatResponse struct {
	Message    ollamaResponseMessage `json:"message"`
	Done       bool                  `json:"done"`
	DoneReason string                `json:"done_reason"`
}

type ollamaResponseMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// OllamaClient talks to a local Ollama server's /api/chat endpoint.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewOllamaClient creates a client for cfg.BaseURL, falling back to
// OLLAMA_BASE_URL and then localhost.
func NewOllamaClient(cfg Config) (*OllamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = os.Getenv("OLLAMA_MODEL")
	}
	if model == "" {
		slog.Warn("OLLAMA_MODEL not set, defaulting", "model", defaultOllamaModel)
		model = defaultOllamaModel
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama client", "base_url", baseURL, "default_model", model)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Complete implements Client.
func (o *OllamaClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	ctx, span := ollamaTracer.Start(ctx, "OllamaClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Int("llm.num_messages", len(req.Messages)),
	)

	payload := ollamaChatRequest{Model: o.model, Stream: false, Options: map[string]any{}}
	if req.System != "" {
		payload.Messages = append(payload.Messages, Message{Role: RoleSystem, Content: req.System})
	}
	payload.Messages = append(payload.Messages, req.Messages...)
	if req.ToolChoice != ToolChoiceNone {
		for _, t := range req.Tools {
			payload.Tools = append(payload.Tools, ollamaTool{Type: "function", Function: t})
		}
	}
	if req.JSONObject {
		payload.Format = "json"
	}
	if req.Params.Temperature != nil {
		payload.Options["temperature"] = *req.Params.Temperature
	}
	if req.Params.MaxTokens != nil {
		payload.Options["num_predict"] = *req.Params.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request to Ollama: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to Ollama: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Ollama API call failed", "error", err)
		return nil, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound && strings.Contains(string(respBody), "not found") {
			return nil, fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", o.model, o.model)
		}
		return nil, fmt.Errorf("Ollama failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	out := &Completion{Content: chat.Message.Content, FinishReason: FinishStop}
	if chat.DoneReason == "length" {
		out.FinishReason = FinishLength
	}
	for _, tc := range chat.Message.ToolCalls {
		args := string(tc.Function.Arguments)
		if args == "" || args == "null" {
			args = "{}"
		}
		// Ollama does not assign call ids.
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = FinishToolCalls
	}
	return out, nil
}
