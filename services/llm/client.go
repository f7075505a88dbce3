// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm is the language-model collaborator of the task agent.
//
// A Client takes a system prompt, role-tagged messages, a tool schema and
// a tool-choice policy, and returns assistant text and/or requested tool
// calls with JSON-encoded arguments, plus a finish reason. Backends:
// OpenAI (go-openai), Anthropic Messages API and Ollama.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reasons, normalized across backends.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// ToolChoice is the tool selection policy sent with a request.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ErrTimeout is returned when a completion exceeds its deadline.
var ErrTimeout = errors.New("llm: completion timed out")

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition is one function the model may call. Parameters is a JSON
// schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function call requested by the model. Arguments is the raw
// JSON text the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// GenerationParams holds optional sampling settings. Nil fields use the
// backend default.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// Request is one completion request.
type Request struct {
	System     string
	Messages   []Message
	Tools      []ToolDefinition
	ToolChoice ToolChoice

	// JSONObject asks the model to answer with a single JSON object.
	JSONObject bool

	Params GenerationParams
}

// Completion is the model's answer.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Client is implemented by every backend.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Config selects and configures a backend.
type Config struct {
	// Backend is "openai", "anthropic" or "ollama".
	Backend string `yaml:"backend"`

	// Model overrides the backend's default model.
	Model string `yaml:"model"`

	// BaseURL overrides the backend's API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey overrides the key read from the environment or secrets.
	APIKey string `yaml:"-"`

	// Timeout bounds each completion. Zero disables the limit.
	Timeout time.Duration `yaml:"timeout"`
}

// NewClient builds the configured backend, wrapped with the configured
// timeout.
func NewClient(cfg Config) (Client, error) {
	var (
		c   Client
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "openai", "":
		c, err = NewOpenAIClient(cfg)
	case "anthropic", "claude":
		c, err = NewAnthropicClient(cfg)
	case "ollama":
		c, err = NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		c = WithTimeout(c, cfg.Timeout)
	}
	return c, nil
}

// resolveAPIKey returns explicit, then the env variable, then the podman
// secret file /run/secrets/<secretName>.
func resolveAPIKey(explicit, envVar, secretName string) string {
	if explicit != "" {
		return explicit
	}
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	secretPath := "/run/secrets/" + secretName
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from Podman Secrets", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}
