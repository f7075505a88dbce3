// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package datatypes defines the request and response bodies of the task
// service's HTTP API.
package datatypes

import (
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/go-playground/validator/v10"
)

// MaxMessageRunes is the longest accepted chat message, in characters.
const MaxMessageRunes = 4000

// apiValidate is the validator instance for API datatypes.
// Initialized in init() with custom validators.
var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
	_ = apiValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank rejects strings that are empty after trimming
// whitespace. Nil string pointers pass; pair with "required" to forbid
// them.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ChatRequest is the body of POST /v1/chat.
//
// # Fields
//
//   - ConversationID: Existing conversation to continue. Empty starts a
//     new conversation titled after the message.
//   - Message: The user's message, 1 to 4000 characters, not blank.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	Message        string `json:"message" binding:"required" validate:"required,notblank,max=4000"`
}

// Validate checks the request against its validation tags.
func (r *ChatRequest) Validate() error {
	return apiValidate.Struct(r)
}

// ChatResponse is the body returned by POST /v1/chat.
//
// A chat that fails inside the agent still returns HTTP 200 with
// Success=false; Response then holds the user-safe explanation.
type ChatResponse struct {
	ConversationID       string         `json:"conversation_id"`
	MessageID            string         `json:"message_id"`
	Response             string         `json:"response"`
	ToolCalls            []tools.Record `json:"tool_calls"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
	Success              bool           `json:"success"`
	Suggestion           string         `json:"suggestion,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
