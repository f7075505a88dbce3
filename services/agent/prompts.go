// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package agent

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/AleutianTasks/services/agent/reference"
)

// SystemPrompt frames every completion request.
const SystemPrompt = `You are a helpful AI assistant that helps users manage their todo tasks through natural conversation.

You can help users with the following operations:
1. Add tasks: When users want to create a new task
2. List tasks: Show users their pending, completed, or all tasks
3. Complete tasks: Mark tasks as done
4. Delete tasks: Remove tasks (requires user confirmation first)
5. Update tasks: Change task titles or descriptions

Guidelines:
- Be conversational and friendly
- Ask clarifying questions when intent is unclear
- For destructive operations (delete), always confirm with the user first
- Never expose technical errors - always provide helpful, user-friendly messages
- When a tool fails, offer alternative solutions
- Remember context from earlier in the conversation
- Resolve pronouns (it, that, this) based on recent conversation
- Suggest follow-up actions when helpful

Example interactions:
- User: "Add a task to buy groceries"
  -> Recognize as add_task intent
  -> Extract title: "Buy groceries"
  -> Confirm task creation

- User: "Delete my oldest task"
  -> First fetch the task to be deleted
  -> Ask for explicit confirmation with task name
  -> Only after confirmation, invoke delete_task tool

- User: "Mark it complete"
  -> Remember context from earlier messages
  -> Identify which task "it" refers to
  -> Confirm completion
`

const identifyTemplate = `User wants to delete a task. Their message: %q

To help them, I need to:
1. Identify which task they want to delete
2. Ask for confirmation with the task name

Available context - recent tasks: %s
Last task list: %s

Respond with JSON:
{
    "task_id": "uuid or null",
    "task_title": "title or null",
    "clarification": "message if task cannot be identified"
}`

// identification is the model's answer to identifyPrompt.
type identification struct {
	TaskID        *string `json:"task_id"`
	TaskTitle     *string `json:"task_title"`
	Clarification *string `json:"clarification"`
}

// identifyPrompt asks the model which task a delete request targets.
func identifyPrompt(message string, c ConversationContext) string {
	last := "None"
	if len(c.LastListResult) > 0 {
		last = indentJSON(c.LastListResult)
	}
	return fmt.Sprintf(identifyTemplate, message, indentJSON(mentionsOrEmpty(c.RecentTasks)), last)
}

// contextHint is appended to messages that contain a pronoun.
func contextHint(recent []reference.Mention) string {
	return "\n\nContext - Recent tasks: " + indentJSON(mentionsOrEmpty(recent))
}

func mentionsOrEmpty(m []reference.Mention) []reference.Mention {
	if m == nil {
		return []reference.Mention{}
	}
	return m
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
