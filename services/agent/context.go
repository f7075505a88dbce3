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
	"github.com/AleutianAI/AleutianTasks/services/agent/reference"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/llm"
)

// HistoryEntry is one stored conversation turn as supplied by the caller.
type HistoryEntry struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []tools.Record `json:"tool_calls,omitempty"`
}

// ConversationContext is the per-call view of recent task activity used to
// resolve references like "it" or "the second one".
//
// # Description
//
// It is rebuilt from history at the start of every call and discarded at
// the end. Pending confirmations are not part of it; they live in the
// confirm.Store because history alone cannot reconstruct them.
type ConversationContext struct {
	// RecentTasks holds single-task results, oldest first.
	RecentTasks []reference.Mention

	// LastListResult is the most recent list_tasks result, or nil.
	LastListResult []tools.Summary
}

// RebuildContext scans the tool-call results of the last window entries
// of history. Only successful results contribute.
func RebuildContext(history []HistoryEntry, window int) ConversationContext {
	var c ConversationContext
	start := 0
	if window > 0 && len(history) > window {
		start = len(history) - window
	}
	for _, entry := range history[start:] {
		for _, rec := range entry.ToolCalls {
			c.apply(rec.Result)
		}
	}
	return c
}

func (c *ConversationContext) apply(env tools.Envelope) {
	if !env.Success {
		return
	}
	if env.Task != nil {
		c.RecentTasks = append(c.RecentTasks, reference.Mention{
			TaskID: env.Task.ID,
			Title:  env.Task.Title,
		})
	}
	// An empty list decodes with Tasks nil but Total set; it still
	// replaces the previous list.
	if env.Tasks != nil || env.Total != nil {
		c.LastListResult = env.Tasks
		if c.LastListResult == nil {
			c.LastListResult = []tools.Summary{}
		}
	}
}

// chatMessages converts the trailing window of history into model
// messages. Entries with empty content are skipped.
func chatMessages(history []HistoryEntry, window int) []llm.Message {
	start := 0
	if window > 0 && len(history) > window {
		start = len(history) - window
	}
	out := make([]llm.Message, 0, len(history)-start+1)
	for _, entry := range history[start:] {
		if entry.Content == "" {
			continue
		}
		out = append(out, llm.Message{Role: entry.Role, Content: entry.Content})
	}
	return out
}
