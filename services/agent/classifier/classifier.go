// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier maps a user utterance to a task intent.
//
// Classification is a fixed, ordered keyword table. The order is the
// intent priority: an utterance that mentions deletion is a delete even
// when it also mentions an update.
package classifier

import "strings"

// Intent is the classified user goal for one utterance.
type Intent string

const (
	AddTask      Intent = "add_task"
	ListTasks    Intent = "list_tasks"
	CompleteTask Intent = "complete_task"
	DeleteTask   Intent = "delete_task"
	UpdateTask   Intent = "update_task"
	Unknown      Intent = "unknown"
)

// Rule is one row of the classification table.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// rules is evaluated top to bottom. Order matters - first match wins.
var rules = []Rule{
	{DeleteTask, []string{"delete", "remove", "drop", "erase", "discard", "destroy", "eliminate", "get rid", "no longer"}},
	{UpdateTask, []string{"update", "change", "rename", "modify", "edit", "alter", "transform", "switch", "revise"}},
	{CompleteTask, []string{"complete", "done", "finish", "mark", "check off", "finished", "accomplished", "closed", "resolved"}},
	{ListTasks, []string{"list", "show", "what", "all tasks", "pending", "completed", "today", "upcoming", "view", "get", "see"}},
	{AddTask, []string{"add", "create", "new", "task", "remember", "todo", "need to", "should", "make", "set up", "schedule"}},
}

// Rules returns a copy of the classification table in priority order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the intent of text. Matching is case-insensitive
// substring membership; text matching no rule is Unknown.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Intent
			}
		}
	}
	return Unknown
}
