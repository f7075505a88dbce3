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
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

// Fixed replies.
const (
	replyNothingElse    = "Is there anything else I can help with?"
	replyOperationDone  = "Operation completed. Is there anything else I can help with?"
	replyNoTasks        = "You don't have any tasks yet. Would you like to create one?"
	replyAskYesNo       = "Please say 'yes' or 'no'."
	replyDeclined       = "No problem! We'll keep that task. Is there anything else I can help with?"
	replyNotSure        = "I'm not sure which task you mean. Would you like to see all your tasks?"
	replyBeMoreSpecific = "I'm not sure which task you mean. Could you be more specific?"
	maxListedInReply    = 10
	pendingCountLimit   = 1000
)

func confirmationPrompt(title string) string {
	return fmt.Sprintf("I want to make sure - do you want to delete '%s'? "+
		"This action can't be undone. Please say 'yes' or 'no'.", title)
}

func indexMissReply(n int) string {
	return fmt.Sprintf("I couldn't find task %d. Would you like to see all your tasks?", n)
}

func deletedReply(pending int) string {
	return fmt.Sprintf("Task deleted. You have %d pending tasks left.", pending)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// synthesizeReply builds a reply from the first tool result when the model
// returned no text of its own.
func (o *Orchestrator) synthesizeReply(ctx context.Context, userID string, records []tools.Record) string {
	if len(records) == 0 {
		return replyNothingElse
	}
	first := records[0]

	switch r := first.Result.Result().(type) {
	case tools.TaskResult:
		switch first.Name {
		case tools.AddTask:
			return fmt.Sprintf("I've created a task: '%s'. "+
				"Would you like to add any details like a description?", r.Task.Title)
		case tools.CompleteTask:
			pending := o.countPending(ctx, userID)
			return fmt.Sprintf("Done! '%s' is now marked complete. "+
				"You have %d pending task%s left.", r.Task.Title, pending, plural(pending))
		case tools.UpdateTask:
			return fmt.Sprintf("Updated! Task '%s' has been modified.", r.Task.Title)
		}
	case tools.ListResult:
		if first.Name == tools.ListTasks {
			return listReply(r)
		}
	}
	return replyOperationDone
}

func listReply(r tools.ListResult) string {
	if len(r.Tasks) == 0 {
		return replyNoTasks
	}
	shown := r.Tasks
	if len(shown) > maxListedInReply {
		shown = shown[:maxListedInReply]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task%s:\n", r.Total, plural(r.Total))
	for i, t := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	b.WriteString("Would you like to complete, update, or delete any of these?")
	return b.String()
}

// countPending returns the number of incomplete tasks, or 0 if the lookup
// fails.
func (o *Orchestrator) countPending(ctx context.Context, userID string) int {
	res := o.tools.Execute(ctx, userID, tools.ListTasks, map[string]any{
		"is_complete": false,
		"limit":       pendingCountLimit,
	})
	if list, ok := res.(tools.ListResult); ok {
		return list.Total
	}
	return 0
}
