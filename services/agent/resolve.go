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
	"encoding/json"
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/reference"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/llm"
)

// resolveDeleteTarget identifies the task a delete request refers to.
//
// # Description
//
// Tried in order: an explicit "task N" index against the user's list, a
// quoted name against the most recent tasks, a pronoun or ordinal against
// the rebuilt context when no name was quoted, and finally a structured
// identification request to the model. A task id the model returns that is not among the known
// tasks counts as unidentified.
//
// # Outputs
//
//   - *reference.Mention: The target, or nil when none was identified.
//   - string: The clarifying reply when the target is nil.
//   - error: Model failures only.
func (o *Orchestrator) resolveDeleteTarget(ctx context.Context, req Request, cc ConversationContext) (*reference.Mention, string, error) {
	ref := reference.Extract(req.Message)
	if ref.Kind == reference.Index {
		target, reply := o.byIndex(ctx, req.UserID, ref.N)
		return target, reply, nil
	}

	switch ref.Kind {
	case reference.Name:
		if s, ok := reference.MatchTitle(ref.Text, o.recentList(ctx, req.UserID)); ok {
			return &reference.Mention{TaskID: s.ID, Title: s.Title}, "", nil
		}
	case reference.None, reference.Ordinal:
		if id, ok := reference.ResolvePronoun(req.Message, cc.RecentTasks, cc.LastListResult); ok {
			if m, ok := cc.lookup(id); ok {
				return &m, "", nil
			}
		}
	}

	return o.identifyWithModel(ctx, req, cc)
}

// byIndex resolves "task N" as the Nth task of the default listing.
func (o *Orchestrator) byIndex(ctx context.Context, userID string, n int) (*reference.Mention, string) {
	if n < 1 {
		return nil, indexMissReply(n)
	}
	res := o.tools.Execute(ctx, userID, tools.ListTasks, map[string]any{
		"limit":  n,
		"offset": 0,
	})
	list, ok := res.(tools.ListResult)
	if !ok {
		return nil, replyNotSure
	}
	if len(list.Tasks) < n {
		return nil, indexMissReply(n)
	}
	t := list.Tasks[n-1]
	return &reference.Mention{TaskID: t.ID, Title: t.Title}, ""
}

func (o *Orchestrator) identifyWithModel(ctx context.Context, req Request, cc ConversationContext) (*reference.Mention, string, error) {
	comp, err := o.model.Complete(ctx, llm.Request{
		System: SystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: identifyPrompt(req.Message, cc)},
		},
		JSONObject: true,
		Params:     o.params(),
	})
	if err != nil {
		return nil, "", err
	}

	body := stripFences(comp.Content)
	if body == "" {
		body = "{}"
	}
	var ident identification
	if err := json.Unmarshal([]byte(body), &ident); err != nil {
		o.logger.Warn("unreadable task identification", "error", err)
		return nil, replyBeMoreSpecific, nil
	}
	if ident.Clarification != nil && strings.TrimSpace(*ident.Clarification) != "" {
		return nil, *ident.Clarification, nil
	}
	if ident.TaskID == nil || ident.TaskTitle == nil || *ident.TaskID == "" || *ident.TaskTitle == "" {
		return nil, replyNotSure, nil
	}

	target, ok := o.knownTask(ctx, req.UserID, cc, *ident.TaskID)
	if !ok {
		o.logger.Warn("model identified an unknown task", "task_id", *ident.TaskID)
		return nil, replyNotSure, nil
	}
	return &target, "", nil
}

// knownTask finds id in the context or among the user's recent tasks.
func (o *Orchestrator) knownTask(ctx context.Context, userID string, cc ConversationContext, id string) (reference.Mention, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return reference.Mention{}, false
	}
	if m, ok := cc.lookup(id); ok {
		return m, true
	}
	for _, t := range o.recentList(ctx, userID) {
		if strings.EqualFold(t.ID, id) {
			return reference.Mention{TaskID: t.ID, Title: t.Title}, true
		}
	}
	return reference.Mention{}, false
}

// recentList returns up to NameLookupLimit of the user's newest tasks, or
// nil if the listing fails.
func (o *Orchestrator) recentList(ctx context.Context, userID string) []tools.Summary {
	res := o.tools.Execute(ctx, userID, tools.ListTasks, map[string]any{
		"limit": o.cfg.NameLookupLimit,
	})
	if list, ok := res.(tools.ListResult); ok {
		return list.Tasks
	}
	return nil
}

// lookup finds id among the context's tasks, newest mention first.
func (c ConversationContext) lookup(id string) (reference.Mention, bool) {
	for i := len(c.RecentTasks) - 1; i >= 0; i-- {
		if strings.EqualFold(c.RecentTasks[i].TaskID, id) {
			return c.RecentTasks[i], true
		}
	}
	for _, t := range c.LastListResult {
		if strings.EqualFold(t.ID, id) {
			return reference.Mention{TaskID: t.ID, Title: t.Title}, true
		}
	}
	return reference.Mention{}, false
}

// stripFences removes a surrounding markdown code fence, which some
// models add even in JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
