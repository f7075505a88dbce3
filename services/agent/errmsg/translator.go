// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package errmsg turns failed tool results into canned, user-safe chat
// replies.
//
// This is the only place a failure becomes user-facing text. Backend
// error strings are never echoed; they select a message from a fixed table.
package errmsg

import (
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

// Message keys beyond the backend's error codes.
const (
	KeyGeneric              = "generic"
	KeyTimeout              = "timeout"
	KeyConversationNotFound = "conversation_not_found"
)

// messages holds every reply the translator can produce, by kind and key.
var messages = map[tasks.Kind]map[string]string{
	tasks.KindValidation: {
		tasks.CodeEmptyTitle:         "I couldn't create that task because the title is empty. Please tell me what the task is.",
		tasks.CodeTitleTooLong:       "The task title is too long (max 200 characters). Could you make it shorter?",
		tasks.CodeDescriptionTooLong: "The description is too long (max 2000 characters). Could you shorten it?",
		tasks.CodeInvalidStatus:      "I didn't understand that status. Did you mean 'pending', 'completed', or 'all'?",
		tasks.CodeInvalidTaskID:      "I couldn't tell which task that is. Would you like to see all your tasks?",
	},
	tasks.KindNotFound: {
		tasks.CodeTaskNotFound:  "I couldn't find that task. Would you like to see all your tasks?",
		KeyConversationNotFound: "I couldn't find that conversation. Starting a new one.",
	},
	tasks.KindAuthorization: {
		tasks.CodeAccessDenied: "I'm unable to access that task. Please make sure it's one of your tasks.",
	},
	tasks.KindInvalidState: {
		tasks.CodeAlreadyCompleted: "That task is already marked complete.",
	},
	tasks.KindServer: {
		KeyGeneric:              "Sorry, I had trouble with that operation. Please try again.",
		tasks.CodeDatabaseError: "I'm experiencing technical difficulties. Please try again in a moment.",
		KeyTimeout:              "That took too long. Please try again with a simpler request.",
	},
}

var suggestions = map[tasks.Kind]string{
	tasks.KindNotFound:   "Would you like to see all your pending tasks so you can choose one?",
	tasks.KindValidation: "Try again with a shorter title (under 200 characters).",
	tasks.KindServer:     "Please try again in a moment, or let me know how else I can help.",
}

const defaultSuggestion = "Is there anything else I can help you with?"

// kindRules map text containing any of the keywords to a kind.
// Order matters - first match wins.
var kindRules = []struct {
	keywords []string
	kind     tasks.Kind
}{
	{[]string{"empty", "title"}, tasks.KindValidation},
	{[]string{"not found"}, tasks.KindNotFound},
	{[]string{"authorized", "access"}, tasks.KindAuthorization},
	{[]string{"already"}, tasks.KindInvalidState},
	{[]string{"database"}, tasks.KindServer},
}

// keyRules map text containing all of the keywords to a message key.
// Order matters - first match wins.
var keyRules = []struct {
	keywords []string
	key      string
}{
	{[]string{"empty"}, tasks.CodeEmptyTitle},
	{[]string{"too long", "title"}, tasks.CodeTitleTooLong},
	{[]string{"too long", "description"}, tasks.CodeDescriptionTooLong},
	{[]string{"not found"}, tasks.CodeTaskNotFound},
	{[]string{"authorized"}, tasks.CodeAccessDenied},
	{[]string{"already complete"}, tasks.CodeAlreadyCompleted},
}

// Translation is a user-safe rendering of a failure.
type Translation struct {
	Tool       string
	Kind       tasks.Kind
	Key        string
	Message    string
	Suggestion string
}

// Translate renders a failed tool result.
//
// # Description
//
// When the failure carries an explicit Kind (set by the task backend) that
// kind is used, and its Code selects the message. Otherwise both are
// derived from the error text by case-insensitive substring rules. A key
// that has no message under the chosen kind falls back to the generic
// server message.
//
// # Examples
//
//	t := Translate("add_task", tools.Failure{Message: "Title cannot be empty"})
//	// t.Kind == tasks.KindValidation
//	// t.Message == "I couldn't create that task because the title is empty. ..."
func Translate(tool string, f tools.Failure) Translation {
	kind := f.Kind
	if kind == "" {
		kind = Classify(f.Message)
	}
	key := f.Code
	if _, ok := messages[kind][key]; !ok {
		key = MessageKey(f.Message)
	}
	t := Canned(kind, key)
	t.Tool = tool
	return t
}

// Canned returns the fixed message for kind and key, or the generic
// server message when there is none.
func Canned(kind tasks.Kind, key string) Translation {
	msg, ok := messages[kind][key]
	if !ok {
		key = KeyGeneric
		msg = messages[tasks.KindServer][KeyGeneric]
	}
	return Translation{
		Kind:       kind,
		Key:        key,
		Message:    msg,
		Suggestion: SuggestRecovery(kind),
	}
}

// Classify maps raw error text to a kind. Unmatched text is SERVER_ERROR.
func Classify(errText string) tasks.Kind {
	lower := strings.ToLower(errText)
	for _, r := range kindRules {
		if containsAny(lower, r.keywords) {
			return r.kind
		}
	}
	return tasks.KindServer
}

// MessageKey maps raw error text to a message key, or KeyGeneric.
func MessageKey(errText string) string {
	lower := strings.ToLower(errText)
	for _, r := range keyRules {
		if containsAll(lower, r.keywords) {
			return r.key
		}
	}
	return KeyGeneric
}

// SuggestRecovery offers a next step for a failure kind.
func SuggestRecovery(kind tasks.Kind) string {
	if s, ok := suggestions[kind]; ok {
		return s
	}
	return defaultSuggestion
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
