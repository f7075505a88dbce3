// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

// Model-produced arguments arrive as decoded JSON, so numbers are float64
// and booleans may be quoted. These helpers accept both.

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return toString(v)
	}
}

func optStringArg(args map[string]any, key string) *string {
	if _, ok := args[key]; !ok || args[key] == nil {
		return nil
	}
	s := stringArg(args, key)
	return &s
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// completionArg reads a completion filter or flag. Besides booleans it
// accepts the status words "pending", "completed" and "all" (nil filter).
func completionArg(args map[string]any, key string) (*bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	yes, no := true, false
	switch v := raw.(type) {
	case bool:
		return &v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "completed", "complete", "done":
			return &yes, nil
		case "false", "pending", "incomplete", "open":
			return &no, nil
		case "", "all":
			return nil, nil
		}
	}
	return nil, &tasks.Error{
		Kind:    tasks.KindValidation,
		Code:    tasks.CodeInvalidStatus,
		Message: "Invalid status " + toString(raw),
	}
}

func toString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}
