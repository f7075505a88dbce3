// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package conversation

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

// storedCalls is the persisted shape of a message's tool calls:
//
//	{"tool_calls":[{"id":"...","type":"function",
//	  "function":{"name":"...","arguments":"<json>","result":"<json>"}}]}
//
// arguments and result are JSON documents carried as strings.
type storedCalls struct {
	ToolCalls []storedCall `json:"tool_calls"`
}

type storedCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function storedFunction `json:"function"`
}

type storedFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result"`
}

// EncodeToolCalls renders records in the storage shape. No records
// encode as NULL.
func EncodeToolCalls(records []tools.Record) (sql.NullString, error) {
	if len(records) == 0 {
		return sql.NullString{}, nil
	}
	doc := storedCalls{ToolCalls: make([]storedCall, 0, len(records))}
	for _, r := range records {
		result, err := json.Marshal(r.Result)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("encode result of %s: %w", r.ID, err)
		}
		var args []byte
		if len(r.Arguments) > 0 {
			if args, err = json.Marshal(r.Arguments); err != nil {
				return sql.NullString{}, fmt.Errorf("encode arguments of %s: %w", r.ID, err)
			}
		}
		doc.ToolCalls = append(doc.ToolCalls, storedCall{
			ID:   r.ID,
			Type: "function",
			Function: storedFunction{
				Name:      r.Name,
				Arguments: string(args),
				Result:    string(result),
			},
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// DecodeToolCalls parses the storage shape back into records.
func DecodeToolCalls(raw string) ([]tools.Record, error) {
	var doc storedCalls
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	out := make([]tools.Record, 0, len(doc.ToolCalls))
	for _, c := range doc.ToolCalls {
		rec := tools.Record{ID: c.ID, Name: c.Function.Name}
		if c.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(c.Function.Arguments), &rec.Arguments); err != nil {
				return nil, fmt.Errorf("decode arguments of %s: %w", c.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(c.Function.Result), &rec.Result); err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", c.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
