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
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianTasks/services/tasks"
)

var dispatchTracer = otel.Tracer("aleutian.agent.tools")

// Dispatcher routes tool calls to the task backend.
//
// # Description
//
// Execute validates the tool name against the registry, injects the
// caller's user id, converts identifier strings to UUIDs, and calls the
// backend. It never returns an error: every failure is a Failure result
// for the error translator.
//
// # Thread Safety
//
// Dispatcher holds no state and is safe for concurrent use.
type Dispatcher struct {
	backend tasks.Backend
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over backend. A nil logger uses
// slog.Default().
func NewDispatcher(backend tasks.Backend, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{backend: backend, logger: logger}
}

// Execute runs the named tool for userID.
//
// # Inputs
//
//   - ctx: Bounds the backend call.
//   - userID: Authenticated owner. Injected as "user_id" when the
//     arguments lack it; a conflicting value is replaced.
//   - name: One of the registered tool names.
//   - args: Decoded JSON arguments. Not modified.
//
// # Outputs
//
//   - Result: TaskResult, ListResult or DeleteResult on success, Failure
//     otherwise. Unknown names yield Failure "Unknown tool: <name>"
//     without touching the backend.
func (d *Dispatcher) Execute(ctx context.Context, userID, name string, args map[string]any) Result {
	ctx, span := dispatchTracer.Start(ctx, "Dispatcher.Execute",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	if _, ok := Lookup(name); !ok {
		span.SetStatus(codes.Error, "unknown tool")
		return Failure{Message: "Unknown tool: " + name}
	}

	args = d.withUserID(args, userID, name)
	result := d.route(ctx, args["user_id"].(string), name, args)

	if f, ok := result.(Failure); ok {
		span.SetStatus(codes.Error, string(f.Kind))
		d.logger.Warn("tool call failed",
			"tool", name,
			"kind", f.Kind,
			"code", f.Code,
			"error", f.Message)
	}
	return result
}

func (d *Dispatcher) withUserID(args map[string]any, userID, tool string) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	if given, ok := out["user_id"].(string); ok && given != "" && given != userID {
		d.logger.Warn("tool call carried a foreign user_id; replacing it", "tool", tool)
	}
	out["user_id"] = userID
	return out
}

func (d *Dispatcher) route(ctx context.Context, userID, name string, args map[string]any) Result {
	switch name {
	case AddTask:
		task, err := d.backend.AddTask(ctx, userID, tasks.NewTask{
			Title:       stringArg(args, "title"),
			Description: optStringArg(args, "description"),
		})
		if err != nil {
			return failureFrom(err)
		}
		return TaskResult{Task: Summarize(*task)}

	case ListTasks:
		isComplete, err := completionArg(args, "is_complete")
		if err != nil {
			return failureFrom(err)
		}
		list, total, err := d.backend.ListTasks(ctx, userID, tasks.ListFilter{
			IsComplete: isComplete,
			Limit:      intArg(args, "limit", 0),
			Offset:     intArg(args, "offset", 0),
		})
		if err != nil {
			return failureFrom(err)
		}
		out := make([]Summary, 0, len(list))
		for _, t := range list {
			out = append(out, Summarize(t))
		}
		return ListResult{Tasks: out, Total: total}

	case CompleteTask:
		id, err := tasks.ParseID(stringArg(args, "task_id"))
		if err != nil {
			return failureFrom(err)
		}
		task, err := d.backend.CompleteTask(ctx, userID, id)
		if err != nil {
			return failureFrom(err)
		}
		return TaskResult{Task: Summarize(*task)}

	case DeleteTask:
		id, err := tasks.ParseID(stringArg(args, "task_id"))
		if err != nil {
			return failureFrom(err)
		}
		if err := d.backend.DeleteTask(ctx, userID, id); err != nil {
			return failureFrom(err)
		}
		return DeleteResult{TaskID: id.String()}

	case UpdateTask:
		id, err := tasks.ParseID(stringArg(args, "task_id"))
		if err != nil {
			return failureFrom(err)
		}
		isComplete, err := completionArg(args, "is_complete")
		if err != nil {
			return failureFrom(err)
		}
		task, err := d.backend.UpdateTask(ctx, userID, id, tasks.Update{
			Title:       optStringArg(args, "title"),
			Description: optStringArg(args, "description"),
			IsComplete:  isComplete,
		})
		if err != nil {
			return failureFrom(err)
		}
		return TaskResult{Task: Summarize(*task)}
	}
	return Failure{Message: "Unknown tool: " + name}
}
