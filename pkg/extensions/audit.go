// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package extensions

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types emitted by the task service.
const (
	EventTaskDeleted         = "data.delete"
	EventConversationDeleted = "conversation.delete"
	EventAuthFailed          = "auth.failed"
)

// AuditEvent represents a security-relevant event for compliance logging.
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    extensions.EventTaskDeleted,
//	    UserID:       authInfo.UserID,
//	    Action:       "delete",
//	    ResourceType: "task",
//	    ResourceID:   taskID,
//	    Outcome:      "success",
//	    Metadata:     map[string]any{"conversation_id": convID},
//	}
type AuditEvent struct {
	// EventType categorizes the event. Format: "category.action".
	EventType string

	// Timestamp is when the event occurred (UTC). If zero, implementations
	// set it to time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who performed the action.
	UserID string

	// Action describes what operation was attempted.
	Action string

	// ResourceType is the category of resource involved ("task",
	// "conversation").
	ResourceType string

	// ResourceID is the specific resource instance.
	ResourceID string

	// Outcome is "success", "failure" or "blocked".
	Outcome string

	// Metadata holds additional event-specific data.
	Metadata map[string]any
}

// AuditLogger records security-relevant events.
//
// Implementations must be safe for concurrent use by multiple goroutines
// and should return quickly.
type AuditLogger interface {
	// Log records a security-relevant event.
	Log(ctx context.Context, event AuditEvent) error

	// Flush ensures all buffered events are persisted. Call before
	// shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger discards all events.
//
// Thread-safe: This implementation has no mutable state.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error {
	return nil
}

// Flush is a no-op since nothing is buffered.
func (l *NopAuditLogger) Flush(_ context.Context) error {
	return nil
}

// SlogAuditLogger writes each event as one structured log record at Info
// level under the "audit" group.
//
// Thread-safe: slog handlers are safe for concurrent use.
type SlogAuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSlogAuditLogger creates an audit logger. A nil logger uses
// slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Log writes the event.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	attrs := []any{
		slog.String("event_type", event.EventType),
		slog.Time("timestamp", event.Timestamp),
		slog.String("user_id", event.UserID),
		slog.String("action", event.Action),
		slog.String("resource_type", event.ResourceType),
		slog.String("resource_id", event.ResourceID),
		slog.String("outcome", event.Outcome),
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}
	l.logger.InfoContext(ctx, "audit event", slog.Group("audit", attrs...))
	return nil
}

// Flush is a no-op; records are written synchronously.
func (l *SlogAuditLogger) Flush(_ context.Context) error {
	return nil
}

// Compile-time interface compliance checks.
var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
