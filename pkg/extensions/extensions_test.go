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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// ============================================================================
// ServiceOptions Tests
// ============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if _, ok := opts.AuthProvider.(*NopAuthProvider); !ok {
		t.Error("DefaultOptions().AuthProvider should be *NopAuthProvider")
	}
	if _, ok := opts.AuditLogger.(*NopAuditLogger); !ok {
		t.Error("DefaultOptions().AuditLogger should be *NopAuditLogger")
	}
}

func TestServiceOptions_WithAuth(t *testing.T) {
	original := DefaultOptions()
	custom := NewStaticTokenProvider(map[string]string{"t": "u"})

	newOpts := original.WithAuth(custom)

	if newOpts.AuthProvider != custom {
		t.Error("WithAuth should set the custom provider")
	}
	if _, ok := original.AuthProvider.(*NopAuthProvider); !ok {
		t.Error("WithAuth should not modify the original options")
	}
}

func TestServiceOptions_WithAudit(t *testing.T) {
	custom := NewSlogAuditLogger(nil)
	opts := DefaultOptions().WithAudit(custom)
	if opts.AuditLogger != custom {
		t.Error("WithAudit should set the custom logger")
	}
}

func TestServiceOptions_Normalize(t *testing.T) {
	opts := ServiceOptions{}.Normalize()
	if opts.AuthProvider == nil || opts.AuditLogger == nil {
		t.Fatal("Normalize should fill nil fields")
	}

	custom := NewSlogAuditLogger(nil)
	opts = ServiceOptions{AuditLogger: custom}.Normalize()
	if opts.AuditLogger != custom {
		t.Error("Normalize should keep configured fields")
	}
}

// ============================================================================
// AuthProvider Tests
// ============================================================================

func TestNopAuthProvider_Validate(t *testing.T) {
	p := &NopAuthProvider{}
	for _, token := range []string{"", "anything"} {
		info, err := p.Validate(context.Background(), token)
		if err != nil {
			t.Fatalf("Validate(%q) error = %v", token, err)
		}
		if info.UserID != LocalUserID {
			t.Errorf("UserID = %q, want %q", info.UserID, LocalUserID)
		}
		if !info.HasRole("admin") {
			t.Error("local user should have the admin role")
		}
	}
}

func TestStaticTokenProvider_Validate(t *testing.T) {
	p := NewStaticTokenProvider(map[string]string{
		"alice-token": "alice",
		"bob-token":   "bob",
		"":            "nobody",
		"orphan":      "",
	})

	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"alice", "alice-token", "alice", false},
		{"bob", "bob-token", "bob", false},
		{"missing", "", "", true},
		{"unknown", "mallory-token", "", true},
		{"skipped empty user", "orphan", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := p.Validate(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Fatalf("error = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.UserID != tt.want {
				t.Errorf("UserID = %q, want %q", info.UserID, tt.want)
			}
		})
	}
}

// ============================================================================
// AuditLogger Tests
// ============================================================================

func TestNopAuditLogger(t *testing.T) {
	l := &NopAuditLogger{}
	if err := l.Log(context.Background(), AuditEvent{EventType: EventTaskDeleted}); err != nil {
		t.Errorf("Log() error = %v", err)
	}
	if err := l.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestSlogAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	err := l.Log(context.Background(), AuditEvent{
		EventType:    EventTaskDeleted,
		UserID:       "alice",
		Action:       "delete",
		ResourceType: "task",
		ResourceID:   "42",
		Outcome:      "success",
		Metadata:     map[string]any{"conversation_id": "c1"},
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	var record struct {
		Msg   string         `json:"msg"`
		Audit map[string]any `json:"audit"`
	}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("record is not JSON: %v (%s)", err, buf.String())
	}
	if record.Msg != "audit event" {
		t.Errorf("msg = %q", record.Msg)
	}
	if record.Audit["event_type"] != EventTaskDeleted {
		t.Errorf("event_type = %v", record.Audit["event_type"])
	}
	if record.Audit["resource_id"] != "42" {
		t.Errorf("resource_id = %v", record.Audit["resource_id"])
	}
	if record.Audit["timestamp"] != fixed.Format(time.RFC3339) {
		t.Errorf("timestamp = %v, want %v", record.Audit["timestamp"], fixed.Format(time.RFC3339))
	}
	meta, ok := record.Audit["metadata"].(map[string]any)
	if !ok || meta["conversation_id"] != "c1" {
		t.Errorf("metadata = %v", record.Audit["metadata"])
	}
}
