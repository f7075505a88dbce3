// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAuthProvider is a configurable mock for testing.
type mockAuthProvider struct {
	authInfo *extensions.AuthInfo
	err      error
}

func (m *mockAuthProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.authInfo, nil
}

// recordingAudit collects audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, e extensions.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) Flush(context.Context) error { return nil }

func serveWithAuth(t *testing.T, provider extensions.AuthProvider, audit extensions.AuditLogger, header string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(AuthMiddleware(provider, audit))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// extractBearerToken Tests
// =============================================================================

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"case insensitive", "bearer ABC123", "ABC123"},
		{"trimmed", "Bearer   tok  ", "tok"},
		{"missing", "", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", ""},
		{"no token", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func TestAuthMiddleware_Success(t *testing.T) {
	provider := &mockAuthProvider{authInfo: &extensions.AuthInfo{UserID: "user-123"}}

	w := serveWithAuth(t, provider, nil, "Bearer valid-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-123"}`, w.Body.String())
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	audit := &recordingAudit{}

	w := serveWithAuth(t, &mockAuthProvider{err: extensions.ErrUnauthorized}, audit, "Bearer bad")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	require.Len(t, audit.events, 1)
	assert.Equal(t, extensions.EventAuthFailed, audit.events[0].EventType)
	assert.Equal(t, true, audit.events[0].Metadata["token_present"])
}

func TestAuthMiddleware_ProviderError(t *testing.T) {
	w := serveWithAuth(t, &mockAuthProvider{err: errors.New("network error")}, nil, "Bearer x")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication failed"}`, w.Body.String())
}

func TestAuthMiddleware_EmptyUserID(t *testing.T) {
	w := serveWithAuth(t, &mockAuthProvider{authInfo: &extensions.AuthInfo{}}, nil, "Bearer x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_NopProvider(t *testing.T) {
	w := serveWithAuth(t, &extensions.NopAuthProvider{}, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"`+extensions.LocalUserID+`"}`, w.Body.String())
}

func TestAuthMiddleware_StaticTokens(t *testing.T) {
	provider := extensions.NewStaticTokenProvider(map[string]string{"alice-token": "alice"})

	assert.Equal(t, http.StatusOK, serveWithAuth(t, provider, nil, "Bearer alice-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithAuth(t, provider, nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithAuth(t, provider, nil, "Bearer other").Code)
}

// =============================================================================
// Context Helper Tests
// =============================================================================

func TestGetAuthInfo(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))
	assert.Equal(t, "", UserID(c))

	c.Set(authInfoKey, "wrong type")
	assert.Nil(t, GetAuthInfo(c))

	info := &extensions.AuthInfo{UserID: "u1"}
	SetAuthInfo(c, info)
	assert.Same(t, info, GetAuthInfo(c))
	assert.Equal(t, "u1", UserID(c))
}
