// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package middleware provides HTTP middleware for the task service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// validates it using the configured AuthProvider, and stores the resulting
// AuthInfo in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► provider.Validate(ctx, token)
//	   │
//	   └─► Store AuthInfo in context
//	           │
//	           ▼
//	       RateLimiter (keys on UserID) ─► Handler (reads UserID)
//
// With NopAuthProvider every request is "local-user". With a
// StaticTokenProvider each token maps to its own user, and tasks and
// conversations are isolated per user.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/gin-gonic/gin"
)

// authInfoKey is the context key for storing AuthInfo.
const authInfoKey = "aleutian_auth_info"

// SetAuthInfo stores the authenticated user info in the Gin context.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated user info from the Gin context.
// Returns nil if the request was not authenticated.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// UserID returns the authenticated user's id, or "" if the request was
// not authenticated.
func UserID(c *gin.Context) string {
	if info := GetAuthInfo(c); info != nil {
		return info.UserID
	}
	return ""
}

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// # Description
//
// Extracts the bearer token, validates it with provider and stores the
// AuthInfo for downstream handlers. A missing or malformed header passes
// "" to the provider; NopAuthProvider accepts it.
//
// Rejections respond 401 and, when audit is non-nil, emit an
// "auth.failed" event. The token itself is never logged.
//
// # Inputs
//
//   - provider: AuthProvider to validate tokens. Must not be nil.
//   - audit: AuditLogger for rejected requests. May be nil.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func AuthMiddleware(provider extensions.AuthProvider, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err == nil && (authInfo == nil || authInfo.UserID == "") {
			err = errors.New("provider returned no user id")
		}
		if err != nil {
			if audit != nil {
				_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
					EventType: extensions.EventAuthFailed,
					Action:    c.Request.Method + " " + c.FullPath(),
					Outcome:   "blocked",
					Metadata: map[string]any{
						"client_ip":     c.ClientIP(),
						"token_present": token != "",
					},
				})
			}
			if errors.Is(err, extensions.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "unauthorized",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// extractBearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" if the header is missing or uses another scheme. The scheme
// is matched case-insensitively (RFC 7235).
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
