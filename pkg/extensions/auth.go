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
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// LocalUserID is the identity NopAuthProvider assigns to every request.
const LocalUserID = "local-user"

// ErrUnauthorized is returned when authentication fails. Implementations
// should wrap it with additional context.
//
// Example:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the user. Tasks and conversations are
//     owned by this id.
//
// Optional fields (may be empty):
//   - Roles: Role memberships
type AuthInfo struct {
	UserID string
	Roles  []string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - token: The bearer token, or "" if the request carried none
	//
	// Returns:
	//   - *AuthInfo: User identity information if valid
	//   - error: ErrUnauthorized (or wrapped) if invalid
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default authentication provider.
//
// It always returns LocalUserID with admin privileges, so a local single
// user deployment needs no token configuration.
//
// Thread-safe: This implementation has no mutable state.
type NopAuthProvider struct{}

// Validate always returns the local user. The token is ignored.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: LocalUserID,
		Roles:  []string{"admin"},
	}, nil
}

// StaticTokenProvider authenticates against a fixed token to user id map,
// typically loaded from configuration.
//
// Tokens are stored as SHA-256 digests and compared in constant time.
//
// Thread-safe: The map is read-only after construction.
type StaticTokenProvider struct {
	users map[[sha256.Size]byte]string
}

// NewStaticTokenProvider builds a provider from token -> user id pairs.
// Pairs with an empty token or user id are skipped.
func NewStaticTokenProvider(tokens map[string]string) *StaticTokenProvider {
	p := &StaticTokenProvider{users: make(map[[sha256.Size]byte]string, len(tokens))}
	for token, user := range tokens {
		if token == "" || user == "" {
			continue
		}
		p.users[sha256.Sum256([]byte(token))] = user
	}
	return p
}

// Validate resolves token to its user id.
func (p *StaticTokenProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("missing bearer token: %w", ErrUnauthorized)
	}
	want := sha256.Sum256([]byte(token))
	for digest, user := range p.users {
		if subtle.ConstantTimeCompare(digest[:], want[:]) == 1 {
			return &AuthInfo{UserID: user, Roles: []string{"user"}}, nil
		}
	}
	return nil, fmt.Errorf("unknown bearer token: %w", ErrUnauthorized)
}

// Len returns the number of configured tokens.
func (p *StaticTokenProvider) Len() int {
	return len(p.users)
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticTokenProvider)(nil)
)
