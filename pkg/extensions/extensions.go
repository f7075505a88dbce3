// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package extensions defines the pluggable authentication and audit hooks
// used by the task service.
//
// The defaults are no-op implementations so the service runs as a single
// local user with no audit trail. Deployments that need more inject their
// own implementations through ServiceOptions.
//
// # Usage
//
//	opts := extensions.DefaultOptions()
//
//	opts = opts.
//	    WithAuth(extensions.NewStaticTokenProvider(tokens)).
//	    WithAudit(extensions.NewSlogAuditLogger(logger))
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Nil fields are replaced with no-op defaults by Normalize.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens and resolves the user id.
	// Default: NopAuthProvider (every request is "local-user")
	AuthProvider AuthProvider

	// AuditLogger records security-relevant events such as deletions.
	// Default: NopAuditLogger (discards all events)
	AuditLogger AuditLogger
}

// DefaultOptions returns ServiceOptions with no-op defaults.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
	}
}

// Normalize returns a copy of opts with nil fields set to their defaults.
func (opts ServiceOptions) Normalize() ServiceOptions {
	d := DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = d.AuthProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = d.AuditLogger
	}
	return opts
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
