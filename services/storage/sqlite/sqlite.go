// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sqlite opens the embedded SQLite database shared by the task
// backend and the conversation history store.
//
// The driver is modernc.org/sqlite (pure Go, no cgo), registered under the
// name "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// pragmas are applied to every new database handle.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// Open opens (creating if needed) the database at path and applies the
// standard pragmas.
//
// # Description
//
// The parent directory is created with 0700. The pool is pinned to a
// single connection: pragmas such as foreign_keys are per connection, and
// every connection to ":memory:" is a separate database.
//
// # Inputs
//
//   - ctx: Bounds the pragma statements.
//   - path: File path or MemoryPath.
//
// # Outputs
//
//   - *sql.DB: Open handle. Caller must Close it.
//   - error: Non-nil if the directory, the open, or a pragma fails.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}
	return db, nil
}
