// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestDB_JSONRoundTrip(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.PutJSON(ctx, "k", record{Name: "a", Count: 2}, 0))

	var got record
	require.NoError(t, db.GetJSON(ctx, "k", &got))
	assert.Equal(t, record{Name: "a", Count: 2}, got)

	require.NoError(t, db.Delete(ctx, "k"))
	assert.ErrorIs(t, db.GetJSON(ctx, "k", &got), ErrKeyNotFound)
}

func TestDB_DeleteMissingKey(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Delete(context.Background(), "absent"))
}

func TestDB_TTLExpiry(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	// Badger TTLs have one-second resolution.
	require.NoError(t, db.PutJSON(ctx, "short", record{Name: "x"}, time.Second))
	var got record
	require.NoError(t, db.GetJSON(ctx, "short", &got))

	time.Sleep(2100 * time.Millisecond)
	assert.ErrorIs(t, db.GetJSON(ctx, "short", &got), ErrKeyNotFound)
}

func TestDB_CancelledContext(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, db.PutJSON(ctx, "k", record{}, 0))
}

func TestDB_Persistent(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.SyncWrites = false

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.PutJSON(context.Background(), "k", record{Name: "kept"}, 0))
	require.NoError(t, db.Close())

	reopened, err := Open(Config{Path: cfg.Path})
	require.NoError(t, err)
	defer reopened.Close()

	var got record
	require.NoError(t, reopened.GetJSON(context.Background(), "k", &got))
	assert.Equal(t, "kept", got.Name)
}

func TestGCRunner_StopIsIdempotent(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := newGCRunner(db.db, 5*time.Millisecond, 0, nil)
	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()
	r.Stop()
}
