// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/AleutianTasks/services/storage/badger"
)

const badgerKeyPrefix = "confirm/"

// BadgerStore keeps confirmations in BadgerDB so they survive restarts.
// Badger locks its directory, so one process owns the store at a time.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a store over db. The caller owns db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Load implements Store. Expired entries are gone via badger's TTL.
func (b *BadgerStore) Load(ctx context.Context, key string) (*Pending, error) {
	var p Pending
	err := b.db.GetJSON(ctx, badgerKeyPrefix+key, &p)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save implements Store.
func (b *BadgerStore) Save(ctx context.Context, key string, p Pending, ttl time.Duration) error {
	return b.db.PutJSON(ctx, badgerKeyPrefix+key, p, ttl)
}

// Clear implements Store.
func (b *BadgerStore) Clear(ctx context.Context, key string) error {
	return b.db.Delete(ctx, badgerKeyPrefix+key)
}
