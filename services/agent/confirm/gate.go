// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package confirm gates destructive task operations behind an explicit
// yes/no turn.
//
// The gate has two states per conversation, IDLE and
// AWAITING_CONFIRMATION. The pending operation lives in a Store keyed by
// conversation, never on the orchestrator, so any process holding the
// same store can finish a confirmation another one started.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianTasks/services/agent/classifier"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

// DefaultTTL is how long a pending confirmation waits for an answer.
const DefaultTTL = 10 * time.Minute

// ErrNoPending is returned by Store.Load when nothing is pending.
var ErrNoPending = errors.New("no pending confirmation")

// State is the gate state of one conversation.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
)

func (s State) String() string {
	if s == AwaitingConfirmation {
		return "AWAITING_CONFIRMATION"
	}
	return "IDLE"
}

// Decision is the parsed answer to a confirmation prompt.
type Decision int

const (
	Ambiguous Decision = iota
	Confirmed
	Declined
)

func (d Decision) String() string {
	switch d {
	case Confirmed:
		return "confirmed"
	case Declined:
		return "declined"
	default:
		return "ambiguous"
	}
}

// Pending is the operation waiting for confirmation.
type Pending struct {
	Tool      string    `json:"tool"`
	TaskID    string    `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	affirmative = map[string]bool{
		"yes": true, "y": true, "confirm": true, "confirmed": true,
		"go ahead": true, "delete": true, "proceed": true,
	}
	negative = map[string]bool{
		"no": true, "n": true, "cancel": true, "nevermind": true,
		"don't": true, "skip": true,
	}
)

// ParseConfirmation matches the whole trimmed, lower-cased answer against
// the affirmative and negative sets. Trailing "." and "!" are ignored.
func ParseConfirmation(text string) Decision {
	answer := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!")
	answer = strings.TrimSpace(answer)
	switch {
	case affirmative[answer]:
		return Confirmed
	case negative[answer]:
		return Declined
	default:
		return Ambiguous
	}
}

// RequiresConfirmation reports whether intent is gated. Only deletion is:
// it is the one irreversible operation.
func RequiresConfirmation(intent classifier.Intent) bool {
	return intent == classifier.DeleteTask
}

// RequiresConfirmationTool is RequiresConfirmation for a tool name.
func RequiresConfirmationTool(tool string) bool {
	return tool == tools.DeleteTask
}

// SessionKey is the store key for one user's conversation.
func SessionKey(userID, conversationID string) string {
	return userID + "/" + conversationID
}

// Store persists pending confirmations by session key.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the pending confirmation or ErrNoPending.
	Load(ctx context.Context, key string) (*Pending, error)

	// Save stores p, replacing any previous entry. It expires after ttl.
	Save(ctx context.Context, key string, p Pending, ttl time.Duration) error

	// Clear removes the entry. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// Gate is the confirmation state machine over a Store.
type Gate struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewGate creates a gate. A non-positive ttl uses DefaultTTL.
func NewGate(store Store, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{store: store, ttl: ttl, now: time.Now}
}

// State returns the gate state for key and the pending operation, if any.
func (g *Gate) State(ctx context.Context, key string) (State, *Pending, error) {
	p, err := g.store.Load(ctx, key)
	if errors.Is(err, ErrNoPending) {
		return Idle, nil, nil
	}
	if err != nil {
		return Idle, nil, fmt.Errorf("load confirmation: %w", err)
	}
	return AwaitingConfirmation, p, nil
}

// Begin moves key to AWAITING_CONFIRMATION for p.
func (g *Gate) Begin(ctx context.Context, key string, p Pending) error {
	if p.TaskID == "" {
		return errors.New("confirmation requires a target task")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = g.now().UTC()
	}
	if err := g.store.Save(ctx, key, p, g.ttl); err != nil {
		return fmt.Errorf("save confirmation: %w", err)
	}
	return nil
}

// Respond interprets text as the answer to key's pending confirmation.
//
// # Description
//
// Ambiguous answers leave the gate AWAITING_CONFIRMATION. Confirmed and
// Declined answers return it to IDLE. The caller executes the returned
// Pending only on Confirmed.
//
// # Outputs
//
//   - Decision: The parsed answer.
//   - *Pending: The operation the answer applies to.
//   - error: ErrNoPending if the gate is IDLE, or a store failure.
func (g *Gate) Respond(ctx context.Context, key, text string) (Decision, *Pending, error) {
	p, err := g.store.Load(ctx, key)
	if err != nil {
		return Ambiguous, nil, err
	}

	d := ParseConfirmation(text)
	if d == Ambiguous {
		return d, p, nil
	}
	if err := g.store.Clear(ctx, key); err != nil {
		return d, p, fmt.Errorf("clear confirmation: %w", err)
	}
	return d, p, nil
}

// Cancel drops any pending confirmation for key.
func (g *Gate) Cancel(ctx context.Context, key string) error {
	return g.store.Clear(ctx, key)
}
