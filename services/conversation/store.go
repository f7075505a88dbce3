// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package conversation persists chat conversations and their messages,
// including the tool calls recorded on each assistant turn.
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultListLimit bounds List when no limit is given.
	DefaultListLimit = 50

	// MaxTitleRunes bounds titles derived from the first message.
	MaxTitleRunes = 60
)

// ErrNotFound is returned for unknown conversations and for conversations
// owned by another user.
var ErrNotFound = errors.New("conversation not found")

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored turn.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	ToolCalls      []tools.Record `json:"tool_calls,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store is the SQLite conversation history.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps db and creates the schema if it is missing.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("conversation: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_user_updated
			ON conversations (user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			tool_calls      TEXT,
			created_at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Create starts a conversation for userID. The title is trimmed and
// truncated to MaxTitleRunes.
func (s *Store) Create(ctx context.Context, userID, title string) (*Conversation, error) {
	now := s.now()
	c := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     truncateTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.UserID, c.Title, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Get returns the conversation if userID owns it, ErrNotFound otherwise.
func (s *Store) Get(ctx context.Context, userID string, id uuid.UUID) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		id.String(), userID)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// List returns userID's conversations, most recently active first.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Append stores a message and marks the conversation active.
func (s *Store) Append(ctx context.Context, userID string, conversationID uuid.UUID, role, content string, calls []tools.Record) (*Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("append message: invalid role %q", role)
	}
	encoded, err := EncodeToolCalls(calls)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ? AND user_id = ?`,
		now.UnixNano(), conversationID.String(), userID)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	m := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ToolCalls:      calls,
		CreatedAt:      now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, tool_calls, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID.String(), conversationID.String(), role, content, encoded, now.UnixNano()); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// Recent returns the last n messages of the conversation, oldest first.
// A non-positive n returns every message.
func (s *Store) Recent(ctx context.Context, userID string, conversationID uuid.UUID, n int) ([]Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, tool_calls, created_at FROM (
			SELECT rowid AS seq, * FROM messages WHERE conversation_id = ?
			ORDER BY created_at DESC, seq DESC LIMIT ?
		 ) ORDER BY created_at ASC, seq ASC`,
		conversationID.String(), n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Delete removes the conversation and its messages.
func (s *Store) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	var (
		c                Conversation
		id               string
		created, updated int64
	)
	if err := row.Scan(&id, &c.UserID, &c.Title, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt conversation id %q: %w", id, err)
	}
	c.ID = parsed
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}

func scanMessage(row scanner) (*Message, error) {
	var (
		m        Message
		id, conv string
		calls    sql.NullString
		created  int64
	)
	if err := row.Scan(&id, &conv, &m.Role, &m.Content, &calls, &created); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corrupt message id %q: %w", id, err)
	}
	if m.ConversationID, err = uuid.Parse(conv); err != nil {
		return nil, fmt.Errorf("corrupt conversation id %q: %w", conv, err)
	}
	if calls.Valid {
		if m.ToolCalls, err = DecodeToolCalls(calls.String); err != nil {
			return nil, fmt.Errorf("message %s: %w", id, err)
		}
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	return &m, nil
}

func truncateTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) <= MaxTitleRunes {
		return title
	}
	r := []rune(title)
	return strings.TrimSpace(string(r[:MaxTitleRunes-3])) + "..."
}
