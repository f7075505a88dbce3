// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const taskColumns = `id, user_id, title, description, is_complete, created_at, updated_at`

// Store is the SQLite implementation of Backend.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ Backend = (*Store)(nil)

// NewStore wraps db and creates the tasks schema if it is missing.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("tasks: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			is_complete INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_created
			ON tasks (user_id, created_at DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// AddTask implements Backend.
func (s *Store) AddTask(ctx context.Context, userID string, in NewTask) (*Task, error) {
	title := SanitizeTitle(in.Title)
	desc := sanitizeDescription(in.Description)
	if err := validateFields(&title, desc); err != nil {
		return nil, err
	}
	if desc != nil && *desc == "" {
		desc = nil
	}

	now := s.now()
	t := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		t.ID.String(), t.UserID, t.Title, nullString(t.Description),
		now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, databaseError("add task", err)
	}
	return t, nil
}

// ListTasks implements Backend.
func (s *Store) ListTasks(ctx context.Context, userID string, f ListFilter) ([]Task, int, error) {
	f = f.normalize()

	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.IsComplete != nil {
		where = append(where, "is_complete = ?")
		args = append(args, boolInt(*f.IsComplete))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, databaseError("count tasks", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+clause+
			` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, databaseError("list tasks", err)
	}
	defer rows.Close()

	out := make([]Task, 0, f.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, databaseError("scan task", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, databaseError("list tasks", err)
	}
	return out, total, nil
}

// CompleteTask implements Backend.
func (s *Store) CompleteTask(ctx context.Context, userID string, id uuid.UUID) (*Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.IsComplete {
		return nil, ErrAlreadyCompleted
	}
	t.IsComplete = true
	return t, s.save(ctx, t)
}

// UpdateTask implements Backend.
func (s *Store) UpdateTask(ctx context.Context, userID string, id uuid.UUID, u Update) (*Task, error) {
	var title *string
	if u.Title != nil {
		v := SanitizeTitle(*u.Title)
		title = &v
	}
	desc := sanitizeDescription(u.Description)
	if err := validateFields(title, desc); err != nil {
		return nil, err
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		t.Title = *title
	}
	if desc != nil {
		if *desc == "" {
			t.Description = nil
		} else {
			t.Description = desc
		}
	}
	if u.IsComplete != nil {
		t.IsComplete = *u.IsComplete
	}
	return t, s.save(ctx, t)
}

// DeleteTask implements Backend.
func (s *Store) DeleteTask(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String()); err != nil {
		return databaseError("delete task", err)
	}
	return nil
}

// owned loads a task and checks that userID owns it.
func (s *Store) owned(ctx context.Context, userID string, id uuid.UUID) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, databaseError("load task", err)
	}
	if t.UserID != userID {
		return nil, ErrAccessDenied
	}
	return t, nil
}

func (s *Store) save(ctx context.Context, t *Task) error {
	t.UpdatedAt = s.now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, is_complete = ?, updated_at = ? WHERE id = ?`,
		t.Title, nullString(t.Description), boolInt(t.IsComplete), t.UpdatedAt.UnixNano(), t.ID.String())
	if err != nil {
		return databaseError("update task", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                Task
		id               string
		desc             sql.NullString
		complete         int
		created, updated int64
	)
	if err := row.Scan(&id, &t.UserID, &t.Title, &desc, &complete, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	t.ID = parsed
	if desc.Valid {
		t.Description = &desc.String
	}
	t.IsComplete = complete != 0
	t.CreatedAt = time.Unix(0, created).UTC()
	t.UpdatedAt = time.Unix(0, updated).UTC()
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
