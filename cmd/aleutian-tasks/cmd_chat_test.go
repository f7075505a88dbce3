// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianTasks/pkg/ux"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTurn struct {
	userID         string
	conversationID string
	message        string
}

type fakeChat struct {
	turns   []recordedTurn
	replies []*datatypes.ChatResponse
	err     error
}

func (f *fakeChat) Process(_ context.Context, userID string, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	f.turns = append(f.turns, recordedTurn{userID, req.ConversationID, req.Message})
	if f.err != nil {
		return nil, f.err
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r, nil
}

func TestChatLoop_ContinuesConversation(t *testing.T) {
	// Arrange
	chat := &fakeChat{replies: []*datatypes.ChatResponse{
		{ConversationID: "c-1", Response: "I've created a task: 'Buy milk'."},
		{ConversationID: "c-1", Response: "You have 1 task:"},
	}}
	in := strings.NewReader("add buy milk\n\n   \nshow my tasks\nexit\nnever read\n")
	var out bytes.Buffer

	// Act
	err := chatLoop(context.Background(), chat, "alice", in, ux.NewRenderer(&out, true))

	// Assert
	require.NoError(t, err)
	require.Len(t, chat.turns, 2, "blank lines are skipped and exit stops the loop")
	assert.Equal(t, recordedTurn{"alice", "", "add buy milk"}, chat.turns[0])
	assert.Equal(t, recordedTurn{"alice", "c-1", "show my tasks"}, chat.turns[1])
	assert.Contains(t, out.String(), "Chatting as alice")
	assert.Contains(t, out.String(), "I've created a task: 'Buy milk'.")
	assert.Contains(t, out.String(), "You have 1 task:")
}

func TestChatLoop_EndsAtEOF(t *testing.T) {
	chat := &fakeChat{replies: []*datatypes.ChatResponse{{ConversationID: "c-1", Response: "hi"}}}
	var out bytes.Buffer

	err := chatLoop(context.Background(), chat, "alice", strings.NewReader("hello"), ux.NewRenderer(&out, true))

	require.NoError(t, err)
	assert.Len(t, chat.turns, 1)
}

func TestChatLoop_PrintsSuggestion(t *testing.T) {
	chat := &fakeChat{replies: []*datatypes.ChatResponse{{
		ConversationID: "c-1",
		Response:       "I couldn't find that task.",
		Suggestion:     "Try listing your tasks first.",
	}}}
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), chat, "alice", strings.NewReader("done with 9\n"), ux.NewRenderer(&out, true)))
	assert.Contains(t, out.String(), "(Try listing your tasks first.)")
}

func TestChatLoop_ReportsErrorsAndKeepsGoing(t *testing.T) {
	chat := &fakeChat{err: errors.New("conversation not found")}
	var out bytes.Buffer

	err := chatLoop(context.Background(), chat, "alice", strings.NewReader("one\ntwo\nquit\n"), ux.NewRenderer(&out, true))

	require.NoError(t, err)
	assert.Len(t, chat.turns, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "! conversation not found"))
}

func TestChatLoop_RejectsOverlongMessage(t *testing.T) {
	chat := &fakeChat{}
	var out bytes.Buffer
	long := strings.Repeat("a", datatypes.MaxMessageRunes+1)

	require.NoError(t, chatLoop(context.Background(), chat, "alice", strings.NewReader(long+"\n"), ux.NewRenderer(&out, true)))
	assert.Empty(t, chat.turns)
	assert.Contains(t, out.String(), "! ")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "aleutian-tasks dev\n", out.String())
}
