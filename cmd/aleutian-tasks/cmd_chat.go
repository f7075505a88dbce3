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
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AleutianAI/AleutianTasks/pkg/ux"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/datatypes"
	"github.com/spf13/cobra"
)

// chatProcessor is satisfied by *services.ChatService.
type chatProcessor interface {
	Process(ctx context.Context, userID string, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := openComponents(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	if err := comps.EnableAgent(nil); err != nil {
		return err
	}
	return chatLoop(ctx, comps.Chat, chatUser, cmd.InOrStdin(), ux.NewRenderer(cmd.OutOrStdout(), chatPlain))
}

// chatLoop reads one message per line and prints the agent's reply. The
// first turn starts a conversation; later turns continue it.
func chatLoop(ctx context.Context, chat chatProcessor, userID string, in io.Reader, out *ux.Renderer) error {
	out.Banner(userID)

	scanner := bufio.NewScanner(in)
	conversationID := ""
	for {
		out.Prompt()
		if !scanner.Scan() {
			out.Newline()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		req := &datatypes.ChatRequest{ConversationID: conversationID, Message: line}
		if err := req.Validate(); err != nil {
			out.Error(err)
			continue
		}

		resp, err := chat.Process(ctx, userID, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			out.Error(err)
			continue
		}
		conversationID = resp.ConversationID

		out.ToolCalls(resp.ToolCalls)
		out.Reply(resp.Response, resp.RequiresConfirmation)
		out.Suggestion(resp.Suggestion)
	}
}
