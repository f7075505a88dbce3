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
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianTasks/services/mcpserver"
	"github.com/spf13/cobra"
)

// runMCP needs no LLM: external agents drive the tools directly.
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := openComponents(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	s := mcpserver.New(comps.Dispatcher, Version, logger.Slog())
	return mcpserver.Serve(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), logger.Slog())
}
