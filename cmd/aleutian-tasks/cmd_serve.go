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

	"github.com/AleutianAI/AleutianTasks/services/orchestrator"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Slog().Info("Starting aleutian-tasks",
		"version", Version,
		"port", cfg.Port,
		"llm_backend", cfg.LLM.Backend,
		"persistent_sessions", cfg.BadgerPath != "")

	svc, err := orchestrator.New(ctx, cfg, nil, orchestrator.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}
