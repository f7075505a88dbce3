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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/pkg/logging"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath string
	portFlag   int
	chatUser   string
	chatPlain  bool

	// Filled by PersistentPreRunE.
	cfg    orchestrator.Config
	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "aleutian-tasks",
		Short: "Conversational task agent for the Aleutian todo service",
		Long: `aleutian-tasks runs an AI agent that manages a user's todo list
through natural conversation, backed by SQLite and an LLM with tool calling.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadRuntime,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (chat, conversations, tasks, health, metrics)",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task tools to MCP clients over stdio",
		RunE:  runMCP, // Defined in cmd_mcp.go
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Talk to the task agent in the terminal",
		Long: `chat opens the local stores and runs an interactive conversation.
Type "exit" or press Ctrl-D to leave.`,
		RunE: runChat, // Defined in cmd_chat.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "aleutian-tasks", Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file (default: $"+orchestrator.ConfigEnvVar+")")
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "HTTP port (overrides config)")
	chatCmd.Flags().StringVar(&chatUser, "user", extensions.LocalUserID, "user id to chat as")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "disable colors")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime loads configuration and installs the process logger. The
// version command needs neither.
func loadRuntime(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	var err error
	cfg, err = orchestrator.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = portFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol and the chat transcript.
	lc.Quiet = cmd == mcpCmd || cmd == chatCmd
	logger, err = logging.New(lc)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger.Slog())
	return nil
}

func openComponents(ctx context.Context) (*orchestrator.Components, error) {
	return orchestrator.OpenComponents(ctx, cfg, orchestratorOptions(), logger.Slog())
}

// orchestratorOptions audits to the process log.
func orchestratorOptions() extensions.ServiceOptions {
	return extensions.DefaultOptions().WithAudit(extensions.NewSlogAuditLogger(logger.Slog()))
}
