// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/agent"
	"github.com/AleutianAI/AleutianTasks/services/agent/confirm"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/AleutianAI/AleutianTasks/services/conversation"
	"github.com/AleutianAI/AleutianTasks/services/llm"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/services"
	"github.com/AleutianAI/AleutianTasks/services/storage/badger"
	"github.com/AleutianAI/AleutianTasks/services/storage/sqlite"
	"github.com/AleutianAI/AleutianTasks/services/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Components is the wired object graph shared by the HTTP service, the MCP
// server and the terminal chat.
//
// # Description
//
// OpenComponents opens storage and the tool dispatcher, which need no
// model. EnableAgent adds the LLM client, the orchestrator and the chat
// service on top.
//
// # Thread Safety
//
// Fields are set during construction and read-only afterwards.
type Components struct {
	Config  Config
	Options extensions.ServiceOptions
	Logger  *slog.Logger

	DB            *sql.DB
	Tasks         *tasks.Store
	Conversations *conversation.Store
	Dispatcher    *tools.Dispatcher

	// Sessions is nil when pending confirmations are kept in memory.
	Sessions *badger.DB
	Gate     *confirm.Gate

	Registry *prometheus.Registry
	Metrics  *observability.AgentMetrics

	// Set by EnableAgent.
	Model llm.Client
	Agent *agent.Orchestrator
	Chat  *services.ChatService
}

// OpenComponents opens the stores described by cfg.
//
// # Inputs
//
//   - ctx: Bounds schema migration.
//   - cfg: Should have defaults applied (LoadConfig does this).
//   - opts: Extension points. Nil fields take no-op defaults.
//   - logger: Nil uses slog.Default().
//
// # Outputs
//
//   - *Components: Caller must Close it.
//   - error: Non-nil if any store fails to open. Anything already opened
//     is closed.
func OpenComponents(ctx context.Context, cfg Config, opts extensions.ServiceOptions, logger *slog.Logger) (*Components, error) {
	cfg = applyConfigDefaults(cfg)
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{
		Config:  cfg,
		Options: opts.Normalize(),
		Logger:  logger,
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	c.DB = db

	if c.Tasks, err = tasks.NewStore(ctx, db); err != nil {
		c.Close()
		return nil, err
	}
	if c.Conversations, err = conversation.NewStore(ctx, db); err != nil {
		c.Close()
		return nil, err
	}

	var sessions confirm.Store = confirm.NewMemoryStore()
	if cfg.BadgerPath != "" {
		bcfg := badger.DefaultConfig(cfg.BadgerPath)
		bcfg.Logger = logger.With("component", "badger")
		if c.Sessions, err = badger.Open(bcfg); err != nil {
			c.Close()
			return nil, fmt.Errorf("open session store: %w", err)
		}
		sessions = confirm.NewBadgerStore(c.Sessions)
	}
	c.Gate = confirm.NewGate(sessions, cfg.ConfirmationTTL)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = observability.NewMetrics(c.Registry)

	c.Dispatcher = tools.NewDispatcher(c.Tasks, logger.With("component", "dispatcher"))

	logger.Info("Opened task stores",
		"sqlite_path", cfg.SQLitePath,
		"persistent_sessions", c.Sessions != nil)
	return c, nil
}

// EnableAgent builds the conversational layer. A nil model is built from
// Config.LLM. Calling it twice is an error.
func (c *Components) EnableAgent(model llm.Client) error {
	if c.Agent != nil {
		return errors.New("agent already enabled")
	}
	if model == nil {
		var err error
		model, err = llm.NewClient(c.Config.LLM.Config)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
	}
	c.Model = observability.InstrumentLLM(model, c.Config.LLM.Backend, c.Metrics)

	acfg := agent.DefaultConfig()
	acfg.Temperature = c.Config.LLM.Temperature
	acfg.MaxTokens = c.Config.LLM.MaxTokens
	c.Agent = agent.New(c.Dispatcher, c.Model, c.Gate, acfg, c.Logger.With("component", "agent"))

	c.Chat = services.NewChatService(c.Conversations, c.Agent, services.ChatServiceOptions{
		AuditLogger: c.Options.AuditLogger,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
	})
	return nil
}

// Close releases the stores. Safe to call on a partially built value.
func (c *Components) Close() error {
	var errs []error
	if c.Sessions != nil {
		if err := c.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
		c.Sessions = nil
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
		c.DB = nil
	}
	return errors.Join(errs...)
}
