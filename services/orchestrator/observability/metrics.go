// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package observability provides Prometheus metrics for the task service.
//
// # Description
//
// Metrics cover the conversational path end to end:
//   - Chat requests by outcome and their latency
//   - Classified intents
//   - Executed tool calls by tool and outcome
//   - Confirmation-gate activity
//   - Rate-limited requests
//   - LLM completion latency by backend
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every Record method is a no-op on a nil *AgentMetrics, so components can
// run with metrics disabled.
package observability

import (
	"time"

	"github.com/AleutianAI/AleutianTasks/services/agent"
	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "aleutian"

const agentSubsystem = "tasks_agent"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Confirmation event label values.
const (
	ConfirmationRequested = "requested"
	ConfirmationExecuted  = "executed"
)

// AgentMetrics holds the Prometheus metrics of the task service.
//
// # Fields
//
//   - ChatRequestsTotal: Chat turns by outcome (success, failure)
//   - ChatDurationSeconds: End-to-end chat turn latency
//   - IntentsTotal: Classified intents
//   - ToolCallsTotal: Executed tool calls by tool and outcome
//   - ConfirmationsTotal: Gate events (requested, executed)
//   - RateLimitedTotal: Requests rejected by the rate limiter
//   - LLMDurationSeconds: Model completion latency by backend and outcome
type AgentMetrics struct {
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds prometheus.Histogram
	IntentsTotal        *prometheus.CounterVec

	// ToolCallsTotal labels: tool, outcome. The outcome of a failed call
	// is its error kind (VALIDATION_ERROR, NOT_FOUND, ...).
	ToolCallsTotal *prometheus.CounterVec

	ConfirmationsTotal *prometheus.CounterVec
	RateLimitedTotal   prometheus.Counter
	LLMDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. The service
// passes its own registry; tests pass a fresh prometheus.NewRegistry().
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate
//     registration).
func NewMetrics(reg prometheus.Registerer) *AgentMetrics {
	factory := promauto.With(reg)
	return &AgentMetrics{
		ChatRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "chat_requests_total",
				Help:      "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
		ChatDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "chat_duration_seconds",
				Help:      "End-to-end chat turn duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		IntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "intents_total",
				Help:      "Total number of classified intents",
			},
			[]string{"intent"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "tool_calls_total",
				Help:      "Total number of executed tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		ConfirmationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "confirmations_total",
				Help:      "Total number of destructive-action confirmation events",
			},
			[]string{"event"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "llm_duration_seconds",
				Help:      "LLM completion duration in seconds by backend and outcome",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend", "outcome"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordChat records one completed chat turn: its outcome, latency,
// intent, tool calls and confirmation activity.
func (m *AgentMetrics) RecordChat(resp *agent.Response, elapsed time.Duration) {
	if m == nil || resp == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(outcome(resp.Success)).Inc()
	m.ChatDurationSeconds.Observe(elapsed.Seconds())
	if resp.Intent != "" {
		m.IntentsTotal.WithLabelValues(string(resp.Intent)).Inc()
	}
	if resp.RequiresConfirmation {
		m.ConfirmationsTotal.WithLabelValues(ConfirmationRequested).Inc()
	}
	for _, rec := range resp.ToolCalls {
		m.RecordToolCall(rec.Name, rec.Result)
		if rec.Name == tools.DeleteTask && rec.Result.Success {
			m.ConfirmationsTotal.WithLabelValues(ConfirmationExecuted).Inc()
		}
	}
}

// RecordToolCall records one executed tool call.
func (m *AgentMetrics) RecordToolCall(tool string, env tools.Envelope) {
	if m == nil {
		return
	}
	label := OutcomeSuccess
	if !env.Success {
		label = string(env.ErrorKind)
		if label == "" {
			label = OutcomeFailure
		}
	}
	m.ToolCallsTotal.WithLabelValues(tool, label).Inc()
}

// RecordRateLimited records one rejected request.
func (m *AgentMetrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// ObserveLLM records one model completion.
func (m *AgentMetrics) ObserveLLM(backend string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.LLMDurationSeconds.WithLabelValues(backend, outcome(err == nil)).Observe(elapsed.Seconds())
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
