// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package observability

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianTasks/services/llm"
)

// instrumentedClient times every completion of the wrapped client.
type instrumentedClient struct {
	next    llm.Client
	backend string
	metrics *AgentMetrics
	now     func() time.Time
}

// InstrumentLLM wraps next so each Complete call is observed in
// m.LLMDurationSeconds. A nil m returns next unchanged.
func InstrumentLLM(next llm.Client, backend string, m *AgentMetrics) llm.Client {
	if m == nil {
		return next
	}
	return &instrumentedClient{next: next, backend: backend, metrics: m, now: time.Now}
}

func (c *instrumentedClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	start := c.now()
	out, err := c.next.Complete(ctx, req)
	c.metrics.ObserveLLM(c.backend, c.now().Sub(start), err)
	return out, err
}
