// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every completion of next by d. A completion that
// runs past d fails with an error wrapping ErrTimeout. Cancellation of
// the caller's own context is passed through unchanged.
func WithTimeout(next Client, d time.Duration) Client {
	return &timeoutClient{next: next, timeout: d}
}

func (t *timeoutClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Complete(cctx, req)
	if err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, t.timeout, err)
	}
	return out, err
}
