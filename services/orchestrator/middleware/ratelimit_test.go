// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianTasks/pkg/extensions"
	"github.com/AleutianAI/AleutianTasks/services/orchestrator/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(cfg RateLimitConfig, m *observability.AgentMetrics) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(cfg, m)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl, clock := newTestLimiter(RateLimitConfig{PerMinute: 60, Burst: 2}, nil)

	ok, _ := rl.Allow("alice")
	assert.True(t, ok)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok)

	ok, wait := rl.Allow("alice")
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	clock.advance(time.Second)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok, "one token refills per second at 60/min")
}

func TestRateLimiter_RejectedRequestsDoNotConsume(t *testing.T) {
	rl, clock := newTestLimiter(RateLimitConfig{PerMinute: 60, Burst: 1}, nil)

	ok, _ := rl.Allow("alice")
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = rl.Allow("alice")
		assert.False(t, ok)
	}

	clock.advance(time.Second)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok)
}

func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl, _ := newTestLimiter(RateLimitConfig{PerMinute: 1, Burst: 1}, nil)

	ok, _ := rl.Allow("alice")
	assert.True(t, ok)
	ok, _ = rl.Allow("alice")
	assert.False(t, ok)

	ok, _ = rl.Allow("bob")
	assert.True(t, ok, "bob has his own bucket")
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl, _ := newTestLimiter(RateLimitConfig{}, nil)
	for i := 0; i < 100; i++ {
		ok, _ := rl.Allow("alice")
		assert.True(t, ok)
	}
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl, clock := newTestLimiter(RateLimitConfig{PerMinute: 30, Burst: 1, IdleTTL: time.Minute}, nil)

	rl.Allow("alice")
	rl.Allow("bob")
	assert.Equal(t, 2, rl.Len())

	clock.advance(2 * time.Minute)
	rl.Allow("carol")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_Middleware(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	rl, _ := newTestLimiter(RateLimitConfig{PerMinute: 30, Burst: 1}, m)

	router := gin.New()
	router.Use(AuthMiddleware(&extensions.NopAuthProvider{}, nil), rl.Middleware())
	router.POST("/chat", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))
		return w
	}

	assert.Equal(t, http.StatusNoContent, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))
}
