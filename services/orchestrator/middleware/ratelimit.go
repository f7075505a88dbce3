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
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianTasks/services/orchestrator/observability"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-user token bucket.
type RateLimitConfig struct {
	// PerMinute is the sustained request rate. Zero or negative disables
	// limiting.
	PerMinute int `yaml:"per_minute"`

	// Burst is the bucket size. Values below 1 are treated as 1.
	Burst int `yaml:"burst"`

	// IdleTTL evicts buckets unused for this long. Default: 10m.
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user.
//
// # Thread Safety
//
// Safe for concurrent use.
type RateLimiter struct {
	cfg     RateLimitConfig
	limit   rate.Limit
	metrics *observability.AgentMetrics
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter creates a limiter. metrics may be nil.
func NewRateLimiter(cfg RateLimitConfig, metrics *observability.AgentMetrics) *RateLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	limit := rate.Inf
	if cfg.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.PerMinute))
	}
	return &RateLimiter{
		cfg:     cfg,
		limit:   limit,
		metrics: metrics,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// returns false and the wait until the next token.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	if r.limit == rate.Inf {
		return true, 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.cfg.IdleTTL {
		r.sweepLocked(now)
	}
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.cfg.Burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked buckets.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) >= r.cfg.IdleTTL {
			delete(r.buckets, key)
		}
	}
	r.lastSweep = now
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. The bucket key is the authenticated user, or the client IP when
// the route is unauthenticated.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := UserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		ok, wait := r.Allow(key)
		if ok {
			c.Next()
			return
		}
		r.metrics.RecordRateLimited()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
		})
	}
}
