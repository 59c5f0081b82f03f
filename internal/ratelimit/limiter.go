// Package ratelimit throttles expensive commands per user with token buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Bucket is the token bucket of one key
type Bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key (usually a user id)
type RateLimiter struct {
	buckets map[int64]*Bucket // key -> bucket
	mu      sync.Mutex
	every   time.Duration
	burst   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter allows perMinute events per key, with bursts of up to perMinute
func NewRateLimiter(perMinute int, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}

	return &RateLimiter{
		buckets: make(map[int64]*Bucket),
		every:   time.Minute / time.Duration(perMinute),
		burst:   perMinute,
		logger:  logger,
		now:     time.Now,
	}
}

// getBucket retrieves or creates the bucket of key. Caller holds rl.mu.
func (rl *RateLimiter) getBucket(key int64) *Bucket {
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	bucket := &Bucket{
		limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst),
	}
	rl.buckets[key] = bucket
	return bucket
}

// Allow takes a token for key. When none is left it returns false and the time
// until the next token.
func (rl *RateLimiter) Allow(key int64) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket := rl.getBucket(key)
	bucket.lastSeen = now

	reservation := bucket.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, rl.every
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		rl.logger.Debug("Rate limit exhausted",
			zap.Int64("key", key),
			zap.Duration("retry_after", delay),
		)
		return false, delay
	}

	return true, 0
}

// Prune drops buckets idle for longer than idle and returns how many were removed
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Pruned idle rate limit buckets", zap.Int("removed", removed))
	}
	return removed
}

// StartPruneJob periodically drops buckets idle for longer than idle
func (rl *RateLimiter) StartPruneJob(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Prune(idle)
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	rl.logger.Info("Started rate limit prune job", zap.Duration("interval", interval))
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Reset clears all rate limit buckets (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.buckets = make(map[int64]*Bucket)
	rl.logger.Info("Rate limiter reset")
}
