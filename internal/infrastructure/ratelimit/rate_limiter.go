package ratelimit

import (
	"sync"
	"time"

	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

// TokenBucket implements a per-user token bucket. Tokens refill at a fixed
// rate up to maxTokens; each allowed request consumes one token.
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex
}

func NewTokenBucket(maxTokens, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimiter tracks a bucket per (user, action) pair.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
	}
	rl.startCleanupRoutine()
	return rl
}

// Allow reports whether userID may perform action right now. Unknown
// actions fall back to a conservative default bucket.
func (rl *RateLimiter) Allow(userID, action string) bool {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		bucket, exists = rl.buckets[key]
		if !exists {
			var maxTokens, refillRate float64
			switch action {
			case "send_message":
				maxTokens = 30
				refillRate = 0.5 // 30 burst, one every 2s sustained
			case "create_thread":
				maxTokens = 10
				refillRate = 0.1
			case "apply_transition":
				maxTokens = 20
				refillRate = 0.2
			default:
				maxTokens = 10
				refillRate = 0.2
			}
			bucket = NewTokenBucket(maxTokens, refillRate)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		logger.Warn("Rate limit exceeded: user=%s action=%s", userID, action)
	}
	return allowed
}

// cleanup drops idle buckets so the map does not grow without bound.
func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := time.Since(bucket.lastRefill) > 10*time.Minute
		bucket.mutex.Unlock()
		if idle {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) startCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.cleanup()
		}
	}()
}
