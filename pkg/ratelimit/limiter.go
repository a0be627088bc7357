package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to a full bucket
	Reset()
}

// TokenBucket is a token bucket limiter shared by every caller of one API token
type TokenBucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	perSec   float64
	capacity int
}

// NewTokenBucket creates a limiter refilling perSecond tokens with the given burst capacity
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		perSec:   perSecond,
		capacity: burst,
	}
}

// Allow checks if a request can proceed right now
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset replaces the underlying bucket with a full one
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(rate.Limit(tb.perSec), tb.capacity)
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Unlimited never blocks. Used in tests and for local API fakes.
type Unlimited struct{}

// Allow always admits the request
func (Unlimited) Allow() bool { return true }

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// Reset is a no-op
func (Unlimited) Reset() {}
