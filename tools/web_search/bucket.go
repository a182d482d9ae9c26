package web_search

import (
	"context"
	"sync"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

// refillWindowMS is the budget window: capacity tokens accrue per
// minute, continuously.
const refillWindowMS = 60000.0

// tokenBucket throttles outgoing engine requests. Capacity equals the
// configured requests per minute; tokens are recomputed lazily on each
// access from the elapsed time rather than by a background ticker.
type tokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newTokenBucket(requestsPerMinute int) *tokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	b := &tokenBucket{
		capacity: float64(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		now:      time.Now,
		sleep:    sleepContext,
	}
	b.last = b.now()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refillLocked credits tokens for the time elapsed since the last
// refill, capped at capacity. Callers must hold mu.
func (b *tokenBucket) refillLocked(at time.Time) {
	elapsedMS := float64(at.Sub(b.last)) / float64(time.Millisecond)
	if elapsedMS <= 0 {
		return
	}
	b.tokens += elapsedMS * b.capacity / refillWindowMS
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = at
}

// tryTake consumes one token if available.
func (b *tokenBucket) tryTake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(b.now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// waitToken blocks until a token can be consumed, sleeping exactly the
// time the current deficit needs to refill, then re-checking. Returns
// a rate-limited error when the context expires first.
func (b *tokenBucket) waitToken(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refillLocked(b.now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		wait := time.Duration(deficit * refillWindowMS / b.capacity * float64(time.Millisecond))
		b.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}
		if err := b.sleep(ctx, wait); err != nil {
			return models.NewRateLimitedError(models.PhaseSearch, err)
		}
	}
}
