package search

import (
	"context"
	"log"
	"time"

	"github.com/OpenChatGit/autosearch/models"
)

// DefaultRetries is the number of retries after the first attempt.
const DefaultRetries = 3

// DefaultAttemptTimeout bounds a single attempt inside ExecuteWithRetry.
const DefaultAttemptTimeout = 10 * time.Second

// RetryOptions controls ExecuteWithRetry.
type RetryOptions struct {
	MaxRetries int           // retries after the first attempt
	Timeout    time.Duration // per-attempt deadline
	Phase      string        // phase tagged onto timeout errors

	sleep func(context.Context, time.Duration) error
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultRetries
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultAttemptTimeout
	}
	if o.Phase == "" {
		o.Phase = models.PhaseSearch
	}
	if o.sleep == nil {
		o.sleep = sleepFor
	}
	return o
}

// ExecuteWithRetry runs op until it succeeds, fails with a non-retryable
// error, or the retry budget is exhausted. Each attempt races against its
// own deadline of opts.Timeout; exceeding it produces a timeout error,
// which is retryable. Backoff doubles per attempt starting at one second.
func ExecuteWithRetry[T any](ctx context.Context, name string, opts RetryOptions, logger *log.Logger, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := runAttempt(ctx, opts, op)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !models.IsRetryable(err) || attempt == opts.MaxRetries {
			break
		}
		delay := time.Duration(1<<attempt) * time.Second
		if logger != nil {
			logger.Printf("%s attempt %d/%d failed: %v (retrying in %s)", name, attempt+1, opts.MaxRetries+1, err, delay)
		}
		if err := opts.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// runAttempt executes op once, bounded by the per-attempt timeout. The
// operation runs in its own goroutine so a stuck op cannot outlive the
// deadline; it receives the attempt context and should return promptly
// once that context is done.
func runAttempt[T any](ctx context.Context, opts RetryOptions, op func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := op(attemptCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-attemptCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, models.NewTimeoutError(opts.Phase, opts.Timeout)
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
