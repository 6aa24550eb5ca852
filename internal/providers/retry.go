package providers

import (
	"context"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy defines retry behavior for provider and search calls.
// One policy instance is injected wherever an external call is made so
// backoff behavior is tuned in a single place.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewDefaultRetryPolicy returns a RetryPolicy with sensible defaults for
// rate-limited generative APIs.
func NewDefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a provider
// error message. Returns 0 if no delay is found.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff computes the backoff duration for a given attempt with
// ±25% jitter. If apiDelay > 0 (from ExtractRetryDelay) it is used as the
// base instead of InitialBackoff. The result is capped at MaxBackoff.
func (p *RetryPolicy) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := float64(p.InitialBackoff)
	if apiDelay > 0 {
		base = float64(apiDelay + time.Second)
	}

	for i := 0; i < attempt; i++ {
		base *= p.BackoffMultiplier
	}

	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	backoff := time.Duration(base + jitter)

	if backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	if backoff < 0 {
		backoff = p.InitialBackoff
	}

	return backoff
}

// Execute wraps a call with the retry loop. The wrapped function is
// retried until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error is returned once attempts run out.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(lastErr) {
			backoff = p.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
		} else {
			backoff = p.CalculateBackoff(attempt, 0)
		}

		logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	logger.Warn().
		Str("operation", operation).
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return lastErr
}
