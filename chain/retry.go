package chain

import (
	"context"
	"errors"
	"strings"
	"time"

	"bounty-orchestrator/core/bounty"
)

// readRetryAttempts bounds retries on confirm-after-write reads. Public RPC
// endpoints behind load balancers can serve state that lags a confirmed
// write by a few seconds.
const readRetryAttempts = 3

var retrySleep = time.Sleep

// IsStaleRead reports whether an error looks like a stale or not-yet-visible
// read rather than a logical failure.
func IsStaleRead(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"not found",
		"bad id",
		"unknown bounty",
		"unknown submission",
		"missing trie node",
		"header not found",
		"connection refused",
		"connection reset",
		"timeout",
		"503",
		"502",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithReadRetry runs fn, retrying with exponential backoff (2s, 4s) when the
// failure matches the retryable predicate. Only read paths go through here;
// writes are never retried.
func WithReadRetry(ctx context.Context, op string, retryable func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < readRetryAttempts; attempt++ {
		if attempt > 0 {
			retrySleep(time.Duration(1<<attempt) * time.Second)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	var transient *bounty.TransientRPCError
	if errors.As(lastErr, &transient) {
		return lastErr
	}
	return &bounty.TransientRPCError{Op: op, Err: lastErr}
}
