// Package services holds the BTPS connector's business logic above the
// ports/adapters layer: retry policy, the backpressure queue, the
// event emitter, and the client connector state machine itself.
package services

import (
	"github.com/btps-org/btps-core/internal/core/domain"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// RetryPolicy classifies errors and schedules retry attempts (spec
// §4.6). The resolved open question on growth curve: exponential
// backoff with factor 2 off a configurable base delay, capped at
// MaxRetries attempts. No jitter is applied and there is no option to
// enable it (callers needing jitter add it to NextDelayMs themselves).
type RetryPolicy struct {
	MaxRetries   int
	BaseDelayMs  int
	Destroyed    bool

	attempts int
}

// NewRetryPolicy returns a RetryPolicy with the given limits.
func NewRetryPolicy(maxRetries, baseDelayMs int) *RetryPolicy {
	return &RetryPolicy{MaxRetries: maxRetries, BaseDelayMs: baseDelayMs}
}

// GetRetryInfo returns whether the operation should be retried given
// err and the policy's current attempt count, per spec §4.6:
// willRetry = shouldRetry ∧ ¬destroyed ∧ retries < maxRetries ∧ error
// ∉ terminal.
func (p *RetryPolicy) GetRetryInfo(err error) domain.RetryInfo {
	retriesLeft := p.MaxRetries - p.attempts
	if retriesLeft < 0 {
		retriesLeft = 0
	}

	transient := err != nil && btpserrors.Classify(err) == btpserrors.ClassTransient
	willRetry := transient && !p.Destroyed && p.attempts < p.MaxRetries

	return domain.RetryInfo{
		WillRetry:   willRetry,
		RetriesLeft: retriesLeft,
		NextDelayMs: p.nextDelay(),
	}
}

// RecordAttempt increments the attempt counter; call once per
// connect/send retry actually taken.
func (p *RetryPolicy) RecordAttempt() {
	p.attempts++
}

// Reset clears the attempt counter, e.g. after a successful connect.
func (p *RetryPolicy) Reset() {
	p.attempts = 0
}

// nextDelay computes the exponential backoff delay for the current
// attempt count: base * 2^attempts.
func (p *RetryPolicy) nextDelay() int {
	delay := p.BaseDelayMs
	for i := 0; i < p.attempts; i++ {
		delay *= 2
	}
	return delay
}
