// Package backoff wraps cenkalti/backoff/v5 into the retry profile used
// by queueline's counter poller around its call_next requests.
package backoff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retryer carries a configured exponential-backoff policy. Build one with
// New, then run operations through Do.
type Retryer struct {
	ctx     context.Context
	options []backoff.RetryOption
}

// New configures an exponential backoff starting at initial, multiplied
// by multiplier each attempt with +-randomization jitter, giving up after
// maxTries attempts. v5 counts the first call as a try, so maxTries=4
// means one call plus three retries.
func New(ctx context.Context, initial time.Duration, randomization, multiplier float64, maxTries uint) *Retryer {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.RandomizationFactor = randomization
	eb.Multiplier = multiplier

	return &Retryer{
		ctx:     ctx,
		options: []backoff.RetryOption{backoff.WithBackOff(eb), backoff.WithMaxTries(maxTries)},
	}
}

// Notify registers a callback invoked with each intermediate failure and
// the delay before the next attempt.
func (r *Retryer) Notify(n backoff.Notify) {
	r.options = append(r.options, backoff.WithNotify(n))
}

// Do runs op until it succeeds, the policy gives up, or the Retryer's
// context is cancelled, returning the last result.
func Do[T any](r *Retryer, op backoff.Operation[T]) (T, error) {
	return backoff.Retry(r.ctx, op, r.options...)
}
