package worker

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryMultiplier = 2
	// past this many doublings every interval is already capped
	maxDoublings = 64
)

// Backoff computes retry delays: exponential from Base, capped at Max, and
// randomized by Jitter in both directions.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{Base: base, Max: max, Jitter: backoff.DefaultRandomizationFactor}
}

func (b *Backoff) policy() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Base
	eb.MaxInterval = b.Max
	eb.Multiplier = retryMultiplier
	eb.RandomizationFactor = b.Jitter
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// Delay returns the wait before the next try. tries is 1-based.
func (b *Backoff) Delay(tries int) time.Duration {
	eb := b.policy()
	d := eb.NextBackOff()
	for i := 1; i < min(tries, maxDoublings); i++ {
		d = eb.NextBackOff()
	}
	return d
}

func (b *Backoff) NextAt(now time.Time, tries int) time.Time {
	return now.Add(b.Delay(tries)).UTC()
}
