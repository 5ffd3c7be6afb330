package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrOpen is returned when a call is rejected by an open breaker.
var ErrOpen = eris.New("resilience: circuit open")

// Breaker stops calling a failing renderer for a cool-off period after
// Threshold failures within Window.
type Breaker struct {
	Threshold int
	Window    time.Duration
	Cooloff   time.Duration

	mu        sync.Mutex
	failures  []time.Time
	openUntil time.Time
	now       func() time.Time
}

// NewBreaker creates a Breaker.
func NewBreaker(threshold int, window, cooloff time.Duration) *Breaker {
	return &Breaker{Threshold: threshold, Window: window, Cooloff: cooloff, now: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return ErrOpen
	}
	return nil
}

// Record registers the outcome of a call. A success clears the failure
// history.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = b.failures[:0]
		return
	}

	now := b.now()
	cutoff := now.Add(-b.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	if len(b.failures) >= b.Threshold {
		b.openUntil = now.Add(b.Cooloff)
		b.failures = b.failures[:0]
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	return b.Allow() != nil
}
