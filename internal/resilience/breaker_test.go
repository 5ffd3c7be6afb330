package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThresholdWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(3, 30*time.Second, time.Minute)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		b.Record(errors.New("fail"))
	}
	if b.Open() {
		t.Fatal("breaker opened early")
	}
	b.Record(errors.New("fail"))
	if !errors.Is(b.Allow(), ErrOpen) {
		t.Fatal("expected breaker to be open")
	}

	now = now.Add(61 * time.Second)
	if b.Open() {
		t.Fatal("expected breaker to close after cool-off")
	}
}

func TestBreaker_OldFailuresExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(3, 30*time.Second, time.Minute)
	b.now = func() time.Time { return now }

	b.Record(errors.New("fail"))
	b.Record(errors.New("fail"))
	now = now.Add(45 * time.Second)
	b.Record(errors.New("fail"))
	if b.Open() {
		t.Fatal("failures outside the window should not count")
	}
}

func TestBreaker_SuccessClearsFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute, time.Minute)
	b.Record(errors.New("fail"))
	b.Record(nil)
	b.Record(errors.New("fail"))
	if b.Open() {
		t.Fatal("success should reset failure count")
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := NewBreaker(1000, time.Minute, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.Record(errors.New("fail"))
			} else {
				b.Record(nil)
			}
			_ = b.Allow()
		}(i)
	}
	wg.Wait()
}
