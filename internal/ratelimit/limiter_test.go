package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock is advanced by the returned func.
func fakeClock(l *Limiter) func(time.Duration) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(30, 5)
	if l.Rate != 0.5 || l.Burst != 5 {
		t.Errorf("PerMinute(30, 5) = %+v, want {0.5 5}", l)
	}
}

func TestAllow_Burst(t *testing.T) {
	l := NewLimiter(Limit{Rate: 1, Burst: 3})
	fakeClock(l)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request beyond burst should be denied")
	}
}

func TestAllow_Refill(t *testing.T) {
	l := NewLimiter(Limit{Rate: 2, Burst: 2})
	advance := fakeClock(l)

	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("bucket should be empty")
	}

	advance(250 * time.Millisecond) // half a token
	if l.Allow("k") {
		t.Error("half a token should not be enough")
	}

	advance(250 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("one full token should have refilled")
	}

	advance(time.Hour)
	for i := 0; i < 2; i++ {
		if !l.Allow("k") {
			t.Errorf("refill should cap at burst, request %d denied", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("refill must not exceed burst")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(Limit{Rate: 0, Burst: 1})
	fakeClock(l)

	if !l.Allow("a") || !l.Allow("b") {
		t.Error("each key should start with a full bucket")
	}
	if l.Allow("a") {
		t.Error("key a should be exhausted with zero rate")
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(Limit{Rate: 0, Burst: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestToolLimiters_Check(t *testing.T) {
	limiters := NewToolLimiters()
	for tool := range DefaultToolLimits {
		if limiters[tool] == nil {
			t.Errorf("missing limiter for %s", tool)
		}
	}

	if err := limiters.Check("unlimited_tool"); err != nil {
		t.Errorf("tool without limiter should pass, got %v", err)
	}

	burst := DefaultToolLimits["spikenet_export"].Burst
	fakeClock(limiters["spikenet_export"])
	for i := 0; i < burst; i++ {
		if err := limiters.Check("spikenet_export"); err != nil {
			t.Fatalf("call %d within burst failed: %v", i+1, err)
		}
	}
	if err := limiters.Check("spikenet_export"); err == nil {
		t.Error("expected rate limit error after burst")
	}
}
