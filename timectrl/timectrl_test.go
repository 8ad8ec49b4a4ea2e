package timectrl

import (
	"sync"
	"testing"
	"time"
)

func TestClockStartsAtEpoch(t *testing.T) {
	c := New(DefaultEpoch, 6*time.Minute)

	if got := c.Step(); got != 0 {
		t.Fatalf("Step() = %d, want 0", got)
	}
	if got := c.Now(); !got.Equal(DefaultEpoch) {
		t.Fatalf("Now() = %v, want %v", got, DefaultEpoch)
	}
	if got := c.Tick(); got != 6*time.Minute {
		t.Fatalf("Tick() = %v, want 6m", got)
	}
}

func TestClockAdvance(t *testing.T) {
	tick := 6 * time.Minute
	c := New(DefaultEpoch, tick)

	for i := 1; i <= 5; i++ {
		now := c.Advance()
		expected := DefaultEpoch.Add(time.Duration(i) * tick)
		if !now.Equal(expected) {
			t.Fatalf("Advance %d returned %v, want %v", i, now, expected)
		}
		if got := c.Now(); !got.Equal(expected) {
			t.Fatalf("Now() after advance %d = %v, want %v", i, got, expected)
		}
		if got := c.Step(); got != i {
			t.Fatalf("Step() after advance %d = %d, want %d", i, got, i)
		}
	}
}

func TestClockListeners(t *testing.T) {
	tick := time.Hour
	c := New(DefaultEpoch, tick)

	type event struct {
		step int
		now  time.Time
	}
	var events []event
	c.AddListener(func(step int, now time.Time) {
		events = append(events, event{step, now})
	})

	c.Advance()
	c.Advance()

	if len(events) != 2 {
		t.Fatalf("listener saw %d events, want 2", len(events))
	}
	for i, e := range events {
		if e.step != i+1 {
			t.Fatalf("event %d has step %d, want %d", i, e.step, i+1)
		}
		expected := DefaultEpoch.Add(time.Duration(i+1) * tick)
		if !e.now.Equal(expected) {
			t.Fatalf("event %d has time %v, want %v", i, e.now, expected)
		}
	}
}

func TestClockConcurrentReaders(t *testing.T) {
	c := New(DefaultEpoch, time.Minute)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if c.Now().Before(DefaultEpoch) {
					t.Error("Now() went backwards past the epoch")
					return
				}
				_ = c.Step()
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		c.Advance()
	}
	close(stop)
	wg.Wait()

	if got := c.Step(); got != 1000 {
		t.Fatalf("Step() = %d after 1000 advances, want 1000", got)
	}
}
