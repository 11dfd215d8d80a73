package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	t.Parallel()

	t.Run("allows up to burst", func(t *testing.T) {
		t.Parallel()
		l := New(5, 0)
		for i := range 5 {
			if !l.Allow() {
				t.Errorf("Allow() = false on attempt %d, want true", i+1)
			}
		}
		if l.Allow() {
			t.Error("Allow() = true with empty bucket and no refill")
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()
		l := New(1, 100)
		l.Allow()
		time.Sleep(30 * time.Millisecond)
		if !l.Allow() {
			t.Error("Allow() = false after refill window")
		}
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("returns once a token refills", func(t *testing.T) {
		t.Parallel()
		l := New(1, 50)
		l.Allow()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Wait(ctx); err != nil {
			t.Errorf("Wait() = %v", err)
		}
	})

	t.Run("honors cancellation without refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 0)
		l.Allow()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err != context.DeadlineExceeded {
			t.Errorf("Wait() = %v, want deadline exceeded", err)
		}
	})
}

func TestIsFull(t *testing.T) {
	t.Parallel()
	l := New(2, 0)
	if !l.IsFull() {
		t.Error("new limiter should be full")
	}
	l.Allow()
	if l.IsFull() || l.Available() != 1 {
		t.Errorf("after one Allow: full=%v available=%v", l.IsFull(), l.Available())
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	l := New(100, 0)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 200 {
		wg.Go(func() {
			if l.Allow() {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()

	if allowed.Load() != 100 {
		t.Errorf("allowed = %d, want exactly 100", allowed.Load())
	}
}
