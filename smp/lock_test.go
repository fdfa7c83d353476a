package smp

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smpcore/hal"
)

const testGate GateID = 5

func TestRecursiveAcquireNeedsMatchingReleases(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))

	const n = 4
	for i := 0; i < n; i++ {
		c0.Acquire(testGate)
	}
	if got := p.Depth(testGate); got != n {
		t.Fatalf("Depth() = %d, want %d", got, n)
	}

	for i := 0; i < n-1; i++ {
		c0.Release(testGate)
		if !p.Owns(0, testGate) {
			t.Fatalf("after %d releases Owns(0) = false, want true", i+1)
		}
		if h.Gates().Peek(uint8(testGate)) == 0 {
			t.Fatalf("after %d releases hardware gate is free, want held", i+1)
		}
	}

	c0.Release(testGate)
	if p.Owns(0, testGate) || p.Depth(testGate) != 0 {
		t.Fatalf("after %d releases Owns(0) = %v Depth() = %d, want free", n, p.Owns(0, testGate), p.Depth(testGate))
	}

	c1.Acquire(testGate)
	if !p.Owns(1, testGate) {
		t.Fatal("Owns(1) = false after acquire, want true")
	}
	c1.Release(testGate)

	st := p.GateStats(testGate)
	if st.Acquired != 2 || st.Recursive != n-1 || st.Contended != 0 {
		t.Fatalf("GateStats() = %+v, want 2 acquired, %d recursive, 0 contended", st, n-1)
	}
}

func TestReacquireTakesFastPath(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))

	c0.Acquire(testGate)
	before := h.GateStats(uint8(testGate))

	c0.Acquire(testGate)
	after := h.GateStats(uint8(testGate))

	if got := after.Tries - before.Tries; got != 1 {
		t.Fatalf("hardware tries during re-acquire = %d, want 1", got)
	}
	if after.Peeks != before.Peeks {
		t.Fatalf("warm-up reads during re-acquire = %d, want 0", after.Peeks-before.Peeks)
	}
	if after.Acquires != before.Acquires {
		t.Fatal("re-acquire claimed the hardware gate again")
	}

	c0.Release(testGate)
	c0.Release(testGate)
	if got := h.GateStats(uint8(testGate)).Releases; got != 1 {
		t.Fatalf("hardware releases = %d, want 1", got)
	}
}

func TestContendedAcquireSpinsUntilRelease(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))

	c0.Acquire(testGate)

	done := make(chan struct{})
	go func() {
		c1.Acquire(testGate)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.GateStats(uint8(testGate)).Peeks == 0 {
		if time.Now().After(deadline) {
			t.Fatal("core 1 never reached the spin loop")
		}
		runtime.Gosched()
	}
	select {
	case <-done:
		t.Fatal("core 1 acquired a gate held by core 0")
	default:
	}

	c0.Release(testGate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("core 1 did not acquire after release")
	}

	if !p.Owns(1, testGate) || p.Depth(testGate) != 1 {
		t.Fatalf("Owns(1) = %v Depth() = %d, want owned at depth 1", p.Owns(1, testGate), p.Depth(testGate))
	}
	if got := p.GateStats(testGate).Contended; got != 1 {
		t.Fatalf("Contended = %d, want 1", got)
	}
	c1.Release(testGate)
}

func TestMutualExclusionAcrossCores(t *testing.T) {
	const (
		cores = 4
		iters = 500
	)
	p, h := newTestPort(t, cores)

	var inside atomic.Int32
	var violations atomic.Int32
	err := h.RunCores(context.Background(), func(ctx context.Context, cpu hal.CPU) error {
		c := p.Bind(cpu)
		me := c.CurrentCore()
		for i := 0; i < iters; i++ {
			c.Acquire(testGate)
			if inside.Add(1) != 1 {
				violations.Add(1)
			}
			for other := CoreID(0); other < cores; other++ {
				if other != me && p.Owns(other, testGate) {
					violations.Add(1)
				}
			}
			if i%7 == 0 {
				c.Acquire(testGate)
				c.Release(testGate)
			}
			inside.Add(-1)
			c.Release(testGate)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunCores() err = %v", err)
	}
	if n := violations.Load(); n != 0 {
		t.Fatalf("mutual exclusion violations = %d, want 0", n)
	}
	if got := p.GateStats(testGate).Acquired; got != cores*iters {
		t.Fatalf("Acquired = %d, want %d", got, cores*iters)
	}
}

func TestReleaseMakesWritesVisibleToNextOwner(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))

	var shared [64]int

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c0.Acquire(testGate)
		for i := range shared {
			shared[i] = i + 1
		}
		c0.Release(testGate)
	}()

	var mismatch int
	go func() {
		defer wg.Done()
		for {
			c1.Acquire(testGate)
			seen := shared[0] != 0
			if seen {
				for i := range shared {
					if shared[i] != i+1 {
						mismatch++
					}
				}
			}
			c1.Release(testGate)
			if seen {
				return
			}
			runtime.Gosched()
		}
	}()
	wg.Wait()

	if mismatch != 0 {
		t.Fatalf("core 1 saw %d stale words after acquiring, want 0", mismatch)
	}
}

func TestReleaseFaults(t *testing.T) {
	t.Run("not owned", func(t *testing.T) {
		p, h := newTestPort(t, 2)
		expectFault(t, "not owned", func() { p.Bind(h.CPU(0)).Release(testGate) })
	})
	t.Run("owned by another core", func(t *testing.T) {
		p, h := newTestPort(t, 2)
		p.Bind(h.CPU(0)).Acquire(testGate)
		f := expectFault(t, "not owned", func() { p.Bind(h.CPU(1)).Release(testGate) })
		if f.Core != 1 {
			t.Fatalf("fault core = %d, want 1", f.Core)
		}
		if !p.Owns(0, testGate) {
			t.Fatal("faulting release changed core 0's ownership")
		}
	})
}

func TestRecursionLimitFaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecursion = 3
	p, h := newTestPortWith(t, cfg)
	c := p.Bind(h.CPU(0))

	for i := 0; i < 3; i++ {
		c.Acquire(testGate)
	}
	expectFault(t, "recursion depth limit", func() { c.Acquire(testGate) })
	if got := p.Depth(testGate); got != 3 {
		t.Fatalf("Depth() after fault = %d, want 3", got)
	}
}

func TestStaleDepthOnFreshAcquireFaults(t *testing.T) {
	p, h := newTestPort(t, 2)
	p.depth[testGate] = 2

	f := expectFault(t, "stale recursion depth", func() { p.Bind(h.CPU(1)).Acquire(testGate) })
	if f.Gate != testGate {
		t.Fatalf("fault gate = %d, want %d", f.Gate, testGate)
	}
}

func TestGateOutOfRangeFaults(t *testing.T) {
	p, h := newTestPort(t, 2)
	expectFault(t, "out of range", func() { p.Bind(h.CPU(0)).Acquire(NumGates) })
}
