package smp

import (
	"context"
	"sync/atomic"
	"testing"

	"smpcore/hal"
)

func TestRendezvousHoldsUntilAllArrive(t *testing.T) {
	const (
		cores  = 4
		rounds = 20
	)
	p, h := newTestPort(t, cores)

	var arrived [rounds]atomic.Int32
	var early atomic.Int32
	err := h.RunCores(context.Background(), func(ctx context.Context, cpu hal.CPU) error {
		c := p.Bind(cpu)
		for r := 0; r < rounds; r++ {
			arrived[r].Add(1)
			c.Rendezvous()
			if arrived[r].Load() != cores {
				early.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunCores() err = %v", err)
	}
	if n := early.Load(); n != 0 {
		t.Fatalf("%d cores left a round early, want 0", n)
	}
	if got := p.Generation(); got != rounds {
		t.Fatalf("Generation() = %d, want %d", got, rounds)
	}
	if p.Owns(0, p.Config().BarrierGate) || p.Depth(p.Config().BarrierGate) != 0 {
		t.Fatal("barrier gate left held")
	}
}
