//go:build !tinygo

package hal

import (
	"fmt"
	"sync/atomic"
)

type hostGate struct {
	state atomic.Uint32

	tries    atomic.Uint64
	acquires atomic.Uint64
	releases atomic.Uint64
	peeks    atomic.Uint64
}

// hostGates simulates the gate bank with one CAS word per gate.
type hostGates struct {
	g [NumGates]hostGate
}

func (b *hostGates) gate(id uint8) *hostGate {
	if int(id) >= NumGates {
		panic(fmt.Errorf("gate %d: %w", id, ErrBusFault))
	}
	return &b.g[id]
}

func (b *hostGates) TryAcquire(id uint8) bool {
	g := b.gate(id)
	g.tries.Add(1)
	if !g.state.CompareAndSwap(0, 1) {
		return false
	}
	g.acquires.Add(1)
	return true
}

func (b *hostGates) Release(id uint8) {
	g := b.gate(id)
	g.releases.Add(1)
	g.state.Store(0)
}

func (b *hostGates) Peek(id uint8) uint32 {
	g := b.gate(id)
	g.peeks.Add(1)
	return g.state.Load()
}

func (b *hostGates) GateStats(id uint8) GateStats {
	g := b.gate(id)
	return GateStats{
		Tries:    g.tries.Load(),
		Acquires: g.acquires.Load(),
		Releases: g.releases.Load(),
		Peeks:    g.peeks.Load(),
	}
}
