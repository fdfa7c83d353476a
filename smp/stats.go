package smp

import "sync/atomic"

type gateCounters struct {
	acquired  atomic.Uint64
	recursive atomic.Uint64
	contended atomic.Uint64
}

// GateStats summarizes how a gate has been taken since boot.
type GateStats struct {
	// Acquired counts acquisitions that claimed the hardware gate.
	Acquired uint64
	// Recursive counts re-entries by the owning core.
	Recursive uint64
	// Contended counts acquisitions that had to spin.
	Contended uint64
}

// GateStats returns the counters for gate.
func (p *Port) GateStats(gate GateID) GateStats {
	s := &p.stats[gate]
	return GateStats{
		Acquired:  s.acquired.Load(),
		Recursive: s.recursive.Load(),
		Contended: s.contended.Load(),
	}
}
