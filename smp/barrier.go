package smp

import "sync/atomic"

type rendezvous struct {
	// arrived is guarded by the barrier gate.
	arrived    uint32
	generation atomic.Uint32
}

// Rendezvous blocks until every configured core has called it. It can be
// reused; each round advances the generation.
func (c *Core) Rendezvous() {
	p := c.p
	if !p.multicore() {
		return
	}
	r := &p.rendezvous

	c.Acquire(p.cfg.BarrierGate)
	gen := r.generation.Load()
	r.arrived++
	last := r.arrived == uint32(p.cfg.Cores)
	if last {
		r.arrived = 0
		r.generation.Store(gen + 1)
	}
	c.Release(p.cfg.BarrierGate)

	for !last && r.generation.Load() == gen {
		c.cpu.Relax()
	}
}

// Generation returns how many rendezvous rounds have completed.
func (p *Port) Generation() uint32 {
	return p.rendezvous.generation.Load()
}
