package smp

// gateToken proves the hardware gate was claimed by TryAcquire. It is the
// only way to seed a gate's recursion depth.
type gateToken struct {
	gate GateID
}

func (p *Port) tryAcquire(gate GateID) (gateToken, bool) {
	if !p.gates.TryAcquire(uint8(gate)) {
		return gateToken{}, false
	}
	return gateToken{gate: gate}, true
}

func (p *Port) checkGate(core CoreID, gate GateID) {
	if gate >= NumGates {
		p.fatal(core, gate, "gate index out of range")
	}
}

// Acquire takes gate for this core. A core that already owns gate re-enters
// without touching the hardware again; otherwise it spins until the owner
// releases.
func (c *Core) Acquire(gate GateID) {
	p := c.p
	core := c.CurrentCore()
	p.checkGate(core, gate)

	tok, ok := p.tryAcquire(gate)
	if !ok {
		if p.owned[core].Load()&(1<<gate) != 0 {
			if p.depth[gate] >= p.cfg.MaxRecursion {
				p.fatal(core, gate, "recursion depth limit reached")
			}
			p.depth[gate]++
			p.stats[gate].recursive.Add(1)
			return
		}

		p.stats[gate].contended.Add(1)
		// Warm the line before spinning on it.
		_ = p.gates.Peek(uint8(gate))
		for !ok {
			c.cpu.Relax()
			tok, ok = p.tryAcquire(gate)
		}
	}

	// Everything the previous owner wrote under the gate is visible after this.
	c.cpu.Fence()
	p.claim(core, tok)
}

func (p *Port) claim(core CoreID, tok gateToken) {
	if p.depth[tok.gate] != 0 {
		p.fatal(core, tok.gate, "gate acquired with stale recursion depth")
	}
	p.depth[tok.gate] = 1
	held := p.owned[core].Load()
	if held != 0 {
		p.noteOrder(held, tok.gate)
	}
	p.owned[core].Store(held | 1<<tok.gate)
	p.stats[tok.gate].acquired.Add(1)
}

// Release drops one level of this core's hold on gate. The hardware gate is
// released when the last level goes.
func (c *Core) Release(gate GateID) {
	p := c.p
	core := c.CurrentCore()
	p.checkGate(core, gate)

	set := p.owned[core].Load()
	if set&(1<<gate) == 0 {
		p.fatal(core, gate, "release of gate not owned by this core")
	}
	if p.depth[gate] == 0 {
		p.fatal(core, gate, "release of gate with zero recursion depth")
	}

	p.depth[gate]--
	if p.depth[gate] != 0 {
		return
	}

	p.owned[core].Store(set &^ (1 << gate))
	c.cpu.Fence()
	p.gates.Release(uint8(gate))
	c.cpu.Fence()
}

// Depth returns the recursion depth of gate. It is only stable when read by
// the owning core or while no core is running.
func (p *Port) Depth(gate GateID) uint32 {
	return p.depth[gate]
}
