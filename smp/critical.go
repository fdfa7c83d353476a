package smp

// EnterCritical enters the task-level critical section.
//
// The outermost call on a core raises the local mask. On a multi-core port
// every call also takes the task gate, so nested calls recurse on it.
func (c *Core) EnterCritical() {
	p := c.p
	core := c.CurrentCore()
	if p.nesting[core] == 0 {
		c.raiseMask()
	}
	if p.multicore() {
		c.Acquire(p.cfg.TaskGate)
	}
	p.nesting[core]++
}

// ExitCritical leaves one level of the task-level critical section. The
// outermost exit unmasks the core.
func (c *Core) ExitCritical() {
	p := c.p
	core := c.CurrentCore()
	if p.nesting[core] == 0 {
		p.fatal(core, p.cfg.TaskGate, "exit critical without matching enter")
	}
	p.nesting[core]--
	if p.multicore() {
		c.Release(p.cfg.TaskGate)
	}
	if p.nesting[core] == 0 {
		c.setMask(Unmasked)
	}
}

// Nesting returns how deep this core's task-level critical sections go.
func (c *Core) Nesting() uint32 {
	return c.p.nesting[c.CurrentCore()]
}

// EnterCriticalFromISR enters the ISR-level critical section and returns the
// ceiling to hand back to ExitCriticalFromISR.
func (c *Core) EnterCriticalFromISR() Priority {
	saved := c.raiseMask()
	if c.p.multicore() {
		c.Acquire(c.p.cfg.ISRGate)
	}
	return saved
}

// ExitCriticalFromISR leaves the ISR-level critical section and restores the
// ceiling that was active on entry.
func (c *Core) ExitCriticalFromISR(saved Priority) {
	if c.p.multicore() {
		c.Release(c.p.cfg.ISRGate)
	}
	c.setMask(saved)
}

// Unwind drops every gate this core holds at any depth, clears its task-level
// nesting and unmasks it. It recovers a core whose caller abandoned its
// critical sections part way, such as a task that panicked.
func (c *Core) Unwind() {
	p := c.p
	core := c.CurrentCore()
	for gate := GateID(0); gate < NumGates; gate++ {
		for p.Owns(core, gate) {
			c.Release(gate)
		}
	}
	p.nesting[core] = 0
	c.setMask(Unmasked)
}
