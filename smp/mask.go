package smp

// raiseMask lifts this core's ceiling to MaxMasked and returns the ceiling it
// replaced. Global interrupts are held off across the read and the write.
func (c *Core) raiseMask() Priority {
	s := c.cpu.DisableInterrupts()
	prev := Priority(c.cpu.Ceiling())
	c.cpu.SetCeiling(uint8(c.p.cfg.MaxMasked))
	c.cpu.RestoreInterrupts(s)
	c.cpu.Fence()
	return prev
}

// setMask writes this core's ceiling.
func (c *Core) setMask(level Priority) {
	c.cpu.SetCeiling(uint8(level))
	c.cpu.Fence()
}

// Mask returns this core's current ceiling.
func (c *Core) Mask() Priority {
	return Priority(c.cpu.Ceiling())
}
