package smp

// CurrentCore reads the identity register. A single-core port never reads it.
func (c *Core) CurrentCore() CoreID {
	if !c.p.multicore() {
		return 0
	}
	return CoreID(c.cpu.ID())
}
