package smp

func (c *Core) checkCore(id CoreID, what string) {
	if int(id) >= c.p.cfg.Cores {
		c.p.fatal(c.CurrentCore(), NoGate, what+" core out of range")
	}
}

// RequestReschedule rings target's doorbell. Requests made before target
// acknowledges collapse into one.
func (c *Core) RequestReschedule(target CoreID) {
	c.checkCore(target, "reschedule target")
	r := c.p.cfg.Router
	addr := r.GenerateAddr(int(target))
	c.cpu.Store32(addr, c.cpu.Load32(addr)|1<<r.DoorbellBit)
}

// Acknowledge clears source's request in target's status register. The
// doorbell handler on target calls it before returning.
func (c *Core) Acknowledge(source, target CoreID) {
	c.checkCore(source, "acknowledge source")
	c.checkCore(target, "acknowledge target")
	addr := c.p.cfg.Router.StatusAddr(int(target), int(source))
	c.cpu.Store32(addr, c.cpu.Load32(addr)&^(1<<source))
}

// RescheduleRequested reports whether source has an unacknowledged request
// pending on target.
func (c *Core) RescheduleRequested(source, target CoreID) bool {
	c.checkCore(source, "request source")
	c.checkCore(target, "request target")
	addr := c.p.cfg.Router.StatusAddr(int(target), int(source))
	return c.cpu.Load32(addr)&(1<<source) != 0
}
