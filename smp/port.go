// Package smp is the cross-core critical section core of the scheduler port.
//
// A Port owns the process-wide lock state: which core owns which gate, how
// deep each gate has recursed, and how deep each core's critical sections are
// nested. Code running on a core reaches it through a Core bound to that
// core's register view.
package smp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"smpcore/hal"
)

// Port is created once at boot and lives for the life of the process.
type Port struct {
	cfg   Config
	gates hal.Gates
	log   hal.Logger

	// owned[core] is the set of gates held by core. Only core writes its slot.
	owned [MaxCores]atomic.Uint32
	// depth[gate] is written only by the core holding gate in hardware.
	depth [NumGates]uint32
	// nesting[core] is touched only by core itself.
	nesting [MaxCores]uint32

	rendezvous rendezvous
	stats      [NumGates]gateCounters
	order      [NumGates]atomic.Uint32

	faulted      atomic.Bool
	faultOnce    sync.Once
	faultHandler atomic.Value // func(*Fault)
}

// New validates cfg against h and returns the port.
func New(h hal.HAL, cfg Config) (*Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n := h.Cores(); n < cfg.Cores {
		return nil, fmt.Errorf("%w: %d cores configured, platform has %d", ErrInvalidConfig, cfg.Cores, n)
	}
	return &Port{
		cfg:   cfg,
		gates: h.Gates(),
		log:   h.Logger(),
	}, nil
}

// Config returns the boot configuration.
func (p *Port) Config() Config { return p.cfg }

func (p *Port) multicore() bool { return p.cfg.Cores > 1 }

// Core is the port as seen from one core.
type Core struct {
	p   *Port
	cpu hal.CPU
}

// Bind returns the port as seen through cpu.
func (p *Port) Bind(cpu hal.CPU) *Core {
	return &Core{p: p, cpu: cpu}
}

// Port returns the port c is bound to.
func (c *Core) Port() *Port { return c.p }

// CPU returns the register view c runs on.
func (c *Core) CPU() hal.CPU { return c.cpu }

// Owns reports whether core currently owns gate.
func (p *Port) Owns(core CoreID, gate GateID) bool {
	return p.owned[core].Load()&(1<<gate) != 0
}

// Owned returns the set of gates owned by core.
func (p *Port) Owned(core CoreID) uint32 { return p.owned[core].Load() }
