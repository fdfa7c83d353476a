//go:build !tinygo

package hal

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// idle is the active priority while no handler runs; every priority is below it.
const idle = 0x100

type handler struct {
	priority uint8
	fn       func()
}

// HostCPU is one simulated core.
//
// Interrupts are taken where hardware would take them: when the ceiling is
// lowered, when global interrupts are restored, and in Poll and Wait. Handlers
// run on the goroutine that drives the core.
type HostCPU struct {
	id int
	h  *Host

	ceiling atomic.Uint32
	masked  atomic.Bool
	pending atomic.Uint32
	wake    chan struct{}

	mu       sync.Mutex
	handlers [MaxLines]handler

	// Only touched by the goroutine driving the core.
	active int
	nested int

	idReads atomic.Uint64
	fences  atomic.Uint64
	taken   atomic.Uint64
}

func newHostCPU(id int, h *Host) *HostCPU {
	return &HostCPU{
		id:     id,
		h:      h,
		wake:   make(chan struct{}, 1),
		active: idle,
	}
}

func (c *HostCPU) ID() uint32 {
	c.idReads.Add(1)
	return uint32(c.id)
}

func (c *HostCPU) Ceiling() uint8 { return uint8(c.ceiling.Load()) }

func (c *HostCPU) SetCeiling(level uint8) {
	c.ceiling.Store(uint32(level))
	c.Poll()
}

func (c *HostCPU) DisableInterrupts() IRQState {
	if c.masked.Swap(true) {
		return 1
	}
	return 0
}

func (c *HostCPU) RestoreInterrupts(s IRQState) {
	c.masked.Store(s != 0)
	c.Poll()
}

// fenceWord is shared by every simulated core. A read-modify-write on it
// orders each core's accesses against all others, like a full barrier.
var fenceWord atomic.Uint64

func (c *HostCPU) Fence() {
	fenceWord.Add(1)
	c.fences.Add(1)
}

// Relax yields the OS thread; simulated cores share them.
func (c *HostCPU) Relax() { runtime.Gosched() }

func (c *HostCPU) Load32(addr uintptr) uint32 {
	if !c.h.router.contains(addr) {
		panic(fmt.Errorf("cpu%d: load %#x: %w", c.id, addr, ErrBusFault))
	}
	return c.h.router.load(addr)
}

func (c *HostCPU) Store32(addr uintptr, v uint32) {
	if !c.h.router.contains(addr) {
		panic(fmt.Errorf("cpu%d: store %#x: %w", c.id, addr, ErrBusFault))
	}
	c.h.router.store(c.id, addr, v)
}

func (c *HostCPU) SetHandler(line Line, priority uint8, fn func()) {
	if line >= MaxLines {
		panic(fmt.Sprintf("cpu%d: interrupt line %d out of range", c.id, line))
	}
	c.mu.Lock()
	c.handlers[line] = handler{priority: priority, fn: fn}
	c.mu.Unlock()
}

// Raise marks line pending on this core and wakes it.
func (c *HostCPU) Raise(line Line) {
	for {
		old := c.pending.Load()
		if c.pending.CompareAndSwap(old, old|1<<line) {
			break
		}
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether line is pending.
func (c *HostCPU) Pending(line Line) bool {
	return c.pending.Load()&(1<<line) != 0
}

// InInterrupt reports whether a handler is running on this core.
func (c *HostCPU) InInterrupt() bool { return c.nested > 0 }

// IdentityReads counts reads of the identity register.
func (c *HostCPU) IdentityReads() uint64 { return c.idReads.Load() }

// Fences counts barriers issued by this core.
func (c *HostCPU) Fences() uint64 { return c.fences.Load() }

// Taken counts interrupts delivered to this core.
func (c *HostCPU) Taken() uint64 { return c.taken.Load() }

func (c *HostCPU) deliverable(priority uint8) bool {
	ceil := c.ceiling.Load()
	if ceil != 0 && uint32(priority) >= ceil {
		return false
	}
	return int(priority) < c.active
}

// next claims the most urgent deliverable pending line.
func (c *HostCPU) next() (handler, bool) {
	c.mu.Lock()
	handlers := c.handlers
	c.mu.Unlock()

	for {
		pend := c.pending.Load()
		best := -1
		for line := 0; line < MaxLines; line++ {
			hd := handlers[line]
			if pend&(1<<line) == 0 || hd.fn == nil || !c.deliverable(hd.priority) {
				continue
			}
			if best < 0 || hd.priority < handlers[best].priority {
				best = line
			}
		}
		if best < 0 {
			return handler{}, false
		}
		if c.pending.CompareAndSwap(pend, pend&^(1<<best)) {
			return handlers[best], true
		}
	}
}

func (c *HostCPU) Poll() {
	for !c.masked.Load() {
		hd, ok := c.next()
		if !ok {
			return
		}
		prev := c.active
		c.active = int(hd.priority)
		c.nested++
		c.taken.Add(1)
		hd.fn()
		c.nested--
		c.active = prev
	}
}

// waitSlice bounds Wait so callers can observe cancellation.
const waitSlice = time.Millisecond

func (c *HostCPU) Wait() {
	before := c.taken.Load()
	c.Poll()
	if c.taken.Load() != before {
		return
	}
	t := time.NewTimer(waitSlice)
	select {
	case <-c.wake:
	case <-t.C:
	}
	t.Stop()
	c.Poll()
}
