package hal

import (
	"context"
	"errors"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// NumGates is the number of independently arbitrated gates in the bank.
const NumGates = 16

// Gates is the bank of hardware mutual-exclusion gates shared by all cores.
type Gates interface {
	// TryAcquire claims gate id if it is free. It never blocks.
	TryAcquire(id uint8) bool
	// Release frees gate id unconditionally.
	Release(id uint8)
	// Peek reads the backing state of gate id without claiming it.
	Peek(id uint8) uint32
}

// GateStats counts the hardware traffic on one gate.
type GateStats struct {
	Tries    uint64
	Acquires uint64
	Releases uint64
	Peeks    uint64
}

// GateMonitor is implemented by gate banks that count their traffic.
type GateMonitor interface {
	GateStats(id uint8) GateStats
}

// IRQState is the saved global interrupt-enable state of a core.
type IRQState uintptr

// Line identifies one of a core's local interrupt lines.
type Line uint8

const (
	// LineDoorbell is the dedicated cross-core interrupt raised by the router.
	LineDoorbell Line = iota
	// LineSoftware is a spare line, raised only by software.
	LineSoftware

	MaxLines = 8
)

// CPU is the register view of the executing core.
//
// On hardware every core shares one view because the identity and ceiling
// registers are banked per core. The host simulator hands each simulated core
// its own view.
type CPU interface {
	// ID reads the core identity register.
	ID() uint32

	// Ceiling reads the local interrupt priority ceiling. Zero masks nothing;
	// otherwise interrupts with a priority value >= the ceiling are masked.
	Ceiling() uint8
	SetCeiling(level uint8)

	DisableInterrupts() IRQState
	RestoreInterrupts(s IRQState)

	// Fence is a full read/write memory barrier.
	Fence()
	// Relax hints that the core is spinning.
	Relax()

	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)

	// SetHandler installs fn for line at the given priority on this core.
	SetHandler(line Line, priority uint8, fn func())
	// Poll takes any pending interrupt the current mask allows.
	Poll()
	// Wait sleeps until an interrupt may be pending, then polls.
	Wait()
}

// Config describes the platform: how many cores run and where the
// inter-core interrupt router lives.
type Config struct {
	Cores  int
	Router RouterLayout
}

// HAL provides the only contact point between the port and the hardware.
type HAL interface {
	Logger() Logger
	Gates() Gates
	Cores() int
	CPU(core int) CPU

	// RunCores runs fn once on every core and waits for all of them.
	// The first error cancels ctx for the others.
	RunCores(ctx context.Context, fn func(ctx context.Context, cpu CPU) error) error
}
