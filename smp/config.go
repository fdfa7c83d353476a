package smp

import (
	"errors"
	"fmt"

	"smpcore/hal"
)

const (
	// MaxCores bounds the per-core arrays.
	MaxCores = 8
	// NumGates is the size of the hardware gate bank.
	NumGates = hal.NumGates
)

// CoreID is a dense core index in [0, Config.Cores).
type CoreID uint8

// GateID indexes the hardware gate bank.
type GateID uint8

// NoGate marks faults that are not tied to a gate.
const NoGate GateID = 0xFF

// Priority is a local interrupt priority ceiling.
type Priority uint8

// Unmasked is the baseline ceiling: no interrupt is masked.
const Unmasked Priority = 0

var ErrInvalidConfig = errors.New("invalid port config")

// Config is fixed at boot.
type Config struct {
	Cores int

	// Reserved gates.
	BarrierGate GateID
	ISRGate     GateID
	TaskGate    GateID

	// MaxRecursion bounds how deep one core may re-enter a gate.
	MaxRecursion uint32

	// MaxMasked is the ceiling raised by critical sections. Interrupts with a
	// priority value below it still preempt.
	MaxMasked Priority

	Router hal.RouterLayout
}

// DefaultConfig returns a dual-core layout with the last three gates reserved.
func DefaultConfig() Config {
	return Config{
		Cores:        2,
		BarrierGate:  13,
		ISRGate:      14,
		TaskGate:     15,
		MaxRecursion: 255,
		MaxMasked:    0xA0,
		Router: hal.RouterLayout{
			Base:         0xA000_0000,
			Stride:       0x100,
			Generate:     0x10,
			Status:       0x20,
			StatusStride: 4,
			DoorbellBit:  0,
		},
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.Cores < 1 || c.Cores > MaxCores {
		return fmt.Errorf("%w: cores %d not in [1, %d]", ErrInvalidConfig, c.Cores, MaxCores)
	}
	gates := []struct {
		name string
		id   GateID
	}{
		{"barrier", c.BarrierGate},
		{"isr", c.ISRGate},
		{"task", c.TaskGate},
	}
	for i, g := range gates {
		if g.id >= NumGates {
			return fmt.Errorf("%w: %s gate %d not in [0, %d)", ErrInvalidConfig, g.name, g.id, NumGates)
		}
		for _, other := range gates[:i] {
			if other.id == g.id {
				return fmt.Errorf("%w: %s and %s gates both use %d", ErrInvalidConfig, other.name, g.name, g.id)
			}
		}
	}
	if c.MaxRecursion == 0 {
		return fmt.Errorf("%w: max recursion must be positive", ErrInvalidConfig)
	}
	if c.MaxMasked == Unmasked {
		return fmt.Errorf("%w: max masked ceiling must be non-zero", ErrInvalidConfig)
	}
	if err := c.Router.Check(c.Cores); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
