// Package config loads the board description: core count, gate assignment,
// interrupt priorities, router layout and the demo workload.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"smpcore/app"
	"smpcore/hal"
	"smpcore/smp"
)

var ErrInvalid = errors.New("config: invalid")

type Gates struct {
	Barrier uint8 `yaml:"barrier"`
	ISR     uint8 `yaml:"isr"`
	Task    uint8 `yaml:"task"`
}

type Priority struct {
	// MaxMasked is the ceiling written by critical sections.
	MaxMasked uint8 `yaml:"max_masked"`
	// Doorbell is the priority of the reschedule interrupt. It must be
	// masked by MaxMasked.
	Doorbell uint8 `yaml:"doorbell"`
}

type Router struct {
	Base         uint64 `yaml:"base"`
	Stride       uint64 `yaml:"stride"`
	Generate     uint64 `yaml:"generate"`
	Status       uint64 `yaml:"status"`
	StatusStride uint64 `yaml:"status_stride"`
	DoorbellBit  uint8  `yaml:"doorbell_bit"`
}

type Workload struct {
	Iterations int `yaml:"iterations"`
	PingPong   int `yaml:"pingpong"`
}

// Config mirrors the YAML file.
type Config struct {
	Cores        int      `yaml:"cores"`
	Gates        Gates    `yaml:"gates"`
	MaxRecursion uint32   `yaml:"max_recursion"`
	Priority     Priority `yaml:"priority"`
	Router       Router   `yaml:"router"`
	Workload     Workload `yaml:"workload"`
	Trace        bool     `yaml:"trace"`
}

// Default returns the simulator board.
func Default() Config {
	p := smp.DefaultConfig()
	a := app.DefaultConfig()
	return Config{
		Cores: p.Cores,
		Gates: Gates{
			Barrier: uint8(p.BarrierGate),
			ISR:     uint8(p.ISRGate),
			Task:    uint8(p.TaskGate),
		},
		MaxRecursion: p.MaxRecursion,
		Priority: Priority{
			MaxMasked: uint8(p.MaxMasked),
			Doorbell:  a.DoorbellPriority,
		},
		Router: Router{
			Base:         uint64(p.Router.Base),
			Stride:       uint64(p.Router.Stride),
			Generate:     uint64(p.Router.Generate),
			Status:       uint64(p.Router.Status),
			StatusStride: uint64(p.Router.StatusStride),
			DoorbellBit:  p.Router.DoorbellBit,
		},
		Workload: Workload{
			Iterations: a.Iterations,
			PingPong:   a.PingPong,
		},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML on Default. Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Port().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Priority.Doorbell < c.Priority.MaxMasked {
		return fmt.Errorf("%w: doorbell priority %#x is not masked by ceiling %#x", ErrInvalid, c.Priority.Doorbell, c.Priority.MaxMasked)
	}
	if c.Workload.Iterations < 0 || c.Workload.PingPong < 0 {
		return fmt.Errorf("%w: workload counts must not be negative", ErrInvalid)
	}
	return nil
}

func (c Config) layout() hal.RouterLayout {
	return hal.RouterLayout{
		Base:         uintptr(c.Router.Base),
		Stride:       uintptr(c.Router.Stride),
		Generate:     uintptr(c.Router.Generate),
		Status:       uintptr(c.Router.Status),
		StatusStride: uintptr(c.Router.StatusStride),
		DoorbellBit:  c.Router.DoorbellBit,
	}
}

// Port returns the lock core's boot configuration.
func (c Config) Port() smp.Config {
	return smp.Config{
		Cores:        c.Cores,
		BarrierGate:  smp.GateID(c.Gates.Barrier),
		ISRGate:      smp.GateID(c.Gates.ISR),
		TaskGate:     smp.GateID(c.Gates.Task),
		MaxRecursion: c.MaxRecursion,
		MaxMasked:    smp.Priority(c.Priority.MaxMasked),
		Router:       c.layout(),
	}
}

// Host returns the simulator configuration.
func (c Config) Host() hal.Config {
	return hal.Config{Cores: c.Cores, Router: c.layout()}
}

func (c Config) App() app.Config {
	return app.Config{
		Iterations:       c.Workload.Iterations,
		PingPong:         c.Workload.PingPong,
		DoorbellPriority: c.Priority.Doorbell,
		Trace:            c.Trace,
	}
}
