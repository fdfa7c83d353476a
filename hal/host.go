//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
)

// Host is the multi-core simulator used on development machines and in tests.
type Host struct {
	logger *hostLogger
	gates  *hostGates
	router *router
	cpus   []*HostCPU
}

// New returns a host HAL simulating cfg.Cores cores.
func New(cfg Config) *Host {
	return NewWithOutput(cfg, nil)
}

// NewWithOutput is New with the log written to w instead of stdout.
func NewWithOutput(cfg Config, w io.Writer) *Host {
	if cfg.Cores <= 0 {
		cfg.Cores = 1
	}
	h := &Host{
		logger: newHostLogger(w),
		gates:  &hostGates{},
	}
	h.router = newRouter(cfg.Router, cfg.Cores, func(target int) {
		h.cpus[target].Raise(LineDoorbell)
	})
	h.cpus = make([]*HostCPU, cfg.Cores)
	for i := range h.cpus {
		h.cpus[i] = newHostCPU(i, h)
	}
	return h
}

func (h *Host) Logger() Logger { return h.logger }
func (h *Host) Gates() Gates   { return h.gates }
func (h *Host) Cores() int     { return len(h.cpus) }

// CPU returns the register view of simulated core i.
func (h *Host) CPU(core int) CPU { return h.cpus[core] }

// Core returns simulated core i with its instrumentation.
func (h *Host) Core(core int) *HostCPU { return h.cpus[core] }

// GateStats implements GateMonitor.
func (h *Host) GateStats(id uint8) GateStats { return h.gates.GateStats(id) }

// RunCores runs fn on one goroutine per simulated core.
//
// A panic on a core is recovered and returned as that core's error, so a
// fatal assertion on one core stops the whole simulation.
func (h *Host) RunCores(ctx context.Context, fn func(ctx context.Context, cpu CPU) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range h.cpus {
		c := c
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = coreError(c.id, r)
				}
			}()
			return fn(ctx, c)
		})
	}
	return g.Wait()
}

// CoreError is returned by RunCores when a core panics.
type CoreError struct {
	Core  int
	Value any
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("core %d: %v", e.Core, e.Value)
}

func (e *CoreError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func coreError(core int, v any) error {
	return &CoreError{Core: core, Value: v}
}

// ErrBusFault is the panic value for accesses outside any mapped register.
var ErrBusFault = errors.New("bus fault")

var coreColors = []string{"\x1b[36m", "\x1b[32m", "\x1b[33m", "\x1b[34m", "\x1b[35m", "\x1b[31m"}

type hostLogger struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

func newHostLogger(w io.Writer) *hostLogger {
	if w != nil {
		return &hostLogger{w: w}
	}
	return &hostLogger{
		w:     colorable.NewColorableStdout(),
		color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// lineCore returns the core named by a "cpuN:" prefix, or -1.
func lineCore(s string) int {
	if !strings.HasPrefix(s, "cpu") || len(s) < 5 || s[4] != ':' {
		return -1
	}
	if s[3] < '0' || s[3] > '9' {
		return -1
	}
	return int(s[3] - '0')
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if core := lineCore(s); l.color && core >= 0 {
		fmt.Fprintf(l.w, "%s%s\x1b[0m\n", coreColors[core%len(coreColors)], s)
		return
	}
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.WriteLineString(string(b))
}
