//go:build tinygo && !rp2350

package hal

import (
	"context"
	"os"
)

// Board names the target this HAL was built for.
const Board = "unsupported"

// consoleLogger writes to the runtime console; it is the only output a target
// without a port is known to have.
type consoleLogger struct{}

func (consoleLogger) WriteLineString(s string) {
	os.Stdout.WriteString(s)
	os.Stdout.WriteString("\r\n")
}

func (consoleLogger) WriteLineBytes(b []byte) {
	os.Stdout.Write(b)
	os.Stdout.WriteString("\r\n")
}

type stubHAL struct{}

// New returns a HAL with no cores for targets without a port. Anything that
// needs a core reports ErrNotImplemented.
func New(cfg Config) HAL {
	_ = cfg
	return stubHAL{}
}

func (stubHAL) Logger() Logger   { return consoleLogger{} }
func (stubHAL) Gates() Gates     { return nil }
func (stubHAL) Cores() int       { return 0 }
func (stubHAL) CPU(core int) CPU { return nil }
func (stubHAL) RunCores(ctx context.Context, fn func(ctx context.Context, cpu CPU) error) error {
	return ErrNotImplemented
}
