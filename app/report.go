package app

import (
	"fmt"
	"time"

	"smpcore/hal"
	"smpcore/smp"
)

type GateReport struct {
	Name  string
	Gate  smp.GateID
	Stats smp.GateStats
}

type CoreReport struct {
	Steps     uint64
	Doorbells uint64
}

// Report summarizes one run.
type Report struct {
	Cores       int
	Counter     uint64
	WantCounter uint64
	// PingPong is the number of complete cross-core round trips.
	PingPong int
	PerCore  []CoreReport
	Gates    []GateReport
	// LockOrder summarizes the gate acquisition order seen during the run.
	LockOrder string
	Elapsed   time.Duration
}

// Lines renders r for a line logger.
func (r Report) Lines() []string {
	lines := []string{
		fmt.Sprintf("cores: %d  elapsed: %s", r.Cores, r.Elapsed.Round(time.Microsecond)),
		fmt.Sprintf("counter: %d/%d", r.Counter, r.WantCounter),
		fmt.Sprintf("pingpong: %d rounds", r.PingPong),
	}
	for i, c := range r.PerCore {
		lines = append(lines, fmt.Sprintf("cpu%d: steps=%d doorbells=%d", i, c.Steps, c.Doorbells))
	}
	for _, g := range r.Gates {
		lines = append(lines, fmt.Sprintf("gate %2d %-7s acquired=%d recursive=%d contended=%d",
			g.Gate, g.Name, g.Stats.Acquired, g.Stats.Recursive, g.Stats.Contended))
	}
	if r.LockOrder != "" {
		lines = append(lines, r.LockOrder)
	}
	return lines
}

// Print writes r to l.
func (r Report) Print(l hal.Logger) {
	if l == nil {
		return
	}
	for _, line := range r.Lines() {
		l.WriteLineString(line)
	}
}
