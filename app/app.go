// Package app wires the lock core, the kernel and the demo workloads
// together for both the simulator and the board.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"smpcore/hal"
	"smpcore/internal/lockorder"
	"smpcore/kernel"
	"smpcore/smp"
)

// ErrLostUpdate is returned when the shared counter misses increments.
var ErrLostUpdate = errors.New("app: lost update on shared counter")

// Config selects the workload.
type Config struct {
	// Iterations is how many times each core bumps the shared counter.
	Iterations int
	// PingPong is how many turns each side of the cross-core pair takes.
	PingPong int
	// DoorbellPriority is the reschedule interrupt priority.
	DoorbellPriority uint8
	Trace            bool
}

func DefaultConfig() Config {
	return Config{
		Iterations:       1000,
		PingPong:         100,
		DoorbellPriority: 0xE0,
	}
}

// counterBatch bounds how many increments a counter task makes per step.
const counterBatch = 64

// sharedCounter is guarded by the task-level critical section.
type sharedCounter struct {
	value uint64
}

type counterTask struct {
	shared *sharedCounter
	want   int
	done   int
}

func (t *counterTask) Step(ctx *kernel.Context) {
	for i := 0; i < counterBatch && t.done < t.want; i++ {
		ctx.EnterCritical()
		t.shared.value++
		ctx.ExitCritical()
		t.done++
		if ctx.YieldPending() {
			break
		}
	}
	if t.done == t.want {
		ctx.Exit()
	}
}

// pingPongTask takes a turn whenever the shared turn word names it, then
// hands the turn to its peer.
type pingPongTask struct {
	turn   *atomic.Int32
	side   int32
	peer   *kernel.TaskID
	rounds int
	hits   int
}

func (t *pingPongTask) Step(ctx *kernel.Context) {
	ctx.EnterCritical()
	mine := t.turn.Load() == t.side
	if mine {
		t.hits++
		t.turn.Store(1 - t.side)
	}
	ctx.ExitCritical()

	if mine {
		ctx.Ready(*t.peer)
		if t.hits == t.rounds {
			ctx.Exit()
			return
		}
	}
	ctx.Block()
}

// Run boots the port on h, runs the workload on every configured core and
// returns what happened.
func Run(ctx context.Context, h hal.HAL, portCfg smp.Config, cfg Config) (Report, error) {
	bootDiagStart(h)
	bootDiagSetStep("port")

	port, err := smp.New(h, portCfg)
	if err != nil {
		return Report{}, err
	}
	log := h.Logger()
	installFaultHandler(port, log)

	k := kernel.New(port, log, kernel.Config{
		DoorbellPriority: cfg.DoorbellPriority,
		Trace:            cfg.Trace,
	})
	installPanicHandler(k, log)

	bootDiagSetStep("tasks")
	counter := &sharedCounter{}
	for core := 0; core < portCfg.Cores; core++ {
		if cfg.Iterations == 0 {
			break
		}
		if _, err := k.AddTask(smp.CoreID(core), &counterTask{shared: counter, want: cfg.Iterations}); err != nil {
			return Report{}, err
		}
	}

	var ping, pong *pingPongTask
	if cfg.PingPong > 0 {
		var turn atomic.Int32
		var pingID, pongID kernel.TaskID
		ping = &pingPongTask{turn: &turn, side: 0, peer: &pongID, rounds: cfg.PingPong}
		pong = &pingPongTask{turn: &turn, side: 1, peer: &pingID, rounds: cfg.PingPong}
		if pingID, err = k.AddTask(0, ping); err != nil {
			return Report{}, err
		}
		if pongID, err = k.AddTask(smp.CoreID(portCfg.Cores-1), pong); err != nil {
			return Report{}, err
		}
	}

	bootDiagSetStep("run")
	start := time.Now()
	runErr := h.RunCores(ctx, k.RunCore)
	bootDiagSetStep("report")

	r := Report{
		Cores:       portCfg.Cores,
		Counter:     counter.value,
		WantCounter: uint64(portCfg.Cores) * uint64(cfg.Iterations),
		Elapsed:     time.Since(start),
		Gates: []GateReport{
			{Name: "barrier", Gate: portCfg.BarrierGate, Stats: port.GateStats(portCfg.BarrierGate)},
			{Name: "isr", Gate: portCfg.ISRGate, Stats: port.GateStats(portCfg.ISRGate)},
			{Name: "task", Gate: portCfg.TaskGate, Stats: port.GateStats(portCfg.TaskGate)},
		},
		LockOrder: lockorder.Summary(lockorder.FromOrder(port.LockOrder())),
	}
	if ping != nil {
		r.PingPong = min(ping.hits, pong.hits)
	}
	for core := 0; core < portCfg.Cores; core++ {
		r.PerCore = append(r.PerCore, CoreReport{
			Steps:     k.Steps(smp.CoreID(core)),
			Doorbells: k.Doorbells(smp.CoreID(core)),
		})
	}

	if runErr != nil {
		return r, runErr
	}
	if r.Counter != r.WantCounter {
		return r, fmt.Errorf("%w: counter %d, want %d", ErrLostUpdate, r.Counter, r.WantCounter)
	}
	return r, nil
}
