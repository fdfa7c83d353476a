// Package kernel is a small cooperative scheduler that runs one loop per
// core. Tasks are pinned to a core; readying a task that lives on another
// core rings that core's doorbell.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"smpcore/hal"
	"smpcore/smp"
)

const maxTasks = 32

type TaskID uint8

// Task is a cooperative unit of execution.
type Task interface {
	Step(*Context)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(*Context)

func (f TaskFunc) Step(ctx *Context) { f(ctx) }

var (
	ErrTooManyTasks = errors.New("kernel: task table full")
	ErrBadCore      = errors.New("kernel: core out of range")
)

type taskState uint8

const (
	taskQueued taskState = iota
	taskRunning
	taskBlocked
	taskExited
)

type task struct {
	task  Task
	core  smp.CoreID
	state taskState
	// woken records a Ready that arrived while the task was running.
	woken bool
}

type coreState struct {
	yield     atomic.Bool
	doorbells atomic.Uint64
	steps     atomic.Uint64
}

// Config tunes the kernel.
type Config struct {
	// DoorbellPriority is the priority the reschedule interrupt is
	// installed at. Critical sections must mask it.
	DoorbellPriority uint8
	// Trace logs every doorbell and task exit.
	Trace bool
}

// Kernel is shared by every core. Task and run queue state is guarded by the
// port's task-level critical section.
type Kernel struct {
	port *smp.Port
	log  hal.Logger
	cfg  Config

	tasks     [maxTasks]task
	taskCount TaskID
	queues    [smp.MaxCores]runQueue
	live      atomic.Int32

	cores [smp.MaxCores]coreState

	panicked  atomic.Bool
	panicOnce sync.Once
	onPanic   atomic.Value // func(PanicInfo)
}

// New creates a kernel on top of port.
func New(port *smp.Port, log hal.Logger, cfg Config) *Kernel {
	return &Kernel{port: port, log: log, cfg: cfg}
}

// AddTask registers t on core. Tasks start runnable. AddTask must be called
// before any core enters RunCore.
func (k *Kernel) AddTask(core smp.CoreID, t Task) (TaskID, error) {
	if int(core) >= k.port.Config().Cores {
		return 0, fmt.Errorf("%w: %d", ErrBadCore, core)
	}
	if k.taskCount >= maxTasks {
		return 0, ErrTooManyTasks
	}
	id := k.taskCount
	k.taskCount++
	k.tasks[id] = task{task: t, core: core, state: taskQueued}
	k.queues[core].push(id)
	k.live.Add(1)
	return id, nil
}

// Live returns the number of tasks that have not exited.
func (k *Kernel) Live() int { return int(k.live.Load()) }

// Doorbells returns how many reschedule interrupts core has taken.
func (k *Kernel) Doorbells(core smp.CoreID) uint64 { return k.cores[core].doorbells.Load() }

// Steps returns how many task steps core has run.
func (k *Kernel) Steps(core smp.CoreID) uint64 { return k.cores[core].steps.Load() }

// Ready makes a blocked task runnable. If it lives on another core, that
// core is asked to reschedule.
func (k *Kernel) Ready(c *smp.Core, id TaskID) {
	if id >= k.taskCount {
		return
	}
	st := &k.tasks[id]

	wake := false
	c.EnterCritical()
	switch st.state {
	case taskBlocked:
		st.state = taskQueued
		k.queues[st.core].push(id)
		wake = true
	case taskRunning:
		st.woken = true
	}
	c.ExitCritical()

	if wake && st.core != c.CurrentCore() {
		c.RequestReschedule(st.core)
	}
}

// Step runs at most one task step from c's run queue and reports whether it
// ran one.
func (k *Kernel) Step(c *smp.Core) bool {
	core := c.CurrentCore()

	c.EnterCritical()
	id, ok := k.queues[core].pop()
	if ok {
		k.tasks[id].state = taskRunning
		k.tasks[id].woken = false
	}
	c.ExitCritical()
	if !ok {
		return false
	}

	st := &k.tasks[id]
	ctx := &Context{k: k, c: c, taskID: id}
	k.run(ctx, st.task)
	// The task may have parked and resumed elsewhere.
	core = c.CurrentCore()
	k.cores[core].steps.Add(1)

	c.EnterCritical()
	switch {
	case ctx.exited:
		st.state = taskExited
	case ctx.blocked && !st.woken:
		st.state = taskBlocked
	default:
		st.state = taskQueued
		k.queues[core].push(id)
	}
	c.ExitCritical()

	if ctx.exited {
		k.trace(core, "task %d exited", id)
		if k.live.Add(-1) == 0 {
			k.wakeAll(c)
		}
	}
	return true
}

// run steps t. A task that panics is retired; faults from the lock core are
// not recovered.
func (k *Kernel) run(ctx *Context, t Task) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if f, ok := r.(*smp.Fault); ok {
			panic(f)
		}
		// Drop whatever sections and gates the task left open.
		ctx.c.Unwind()
		ctx.exited = true
		k.triggerPanic(PanicInfo{TaskID: ctx.taskID, Core: ctx.c.CurrentCore(), Value: r})
	}()
	t.Step(ctx)
}

// wakeAll rings every other core so idle loops notice the kernel is done.
func (k *Kernel) wakeAll(c *smp.Core) {
	self := c.CurrentCore()
	for i := 0; i < k.port.Config().Cores; i++ {
		if smp.CoreID(i) != self {
			c.RequestReschedule(smp.CoreID(i))
		}
	}
}

// doorbell runs in interrupt context on the core that took the interrupt.
func (k *Kernel) doorbell(c *smp.Core) {
	core := c.CurrentCore()
	saved := c.EnterCriticalFromISR()
	for src := 0; src < k.port.Config().Cores; src++ {
		if c.RescheduleRequested(smp.CoreID(src), core) {
			c.Acknowledge(smp.CoreID(src), core)
		}
	}
	c.ExitCriticalFromISR(saved)

	k.cores[core].doorbells.Add(1)
	k.cores[core].yield.Store(true)
	k.trace(core, "doorbell")
}

// RunCore runs the scheduler loop for one core until every task has exited
// or ctx is cancelled. Every configured core must run it: the loops meet at a
// rendezvous before the first step.
func (k *Kernel) RunCore(ctx context.Context, cpu hal.CPU) error {
	c := k.port.Bind(cpu)
	cpu.SetHandler(hal.LineDoorbell, k.cfg.DoorbellPriority, func() { k.doorbell(c) })
	c.Rendezvous()

	for {
		if k.live.Load() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		k.cores[c.CurrentCore()].yield.Store(false)
		if k.Step(c) {
			cpu.Poll()
			continue
		}
		cpu.Wait()
	}
}

func (k *Kernel) trace(core smp.CoreID, format string, args ...any) {
	if !k.cfg.Trace || k.log == nil {
		return
	}
	k.log.WriteLineString(fmt.Sprintf("cpu%d: "+format, append([]any{core}, args...)...))
}
