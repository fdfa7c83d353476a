package kernel

import "smpcore/smp"

// Context provides task-local access to kernel operations.
type Context struct {
	k      *Kernel
	c      *smp.Core
	taskID TaskID

	blocked bool
	exited  bool
}

// TaskID returns the current task ID.
func (c *Context) TaskID() TaskID { return c.taskID }

// Core returns the core the task runs on.
func (c *Context) Core() smp.CoreID { return c.c.CurrentCore() }

// SMP returns the lock core as seen from the task's core.
func (c *Context) SMP() *smp.Core { return c.c }

// Block parks the task after this step until something readies it.
func (c *Context) Block() { c.blocked = true }

// Exit retires the task after this step.
func (c *Context) Exit() { c.exited = true }

// Ready makes task id runnable.
func (c *Context) Ready(id TaskID) { c.k.Ready(c.c, id) }

// YieldPending reports whether a doorbell arrived since the core last picked
// a task. Long steps should return early when it is set.
func (c *Context) YieldPending() bool {
	return c.k.cores[c.c.CurrentCore()].yield.Load()
}

func (c *Context) EnterCritical() { c.c.EnterCritical() }
func (c *Context) ExitCritical()  { c.c.ExitCritical() }
