package kernel

import "smpcore/smp"

// PanicInfo contains details about a recovered task panic.
type PanicInfo struct {
	TaskID TaskID
	Core   smp.CoreID
	Value  any
	Stack  []byte
}

// InPanicMode reports whether a task has panicked.
func (k *Kernel) InPanicMode() bool {
	return k.panicked.Load()
}

// SetPanicHandler installs the kernel's panic handler.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	k.onPanic.Store(fn)
}

func (k *Kernel) triggerPanic(info PanicInfo) {
	k.panicOnce.Do(func() {
		k.panicked.Store(true)
		info.Stack = captureStack()
		if v := k.onPanic.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
