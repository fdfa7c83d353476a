package app

import (
	"fmt"
	"strings"

	"smpcore/hal"
	"smpcore/kernel"
	"smpcore/smp"
)

func writeStack(l hal.Logger, stack []byte) {
	if len(stack) == 0 {
		l.WriteLineString("stack: unavailable")
		return
	}
	for _, line := range strings.Split(string(stack), "\n") {
		if line == "" {
			continue
		}
		l.WriteLineString(line)
	}
}

func installFaultHandler(p *smp.Port, l hal.Logger) {
	if l == nil {
		return
	}
	p.SetFaultHandler(func(f *smp.Fault) {
		l.WriteLineString(fmt.Sprintf("SMP Fault: core=%d reason=%s", f.Core, f.Reason))
		writeStack(l, f.Stack)
	})
}

func installPanicHandler(k *kernel.Kernel, l hal.Logger) {
	if l == nil {
		return
	}
	k.SetPanicHandler(func(info kernel.PanicInfo) {
		l.WriteLineString(fmt.Sprintf("Task Panic: core=%d task=%d panic=%v", info.Core, info.TaskID, info.Value))
		writeStack(l, info.Stack)
	})
}
