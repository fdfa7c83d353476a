package smp

import "fmt"

// Fault describes a violated invariant. Faults are fatal: the port panics
// with the *Fault after the fault handler has run.
type Fault struct {
	Core   CoreID
	Gate   GateID
	Reason string
	Stack  []byte
}

func (f *Fault) Error() string {
	if f.Gate == NoGate {
		return fmt.Sprintf("smp fault: core %d: %s", f.Core, f.Reason)
	}
	return fmt.Sprintf("smp fault: core %d gate %d: %s", f.Core, f.Gate, f.Reason)
}

// SetFaultHandler installs the port's fault handler.
//
// The handler is invoked at most once (on the first fault). It must not panic.
func (p *Port) SetFaultHandler(fn func(*Fault)) {
	p.faultHandler.Store(fn)
}

// Faulted reports whether an invariant has been violated.
func (p *Port) Faulted() bool {
	return p.faulted.Load()
}

func (p *Port) fatal(core CoreID, gate GateID, reason string) {
	f := &Fault{Core: core, Gate: gate, Reason: reason}
	p.faultOnce.Do(func() {
		p.faulted.Store(true)
		f.Stack = captureStack()
		if p.log != nil {
			p.log.WriteLineString(fmt.Sprintf("cpu%d: %v", core, f))
		}
		if v := p.faultHandler.Load(); v != nil {
			if fn, ok := v.(func(*Fault)); ok && fn != nil {
				fn(f)
			}
		}
	})
	panic(f)
}
