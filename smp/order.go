package smp

import (
	"math/bits"
	"sync/atomic"
)

// noteOrder records that gate was claimed while every gate in held was
// already owned by the claiming core.
func (p *Port) noteOrder(held uint32, gate GateID) {
	for held != 0 {
		a := bits.TrailingZeros32(held)
		held &= held - 1
		orUint32(&p.order[a], 1<<gate)
	}
}

func orUint32(w *atomic.Uint32, bit uint32) {
	for {
		old := w.Load()
		if old&bit != 0 || w.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

// LockOrder returns the observed acquisition order: bit b of entry a is set
// when some core claimed gate b while it held gate a. Re-entry does not count.
func (p *Port) LockOrder() [NumGates]uint32 {
	var out [NumGates]uint32
	for i := range out {
		out[i] = p.order[i].Load()
	}
	return out
}
