package hal

import (
	"fmt"
	"sync/atomic"
)

// RouterLayout places the inter-core interrupt router's register matrix.
//
// Each target core owns a block of Stride bytes starting at
// Base + target*Stride. Inside the block sits one generate register at
// Generate and one status register per source core at
// Status + source*StatusStride.
type RouterLayout struct {
	Base         uintptr
	Stride       uintptr
	Generate     uintptr
	Status       uintptr
	StatusStride uintptr
	DoorbellBit  uint8
}

// GenerateAddr returns the address of the generate register for target.
func (l RouterLayout) GenerateAddr(target int) uintptr {
	return l.Base + uintptr(target)*l.Stride + l.Generate
}

// StatusAddr returns the address of the (target, source) status register.
func (l RouterLayout) StatusAddr(target, source int) uintptr {
	return l.Base + uintptr(target)*l.Stride + l.Status + uintptr(source)*l.StatusStride
}

// Check reports whether the layout can address cores targets without
// registers overlapping.
func (l RouterLayout) Check(cores int) error {
	if l.Stride == 0 {
		return fmt.Errorf("router: zero stride")
	}
	if l.StatusStride < 4 {
		return fmt.Errorf("router: status stride %d below register width", l.StatusStride)
	}
	if l.DoorbellBit >= 32 {
		return fmt.Errorf("router: doorbell bit %d out of range", l.DoorbellBit)
	}
	if l.Generate%4 != 0 || l.Status%4 != 0 || l.StatusStride%4 != 0 || l.Base%4 != 0 {
		return fmt.Errorf("router: registers must be word aligned")
	}
	statusEnd := l.Status + uintptr(cores)*l.StatusStride
	if l.Generate+4 > l.Stride || statusEnd > l.Stride {
		return fmt.Errorf("router: registers overflow the %#x byte stride", l.Stride)
	}
	if l.Generate >= l.Status && l.Generate < statusEnd {
		return fmt.Errorf("router: generate register overlaps the status block")
	}
	return nil
}

type routerReg uint8

const (
	regNone routerReg = iota
	regGenerate
	regStatus
)

// router is the register matrix behind RouterLayout. Writing the doorbell bit
// into a generate register latches the writing core into the target's status
// register for that source, rings the target, and self-clears.
type router struct {
	layout RouterLayout
	cores  int

	generate []atomic.Uint32
	status   []atomic.Uint32

	ring func(target int)
}

func newRouter(layout RouterLayout, cores int, ring func(target int)) *router {
	return &router{
		layout:   layout,
		cores:    cores,
		generate: make([]atomic.Uint32, cores),
		status:   make([]atomic.Uint32, cores*cores),
		ring:     ring,
	}
}

func (r *router) decode(addr uintptr) (reg routerReg, target, source int) {
	l := r.layout
	if addr < l.Base || addr%4 != 0 {
		return regNone, 0, 0
	}
	off := addr - l.Base
	target = int(off / l.Stride)
	if target >= r.cores {
		return regNone, 0, 0
	}
	off %= l.Stride
	if off == l.Generate {
		return regGenerate, target, 0
	}
	if off < l.Status {
		return regNone, 0, 0
	}
	off -= l.Status
	if off%l.StatusStride != 0 {
		return regNone, 0, 0
	}
	source = int(off / l.StatusStride)
	if source >= r.cores {
		return regNone, 0, 0
	}
	return regStatus, target, source
}

func (r *router) contains(addr uintptr) bool {
	reg, _, _ := r.decode(addr)
	return reg != regNone
}

func (r *router) load(addr uintptr) uint32 {
	switch reg, target, source := r.decode(addr); reg {
	case regGenerate:
		return r.generate[target].Load()
	case regStatus:
		return r.status[target*r.cores+source].Load()
	}
	return 0
}

func (r *router) store(master int, addr uintptr, v uint32) {
	switch reg, target, source := r.decode(addr); reg {
	case regGenerate:
		bit := uint32(1) << r.layout.DoorbellBit
		if v&bit == 0 {
			r.generate[target].Store(v)
			return
		}
		st := &r.status[target*r.cores+master]
		for {
			old := st.Load()
			if st.CompareAndSwap(old, old|1<<master) {
				break
			}
		}
		r.generate[target].Store(v &^ bit)
		if r.ring != nil {
			r.ring(target)
		}
	case regStatus:
		r.status[target*r.cores+source].Store(v)
	}
}
