package smp

import (
	"testing"

	"smpcore/hal"
)

func TestRequestRescheduleLatchesSource(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))
	r := p.Config().Router

	c1.RequestReschedule(0)

	if !h.Core(0).Pending(hal.LineDoorbell) {
		t.Fatal("doorbell not pending on target")
	}
	if h.Core(1).Pending(hal.LineDoorbell) {
		t.Fatal("doorbell pending on the requesting core")
	}
	if got := c0.CPU().Load32(r.StatusAddr(0, 1)); got != 1<<1 {
		t.Fatalf("status = %#x, want %#x", got, 1<<1)
	}
	if got := c0.CPU().Load32(r.GenerateAddr(0)); got != 0 {
		t.Fatalf("generate = %#x, want self-cleared", got)
	}
	if !c0.RescheduleRequested(1, 0) {
		t.Fatal("RescheduleRequested(1, 0) = false, want true")
	}
	if c0.RescheduleRequested(0, 0) {
		t.Fatal("RescheduleRequested(0, 0) = true, want false")
	}
}

func TestRequestRescheduleIsIdempotent(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))

	taken := 0
	h.Core(1).SetHandler(hal.LineDoorbell, 0xE0, func() {
		taken++
		saved := c1.EnterCriticalFromISR()
		c1.Acknowledge(0, 1)
		c1.ExitCriticalFromISR(saved)
	})

	c0.RequestReschedule(1)
	c0.RequestReschedule(1)
	c0.RequestReschedule(1)
	if got := c1.CPU().Load32(p.Config().Router.StatusAddr(1, 0)); got != 1 {
		t.Fatalf("status after three requests = %#x, want 0x1", got)
	}

	h.Core(1).Poll()
	if taken != 1 {
		t.Fatalf("handler taken %d times, want 1", taken)
	}
	if c1.RescheduleRequested(0, 1) {
		t.Fatal("request survived acknowledgement")
	}

	c0.RequestReschedule(1)
	h.Core(1).Poll()
	if taken != 2 {
		t.Fatalf("handler taken %d times after a fresh request, want 2", taken)
	}
}

func TestAcknowledgeLeavesOtherSources(t *testing.T) {
	p, h := newTestPort(t, 3)
	c0 := p.Bind(h.CPU(0))
	c1 := p.Bind(h.CPU(1))
	c2 := p.Bind(h.CPU(2))

	c1.RequestReschedule(0)
	c2.RequestReschedule(0)
	c0.Acknowledge(1, 0)

	if c0.RescheduleRequested(1, 0) {
		t.Fatal("acknowledged request from core 1 still set")
	}
	if !c0.RescheduleRequested(2, 0) {
		t.Fatal("request from core 2 lost")
	}
}

func TestRequestRescheduleSelf(t *testing.T) {
	p, h := newTestPort(t, 2)
	c0 := p.Bind(h.CPU(0))

	c0.RequestReschedule(0)
	if !h.Core(0).Pending(hal.LineDoorbell) {
		t.Fatal("self request did not ring core 0")
	}
	if !c0.RescheduleRequested(0, 0) {
		t.Fatal("RescheduleRequested(0, 0) = false, want true")
	}
}

func TestSignalTargetOutOfRangeFaults(t *testing.T) {
	p, h := newTestPort(t, 2)
	c := p.Bind(h.CPU(0))

	f := expectFault(t, "core out of range", func() { c.RequestReschedule(2) })
	if f.Gate != NoGate {
		t.Fatalf("fault gate = %d, want NoGate", f.Gate)
	}
	expectFault(t, "core out of range", func() { c.Acknowledge(0, 5) })
}
