//go:build tinygo && rp2350

package hal

import (
	"context"
	"device/arm"
	"device/rp"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Board names the target this HAL was built for.
const Board = "rp2350"

const (
	sioBase           uintptr = 0xd0000000
	sioCPUID                  = sioBase + 0x000
	sioSpinlockST             = sioBase + 0x05c
	sioSpinlock0              = sioBase + 0x100
	sioDoorbellOutSet         = sioBase + 0x180
	sioDoorbellInSet          = sioBase + 0x188
	sioDoorbellInClr          = sioBase + 0x18c

	// Gates live on the upper half of the 32 SIO spinlocks; the SDK and the
	// TinyGo runtime use the lower half.
	firstGateSpinlock = 16

	rp2350Cores = 2

	sioDoorbell = 1 << 0
)

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

type tinyGoHAL struct {
	logger *uartLogger
	gates  sioGates
	cpu    *rp2350CPU
}

// New returns the RP2350 HAL.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. The router matrix is kept
// in RAM and rings the target core through the SIO doorbells.
func New(cfg Config) HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	cores := cfg.Cores
	if cores <= 0 || cores > rp2350Cores {
		cores = rp2350Cores
	}
	c := &rp2350CPU{cores: cores}
	c.router = newRouter(cfg.Router, cores, c.ring)
	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		cpu:    c,
	}
}

func (h *tinyGoHAL) Logger() Logger { return h.logger }
func (h *tinyGoHAL) Gates() Gates   { return h.gates }
func (h *tinyGoHAL) Cores() int     { return h.cpu.cores }

// CPU returns the banked register view; it is the same for every core.
func (h *tinyGoHAL) CPU(core int) CPU { return h.cpu }

func (h *tinyGoHAL) RunCores(ctx context.Context, fn func(ctx context.Context, cpu CPU) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < h.cpu.cores; i++ {
		g.Go(func() error { return fn(ctx, h.cpu) })
	}
	return g.Wait()
}

type sioGates struct{}

func (sioGates) TryAcquire(id uint8) bool {
	// Reading a spinlock register claims it; zero means another core holds it.
	return reg(sioSpinlock0+uintptr(firstGateSpinlock+uint32(id))*4).Get() != 0
}

func (sioGates) Release(id uint8) {
	reg(sioSpinlock0 + uintptr(firstGateSpinlock+uint32(id))*4).Set(1)
}

func (sioGates) Peek(id uint8) uint32 {
	return (reg(sioSpinlockST).Get() >> (firstGateSpinlock + uint32(id))) & 1
}

var doorbellHandlers [rp2350Cores]func()

func handleDoorbell(interrupt.Interrupt) {
	reg(sioDoorbellInClr).Set(sioDoorbell)
	if fn := doorbellHandlers[reg(sioCPUID).Get()]; fn != nil {
		fn()
	}
}

type rp2350CPU struct {
	cores  int
	router *router
}

func (c *rp2350CPU) ID() uint32 { return reg(sioCPUID).Get() }

func (c *rp2350CPU) Ceiling() uint8 {
	return uint8(arm.AsmFull("mrs {}, basepri", nil))
}

func (c *rp2350CPU) SetCeiling(level uint8) {
	arm.AsmFull("msr basepri, {level}", map[string]interface{}{
		"level": uint32(level),
	})
}

func (c *rp2350CPU) DisableInterrupts() IRQState {
	return IRQState(interrupt.Disable())
}

func (c *rp2350CPU) RestoreInterrupts(s IRQState) {
	interrupt.Restore(interrupt.State(s))
}

func (c *rp2350CPU) Fence() { arm.Asm("dmb") }
func (c *rp2350CPU) Relax() { arm.Asm("nop") }

func (c *rp2350CPU) Load32(addr uintptr) uint32 {
	if c.router.contains(addr) {
		return c.router.load(addr)
	}
	return reg(addr).Get()
}

func (c *rp2350CPU) Store32(addr uintptr, v uint32) {
	if c.router.contains(addr) {
		c.router.store(int(c.ID()), addr, v)
		return
	}
	reg(addr).Set(v)
}

func (c *rp2350CPU) ring(target int) {
	if uint32(target) == c.ID() {
		reg(sioDoorbellInSet).Set(sioDoorbell)
		return
	}
	reg(sioDoorbellOutSet).Set(sioDoorbell)
}

// SetHandler enables the doorbell on the calling core's NVIC.
func (c *rp2350CPU) SetHandler(line Line, priority uint8, fn func()) {
	if line != LineDoorbell {
		panic(ErrNotImplemented)
	}
	doorbellHandlers[c.ID()] = fn
	intr := interrupt.New(rp.IRQ_SIO_IRQ_BELL, handleDoorbell)
	intr.SetPriority(priority)
	intr.Enable()
}

// Poll is a no-op: the NVIC takes interrupts as soon as the mask allows.
func (c *rp2350CPU) Poll() {}

func (c *rp2350CPU) Wait() { arm.Asm("wfi") }
