package hal

import "testing"

func testLayout() RouterLayout {
	return RouterLayout{
		Base:         0xA000_0000,
		Stride:       0x100,
		Generate:     0x10,
		Status:       0x20,
		StatusStride: 4,
		DoorbellBit:  0,
	}
}

func TestRouterLayoutAddresses(t *testing.T) {
	l := testLayout()

	if got, want := l.GenerateAddr(1), uintptr(0xA000_0110); got != want {
		t.Fatalf("GenerateAddr(1) = %#x, want %#x", got, want)
	}
	if got, want := l.StatusAddr(1, 0), uintptr(0xA000_0120); got != want {
		t.Fatalf("StatusAddr(1, 0) = %#x, want %#x", got, want)
	}
	if got, want := l.StatusAddr(0, 3), uintptr(0xA000_002C); got != want {
		t.Fatalf("StatusAddr(0, 3) = %#x, want %#x", got, want)
	}
}

func TestRouterLayoutCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RouterLayout)
		cores  int
		ok     bool
	}{
		{name: "default", mutate: func(*RouterLayout) {}, cores: 4, ok: true},
		{name: "zero stride", mutate: func(l *RouterLayout) { l.Stride = 0 }, cores: 2},
		{name: "status overflows stride", mutate: func(l *RouterLayout) { l.Stride = 0x24 }, cores: 2},
		{name: "generate inside status", mutate: func(l *RouterLayout) { l.Generate = 0x24 }, cores: 2},
		{name: "unaligned", mutate: func(l *RouterLayout) { l.Generate = 0x11 }, cores: 2},
		{name: "doorbell bit", mutate: func(l *RouterLayout) { l.DoorbellBit = 32 }, cores: 2},
		{name: "narrow status stride", mutate: func(l *RouterLayout) { l.StatusStride = 2 }, cores: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayout()
			tt.mutate(&l)
			err := l.Check(tt.cores)
			if (err == nil) != tt.ok {
				t.Fatalf("Check(%d) err = %v, want ok=%v", tt.cores, err, tt.ok)
			}
		})
	}
}

func TestRouterDecode(t *testing.T) {
	r := newRouter(testLayout(), 2, nil)

	tests := []struct {
		addr   uintptr
		reg    routerReg
		target int
		source int
	}{
		{addr: 0xA000_0010, reg: regGenerate, target: 0},
		{addr: 0xA000_0110, reg: regGenerate, target: 1},
		{addr: 0xA000_0124, reg: regStatus, target: 1, source: 1},
		{addr: 0xA000_0128, reg: regNone},
		{addr: 0xA000_0210, reg: regNone},
		{addr: 0x9FFF_FFFC, reg: regNone},
		{addr: 0xA000_0012, reg: regNone},
	}
	for _, tt := range tests {
		reg, target, source := r.decode(tt.addr)
		if reg != tt.reg || target != tt.target || source != tt.source {
			t.Fatalf("decode(%#x) = (%d, %d, %d), want (%d, %d, %d)",
				tt.addr, reg, target, source, tt.reg, tt.target, tt.source)
		}
	}
}

func TestRouterGenerateLatchesSource(t *testing.T) {
	l := testLayout()
	var rung []int
	r := newRouter(l, 2, func(target int) { rung = append(rung, target) })

	r.store(0, l.GenerateAddr(1), 1<<l.DoorbellBit)

	if got := r.load(l.GenerateAddr(1)); got != 0 {
		t.Fatalf("generate after ring = %#x, want self-cleared 0", got)
	}
	if got := r.load(l.StatusAddr(1, 0)); got != 1 {
		t.Fatalf("status(1, 0) = %#x, want 0x1", got)
	}
	if got := r.load(l.StatusAddr(1, 1)); got != 0 {
		t.Fatalf("status(1, 1) = %#x, want 0", got)
	}
	if len(rung) != 1 || rung[0] != 1 {
		t.Fatalf("rung = %v, want [1]", rung)
	}
}

func TestRouterStoreWithoutDoorbellDoesNotRing(t *testing.T) {
	l := testLayout()
	rings := 0
	r := newRouter(l, 2, func(int) { rings++ })

	r.store(1, l.GenerateAddr(0), 1<<4)

	if rings != 0 {
		t.Fatalf("rings = %d, want 0", rings)
	}
	if got := r.load(l.GenerateAddr(0)); got != 1<<4 {
		t.Fatalf("generate = %#x, want %#x", got, 1<<4)
	}
}
