package emulator

import (
	"github.com/dragan-mitrasinovic/RiscToolchain/cpu"
	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

// timerPeriods maps the tim_cfg selector to the interrupt period in
// cycles.
var timerPeriods = [8]int{
	500,
	1000,
	1500,
	2000,
	5000,
	10000,
	30000,
	60000,
}

// Timer is the periodic interrupt source. A store to tim_cfg selects a
// period and arms the countdown; each expiry raises a timer interrupt
// and reloads.
type Timer struct {
	cpu   *cpu.Cpu
	cfg   uint32
	count int
	armed bool
}

func (t *Timer) attach(c *cpu.Cpu) {
	t.cpu = c
}

// step advances the countdown by one cycle.
func (t *Timer) step() {
	if !t.armed {
		return
	}
	t.count -= 1
	if t.count <= 0 {
		t.cpu.Raise(isa.SRC_TIMER)
		t.count = timerPeriods[t.cfg]
	}
}

// Contains reports whether the timer claims an address.
func (t *Timer) Contains(addr uint32) bool {
	return addr == isa.TIM_CFG
}

// Load reads back the period selector.
func (t *Timer) Load(addr uint32) uint32 {
	return t.cfg
}

// Store selects a period and arms the timer.
func (t *Timer) Store(addr uint32, value uint32) {
	t.cfg = value & 7
	t.count = timerPeriods[t.cfg]
	t.armed = true
}
