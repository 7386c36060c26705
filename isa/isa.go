// Package isa defines the instruction-set and platform contract shared
// by the assembler, the linker, and the emulator: the instruction word
// encoding, the register and CSR files, the status bits, the interrupt
// sources, and the memory-mapped device addresses.
package isa

// Reg is a general-purpose register index.
type Reg int

const (
	R0  = Reg(0)  // r0
	R1  = Reg(1)  // r1
	R2  = Reg(2)  // r2
	R3  = Reg(3)  // r3
	R4  = Reg(4)  // r4
	R5  = Reg(5)  // r5
	R6  = Reg(6)  // r6
	R7  = Reg(7)  // r7
	R8  = Reg(8)  // r8
	R9  = Reg(9)  // r9
	R10 = Reg(10) // r10
	R11 = Reg(11) // r11
	R12 = Reg(12) // r12
	R13 = Reg(13) // r13
	SP  = Reg(14) // sp
	PC  = Reg(15) // pc
)

var regNames = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "r13", "sp", "pc",
}

func (r Reg) String() string {
	if r < 0 || int(r) >= len(regNames) {
		return "r?"
	}
	return regNames[r]
}

// Csr is a control/status register index.
type Csr int

const (
	CSR_STATUS  = Csr(0) // status
	CSR_HANDLER = Csr(1) // handler
	CSR_CAUSE   = Csr(2) // cause

	CSR_COUNT = 3
)

var csrNames = [CSR_COUNT]string{"status", "handler", "cause"}

func (c Csr) String() string {
	if c < 0 || int(c) >= len(csrNames) {
		return "csr?"
	}
	return csrNames[c]
}

// Status register bits. A set mask bit suppresses that source; the
// enable bit gates all asynchronous delivery.
const (
	STATUS_TIMER_MASK    = uint32(1 << 0) // Timer interrupts masked.
	STATUS_TERMINAL_MASK = uint32(1 << 1) // Terminal interrupts masked.
	STATUS_ENABLE        = uint32(1 << 2) // Global interrupt enable.
)

// IntSource identifies an interrupt source. The numeric value is what
// interrupt delivery writes into the cause CSR.
type IntSource int

const (
	SRC_TIMER    = IntSource(2) // timer
	SRC_TERMINAL = IntSource(3) // terminal
	SRC_SOFTWARE = IntSource(4) // software
)

func (src IntSource) String() string {
	switch src {
	case SRC_TIMER:
		return "timer"
	case SRC_TERMINAL:
		return "terminal"
	case SRC_SOFTWARE:
		return "software"
	}
	return "src?"
}

// Memory-mapped device registers. The addresses are a convention only;
// the processor enforces no region boundaries.
const (
	TERM_OUT = uint32(0xFFFFFF00) // Terminal output register.
	TERM_IN  = uint32(0xFFFFFF04) // Terminal input register.
	TIM_CFG  = uint32(0xFFFFFF10) // Timer period selector.
)

// Default placement and reset values.
const (
	START     = uint32(0x40000000) // Default program entry point.
	STACK_TOP = uint32(0xFFFFFF00) // Initial stack pointer, grows down.
)
