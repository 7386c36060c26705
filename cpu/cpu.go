package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"

	"github.com/dragan-mitrasinovic/RiscToolchain/internal"
	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

// Device is a memory-mapped peripheral. Word accesses whose address a
// device claims bypass memory.
type Device interface {
	// Contains reports whether the device claims an address.
	Contains(addr uint32) bool
	// Load reads a device register.
	Load(addr uint32) uint32
	// Store writes a device register.
	Store(addr uint32, value uint32)
}

// Cpu is the virtual processor state. It is owned by a single
// execution loop; devices may only call Raise between cycles.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Gpr [16]uint32            // General registers; r14 is sp, r15 is pc.
	Csr [isa.CSR_COUNT]uint32 // status, handler, cause.
	Mem Memory                // Byte-addressable memory space.

	Devices []Device // Memory-mapped peripherals.

	Halted bool // Terminal state; set by the halt instruction.
	Ticks  int  // Executed instruction count.

	pending uint32 // Pending interrupt sources, one bit per id.
}

// New creates a processor reset to the default entry point.
func New() (c *Cpu) {
	c = &Cpu{}
	c.Reset(isa.START)
	return
}

// Reset clears the register files and restarts execution at entry with
// a fresh stack and interrupts enabled. Memory contents are preserved;
// the loader owns them.
func (c *Cpu) Reset(entry uint32) {
	clear(c.Gpr[:])
	clear(c.Csr[:])
	c.Gpr[isa.SP] = isa.STACK_TOP
	c.Gpr[isa.PC] = entry
	c.Csr[isa.CSR_STATUS] = isa.STATUS_ENABLE
	c.Halted = false
	c.Ticks = 0
	c.pending = 0
}

// Raise marks an interrupt source pending. The source stays pending
// until the cycle boundary at which it is delivered.
func (c *Cpu) Raise(src isa.IntSource) {
	c.pending |= 1 << uint(src)
}

// Pending reports whether a source is raised but not yet delivered.
func (c *Cpu) Pending(src isa.IntSource) bool {
	return c.pending&(1<<uint(src)) != 0
}

func (c *Cpu) loadWord(addr uint32) uint32 {
	for _, dev := range c.Devices {
		if dev.Contains(addr) {
			return dev.Load(addr)
		}
	}
	return c.Mem.Read32(addr)
}

func (c *Cpu) storeWord(addr uint32, value uint32) {
	for _, dev := range c.Devices {
		if dev.Contains(addr) {
			dev.Store(addr, value)
			return
		}
	}
	c.Mem.Write32(addr, value)
}

func (c *Cpu) push(value uint32) {
	c.Gpr[isa.SP] -= 4
	c.storeWord(c.Gpr[isa.SP], value)
}

func (c *Cpu) pop() (value uint32) {
	value = c.loadWord(c.Gpr[isa.SP])
	c.Gpr[isa.SP] += 4
	return
}

// deliver transfers control to the handler: status and pc are pushed
// as the interrupt frame, the cause CSR takes the source id, and
// further asynchronous delivery is masked until iret restores status.
func (c *Cpu) deliver(src isa.IntSource) {
	if c.Verbose {
		log.Printf("cpu: interrupt %v", src)
	}

	c.push(c.Csr[isa.CSR_STATUS])
	c.push(c.Gpr[isa.PC])
	c.Csr[isa.CSR_CAUSE] = uint32(src)
	c.Csr[isa.CSR_STATUS] &^= isa.STATUS_ENABLE
	c.Gpr[isa.PC] = c.Csr[isa.CSR_HANDLER]
}

// sourceMask maps an asynchronous source to its status mask bit.
var sourceMask = map[isa.IntSource]uint32{
	isa.SRC_TIMER:    isa.STATUS_TIMER_MASK,
	isa.SRC_TERMINAL: isa.STATUS_TERMINAL_MASK,
}

// sample delivers at most one unmasked pending interrupt. Masked
// sources stay pending for a later cycle.
func (c *Cpu) sample() {
	if c.Csr[isa.CSR_STATUS]&isa.STATUS_ENABLE == 0 {
		return
	}

	for _, src := range []isa.IntSource{isa.SRC_TIMER, isa.SRC_TERMINAL} {
		if !c.Pending(src) {
			continue
		}
		if c.Csr[isa.CSR_STATUS]&sourceMask[src] != 0 {
			continue
		}
		c.pending &^= 1 << uint(src)
		c.deliver(src)
		return
	}
}

// Tick runs one cycle: one interrupt-delivery check, then one
// fetch-decode-execute step.
func (c *Cpu) Tick() (err error) {
	if c.Halted {
		return ErrHalted
	}

	c.sample()

	at := c.Gpr[isa.PC]
	var buf [isa.CodeSize]byte
	for n := range buf {
		buf[n] = c.Mem.Read8(at + uint32(n))
	}
	code := isa.Decode(buf[:])
	c.Gpr[isa.PC] = at + isa.CodeSize

	if c.Verbose {
		log.Printf("%08x: %v", at, code)
	}

	err = c.Execute(code)
	if err != nil {
		return errors.Join(&ErrFault{Addr: at, Code: code}, err)
	}

	c.Ticks += 1

	return
}

// target resolves a control-transfer operand form.
func (c *Cpu) target(form isa.CtrlForm, code isa.Code) (addr uint32) {
	disp := uint32(code.Disp())
	switch form {
	case isa.CTRL_ABS:
		addr = disp
	case isa.CTRL_REG:
		addr = c.Gpr[code.A()] + disp
	case isa.CTRL_REL:
		ea := c.Gpr[code.A()] + disp
		addr = ea + c.loadWord(ea)
	case isa.CTRL_MEM:
		addr = c.loadWord(c.Gpr[code.A()] + disp)
	}
	return
}

// Execute runs a single decoded instruction.
func (c *Cpu) Execute(code isa.Code) (err error) {
	disp := uint32(code.Disp())
	a, b, cc := code.A(), code.B(), code.C()

	switch code.Oc() {
	case isa.OC_HALT:
		c.Halted = true

	case isa.OC_INT:
		c.deliver(isa.SRC_SOFTWARE)

	case isa.OC_IRET:
		c.Gpr[isa.PC] = c.pop()
		c.Csr[isa.CSR_STATUS] = c.pop()

	case isa.OC_CALL:
		_, form := code.CtrlDecode()
		addr := c.target(form, code)
		c.push(c.Gpr[isa.PC])
		c.Gpr[isa.PC] = addr

	case isa.OC_JMP:
		cond, form := code.CtrlDecode()
		taken := true
		switch cond {
		case isa.BR_EQ:
			taken = c.Gpr[b] == c.Gpr[cc]
		case isa.BR_NE:
			taken = c.Gpr[b] != c.Gpr[cc]
		case isa.BR_GT:
			taken = int32(c.Gpr[b]) > int32(c.Gpr[cc])
		}
		if taken {
			c.Gpr[isa.PC] = c.target(form, code)
		}

	case isa.OC_XCHG:
		c.Gpr[b], c.Gpr[cc] = c.Gpr[cc], c.Gpr[b]

	case isa.OC_ARITH:
		bv, cv := c.Gpr[b], c.Gpr[cc]
		switch isa.ArithOp(code.Mod() & 3) {
		case isa.ARITH_ADD:
			c.Gpr[a] = bv + cv
		case isa.ARITH_SUB:
			c.Gpr[a] = bv - cv
		case isa.ARITH_MUL:
			c.Gpr[a] = bv * cv
		case isa.ARITH_DIV:
			if cv == 0 {
				// Recoverable: routed through the interrupt
				// mechanism, destination untouched.
				c.deliver(isa.SRC_SOFTWARE)
			} else {
				c.Gpr[a] = bv / cv
			}
		}

	case isa.OC_LOGIC:
		switch isa.LogicOp(code.Mod() & 3) {
		case isa.LOGIC_NOT:
			c.Gpr[a] = ^c.Gpr[b]
		case isa.LOGIC_AND:
			c.Gpr[a] = c.Gpr[b] & c.Gpr[cc]
		case isa.LOGIC_OR:
			c.Gpr[a] = c.Gpr[b] | c.Gpr[cc]
		case isa.LOGIC_XOR:
			c.Gpr[a] = c.Gpr[b] ^ c.Gpr[cc]
		}

	case isa.OC_SHIFT:
		count := c.Gpr[cc] & 0x1f // clamp to 31 bits of shift
		if isa.ShiftOp(code.Mod()&1) == isa.SHIFT_SHL {
			c.Gpr[a] = c.Gpr[b] << count
		} else {
			c.Gpr[a] = c.Gpr[b] >> count
		}

	case isa.OC_ST:
		switch isa.StMode(code.Mod() & 3) {
		case isa.ST_MEM:
			c.storeWord(c.Gpr[a]+disp, c.Gpr[cc])
		case isa.ST_REL:
			ea := c.Gpr[a] + disp
			c.storeWord(ea+c.loadWord(ea), c.Gpr[cc])
		case isa.ST_PUSH:
			c.Gpr[a] += disp
			c.storeWord(c.Gpr[a], c.Gpr[cc])
		case isa.ST_IND:
			c.storeWord(c.loadWord(c.Gpr[a]+disp), c.Gpr[cc])
		}

	case isa.OC_LD:
		switch isa.LdMode(code.Mod()) {
		case isa.LD_IMM:
			c.Gpr[a] = disp
		case isa.LD_REG:
			c.Gpr[a] = c.Gpr[b] + disp
		case isa.LD_MEM:
			c.Gpr[a] = c.loadWord(c.Gpr[b] + disp)
		case isa.LD_REL:
			ea := c.Gpr[b] + disp
			c.Gpr[a] = c.loadWord(ea + c.loadWord(ea))
		case isa.LD_LEA:
			ea := c.Gpr[b] + disp
			c.Gpr[a] = ea + c.loadWord(ea)
		case isa.LD_POP:
			value := c.loadWord(c.Gpr[b])
			c.Gpr[b] += disp
			c.Gpr[a] = value
		case isa.LD_IND:
			c.Gpr[a] = c.loadWord(c.loadWord(c.Gpr[b] + disp))
		default:
			err = ErrOpcodeDecode
		}

	case isa.OC_CSR:
		if isa.CsrMode(code.Mod()&1) == isa.CSR_RD {
			if int(b) >= isa.CSR_COUNT {
				return ErrCsrInvalid
			}
			c.Gpr[a] = c.Csr[b]
		} else {
			if int(a) >= isa.CSR_COUNT {
				return ErrCsrInvalid
			}
			c.Csr[a] = c.Gpr[b]
		}

	default:
		err = ErrOpcodeDecode
	}

	return
}

func (c *Cpu) gprSeq() iter.Seq2[string, uint32] {
	return func(yield func(string, uint32) bool) {
		for n := range c.Gpr {
			if !yield(isa.Reg(n).String(), c.Gpr[n]) {
				return
			}
		}
	}
}

func (c *Cpu) csrSeq() iter.Seq2[string, uint32] {
	return func(yield func(string, uint32) bool) {
		for n := range c.Csr {
			if !yield(isa.Csr(n).String(), c.Csr[n]) {
				return
			}
		}
	}
}

// Dump iterates the register files in reporting order: r0..r15, then
// the CSRs.
func (c *Cpu) Dump() iter.Seq2[string, uint32] {
	return internal.IterSeq2Concat(c.gprSeq(), c.csrSeq())
}

// String returns the current processor state as a string.
func (c *Cpu) String() (text string) {
	for name, value := range c.Dump() {
		text += fmt.Sprintf("% 7s: %08x\n", name, value)
	}
	return
}
