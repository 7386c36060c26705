package emulator

import (
	"bufio"
	"io"

	"github.com/dragan-mitrasinovic/RiscToolchain/cpu"
	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

// Terminal is the character device. Stores to term_out emit a byte on
// Output; input bytes arrive through Input, each raising a terminal
// interrupt and latching into term_in. The next byte is held back
// until the program reads term_in, so handlers never lose characters.
type Terminal struct {
	Input  io.Reader // Character source; may be nil.
	Output io.Writer // Character sink; may be nil.

	cpu  *cpu.Cpu
	in   chan byte
	last uint32
	full bool // term_in latched but not yet read
}

func (t *Terminal) attach(c *cpu.Cpu) {
	t.cpu = c
}

// pump feeds Input bytes into the poll channel until EOF.
func (t *Terminal) pump() {
	reader := bufio.NewReader(t.Input)
	for {
		value, err := reader.ReadByte()
		if err != nil {
			close(t.in)
			return
		}
		t.in <- value
	}
}

// poll latches at most one waiting input byte per cycle.
func (t *Terminal) poll() {
	if t.Input == nil {
		return
	}
	if t.in == nil {
		t.in = make(chan byte, 1)
		go t.pump()
	}
	if t.full {
		return
	}

	select {
	case value, ok := <-t.in:
		if ok {
			t.last = uint32(value)
			t.full = true
			t.cpu.Raise(isa.SRC_TERMINAL)
		}
	default:
	}
}

// Contains reports whether the terminal claims an address.
func (t *Terminal) Contains(addr uint32) bool {
	return addr == isa.TERM_OUT || addr == isa.TERM_IN
}

// Load reads a terminal register. Reading term_in acknowledges the
// latched byte and lets the next one in.
func (t *Terminal) Load(addr uint32) uint32 {
	if addr == isa.TERM_IN {
		t.full = false
		return t.last
	}
	return 0
}

// Store writes a terminal register; the low byte of a term_out store
// is emitted.
func (t *Terminal) Store(addr uint32, value uint32) {
	if addr == isa.TERM_OUT && t.Output != nil {
		t.Output.Write([]byte{byte(value)})
	}
}
