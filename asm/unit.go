package asm

import (
	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

// Mode is an operand addressing mode.
type Mode int

const (
	MODE_IMM    = Mode(0) // $x
	MODE_REGDIR = Mode(1) // %rN
	MODE_REGIND = Mode(2) // [%rN]
	MODE_REGOFF = Mode(3) // [%rN + off]
	MODE_MEMDIR = Mode(4) // x
	MODE_CSR    = Mode(5) // %status, %handler, %cause
)

var modeNames = [6]string{"imm", "regdir", "regind", "regoff", "memdir", "csr"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "mode?"
	}
	return modeNames[m]
}

// Operand is one parsed operand. Sym is set for symbolic values, with
// Value holding the numeric value or register offset otherwise.
type Operand struct {
	Mode  Mode
	Reg   isa.Reg
	Csr   isa.Csr
	Sym   string
	Value uint32
}

// Item is one source line of the assembly unit: its labels and its
// directive or instruction, if any.
type Item struct {
	LineNo   int
	Text     string
	Labels   []string
	Op       string
	Operands []Operand
}

// Unit is the ordered assembly unit the backend consumes. The front
// end guarantees operands are syntactically valid; the backend owns
// all symbol and layout resolution.
type Unit struct {
	Name  string
	Items []Item
}
