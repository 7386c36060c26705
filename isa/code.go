package isa

import (
	"encoding/binary"
	"fmt"
)

// Code is a single 32-bit instruction word:
//
//	bits 31..28  opcode class
//	bits 27..24  modifier
//	bits 23..20  register field A
//	bits 19..16  register field B
//	bits 15..12  register field C
//	bits 11..0   signed displacement
//
// Words are stored little-endian in memory.
type Code uint32

// CodeSize is the fixed instruction width in bytes.
const CodeSize = 4

// CodeClass is an opcode class.
type CodeClass int

const (
	OC_HALT  = CodeClass(0x0) // halt
	OC_INT   = CodeClass(0x1) // int
	OC_IRET  = CodeClass(0x2) // iret
	OC_CALL  = CodeClass(0x3) // call
	OC_JMP   = CodeClass(0x4) // jmp
	OC_XCHG  = CodeClass(0x5) // xchg
	OC_ARITH = CodeClass(0x6) // arith
	OC_LOGIC = CodeClass(0x7) // logic
	OC_SHIFT = CodeClass(0x8) // shift
	OC_ST    = CodeClass(0x9) // st
	OC_LD    = CodeClass(0xA) // ld
	OC_CSR   = CodeClass(0xB) // csr
)

var classNames = map[CodeClass]string{
	OC_HALT: "halt", OC_INT: "int", OC_IRET: "iret", OC_CALL: "call",
	OC_JMP: "jmp", OC_XCHG: "xchg", OC_ARITH: "arith", OC_LOGIC: "logic",
	OC_SHIFT: "shift", OC_ST: "st", OC_LD: "ld", OC_CSR: "csr",
}

func (oc CodeClass) String() string {
	name, ok := classNames[oc]
	if !ok {
		return "oc?"
	}
	return name
}

// CtrlForm selects how call/jmp/branch instructions compute their
// target. It occupies the low two bits of the modifier.
type CtrlForm int

const (
	CTRL_ABS = CtrlForm(0) // abs: target = disp
	CTRL_REG = CtrlForm(1) // reg: target = r[a] + disp
	CTRL_REL = CtrlForm(2) // rel: EA = r[a] + disp; target = EA + m32[EA]
	CTRL_MEM = CtrlForm(3) // mem: target = m32[r[a] + disp]
)

// BranchCond selects the branch condition of a jmp-class instruction.
// It occupies the high two bits of the modifier; zero is unconditional.
type BranchCond int

const (
	BR_ALWAYS = BranchCond(0) // jmp
	BR_EQ     = BranchCond(1) // beq
	BR_NE     = BranchCond(2) // bne
	BR_GT     = BranchCond(3) // bgt
)

var branchNames = [4]string{"jmp", "beq", "bne", "bgt"}

// ArithOp is an arithmetic modifier: r[a] = r[b] op r[c].
type ArithOp int

const (
	ARITH_ADD = ArithOp(0) // add
	ARITH_SUB = ArithOp(1) // sub
	ARITH_MUL = ArithOp(2) // mul
	ARITH_DIV = ArithOp(3) // div
)

// LogicOp is a logical modifier. NOT uses only r[b].
type LogicOp int

const (
	LOGIC_NOT = LogicOp(0) // not
	LOGIC_AND = LogicOp(1) // and
	LOGIC_OR  = LogicOp(2) // or
	LOGIC_XOR = LogicOp(3) // xor
)

// ShiftOp is a shift modifier; counts are masked to 5 bits.
type ShiftOp int

const (
	SHIFT_SHL = ShiftOp(0) // shl
	SHIFT_SHR = ShiftOp(1) // shr
)

// StMode is a store addressing variant.
type StMode int

const (
	ST_MEM  = StMode(0) // m32[r[a]+disp] = r[c]
	ST_REL  = StMode(1) // EA = r[a]+disp; m32[EA + m32[EA]] = r[c]
	ST_PUSH = StMode(2) // r[a] += disp; m32[r[a]] = r[c]
	ST_IND  = StMode(3) // m32[m32[r[a]+disp]] = r[c]
)

// LdMode is a load addressing variant.
type LdMode int

const (
	LD_IMM = LdMode(0) // r[a] = disp
	LD_REG = LdMode(1) // r[a] = r[b] + disp
	LD_MEM = LdMode(2) // r[a] = m32[r[b] + disp]
	LD_REL = LdMode(3) // EA = r[b]+disp; r[a] = m32[EA + m32[EA]]
	LD_LEA = LdMode(4) // EA = r[b]+disp; r[a] = EA + m32[EA]
	LD_POP = LdMode(5) // r[a] = m32[r[b]]; r[b] += disp
	LD_IND = LdMode(6) // r[a] = m32[m32[r[b] + disp]]
)

// CsrMode selects CSR read or write.
type CsrMode int

const (
	CSR_RD = CsrMode(0) // r[a] = csr[b]
	CSR_WR = CsrMode(1) // csr[a] = r[b]
)

// DispMin and DispMax bound the signed 12-bit displacement field.
const (
	DispMin = -2048
	DispMax = 2047
)

// DispFits reports whether a value is encodable as a displacement.
func DispFits(v int32) bool {
	return v >= DispMin && v <= DispMax
}

// Make assembles an instruction word from its raw fields. The
// displacement is truncated to 12 bits.
func Make(oc CodeClass, mod int, a, b, c Reg, disp int32) Code {
	return Code(uint32(oc&0xf)<<28 | uint32(mod&0xf)<<24 |
		uint32(a&0xf)<<20 | uint32(b&0xf)<<16 | uint32(c&0xf)<<12 |
		uint32(disp)&0xfff)
}

// MakeCtrl assembles a call or jmp-class instruction. Call ignores the
// condition; branch comparisons read r[b] and r[c].
func MakeCtrl(oc CodeClass, cond BranchCond, form CtrlForm, a, b, c Reg, disp int32) Code {
	return Make(oc, int(cond)<<2|int(form), a, b, c, disp)
}

// MakeLd assembles a load-class instruction.
func MakeLd(mode LdMode, a, b Reg, disp int32) Code {
	return Make(OC_LD, int(mode), a, b, 0, disp)
}

// MakeSt assembles a store-class instruction.
func MakeSt(mode StMode, a, c Reg, disp int32) Code {
	return Make(OC_ST, int(mode), a, 0, c, disp)
}

// Oc returns the opcode class.
func (code Code) Oc() CodeClass {
	return CodeClass((code >> 28) & 0xf)
}

// Mod returns the raw modifier field.
func (code Code) Mod() int {
	return int((code >> 24) & 0xf)
}

// A returns register field A.
func (code Code) A() Reg {
	return Reg((code >> 20) & 0xf)
}

// B returns register field B.
func (code Code) B() Reg {
	return Reg((code >> 16) & 0xf)
}

// C returns register field C.
func (code Code) C() Reg {
	return Reg((code >> 12) & 0xf)
}

// Disp returns the sign-extended displacement.
func (code Code) Disp() int32 {
	return int32(uint32(code)<<20) >> 20
}

// CtrlDecode splits the modifier of a call/jmp-class word.
func (code Code) CtrlDecode() (cond BranchCond, form CtrlForm) {
	mod := code.Mod()
	return BranchCond(mod >> 2), CtrlForm(mod & 3)
}

// Bytes returns the little-endian memory representation of the word.
func (code Code) Bytes() []byte {
	var buf [CodeSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(code))
	return buf[:]
}

// Decode reads one little-endian instruction word.
func Decode(buf []byte) Code {
	return Code(binary.LittleEndian.Uint32(buf))
}

var ctrlFormNames = [4]string{"abs", "reg", "rel", "mem"}
var arithNames = [4]string{"add", "sub", "mul", "div"}
var logicNames = [4]string{"not", "and", "or", "xor"}
var shiftNames = [2]string{"shl", "shr"}
var stNames = [4]string{"mem", "rel", "push", "ind"}
var ldNames = [7]string{"imm", "reg", "mem", "rel", "lea", "pop", "ind"}

// String returns a decoded rendition of the word for logging.
func (code Code) String() (out string) {
	oc := code.Oc()
	mod := code.Mod()

	var str string
	switch oc {
	case OC_HALT, OC_INT, OC_IRET:
		str = oc.String()
	case OC_CALL:
		_, form := code.CtrlDecode()
		str = fmt.Sprintf("call.%v %v%+d", ctrlFormNames[form], code.A(), code.Disp())
	case OC_JMP:
		cond, form := code.CtrlDecode()
		str = fmt.Sprintf("%v.%v %v %v %v%+d",
			branchNames[cond], ctrlFormNames[form], code.B(), code.C(), code.A(), code.Disp())
	case OC_XCHG:
		str = fmt.Sprintf("xchg %v %v", code.B(), code.C())
	case OC_ARITH:
		str = fmt.Sprintf("%v %v %v %v", arithNames[mod&3], code.A(), code.B(), code.C())
	case OC_LOGIC:
		str = fmt.Sprintf("%v %v %v %v", logicNames[mod&3], code.A(), code.B(), code.C())
	case OC_SHIFT:
		str = fmt.Sprintf("%v %v %v %v", shiftNames[mod&1], code.A(), code.B(), code.C())
	case OC_ST:
		str = fmt.Sprintf("st.%v %v %v%+d", stNames[mod&3], code.C(), code.A(), code.Disp())
	case OC_LD:
		name := "ld?"
		if mod < len(ldNames) {
			name = ldNames[mod]
		}
		str = fmt.Sprintf("ld.%v %v %v%+d", name, code.A(), code.B(), code.Disp())
	case OC_CSR:
		if CsrMode(mod&1) == CSR_RD {
			str = fmt.Sprintf("csrrd %v %v", code.A(), Csr(code.B()))
		} else {
			str = fmt.Sprintf("csrwr %v %v", Csr(code.A()), code.B())
		}
	default:
		str = "oc?"
	}

	out = fmt.Sprintf("%08x %v", uint32(code), str)

	return
}
