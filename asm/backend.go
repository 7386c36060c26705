package asm

import (
	"encoding/binary"

	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
	"github.com/dragan-mitrasinovic/RiscToolchain/obj"
)

// poolKey identifies one literal/symbol pool slot for deduplication.
// Either sym is set, or the slot holds the literal val.
type poolKey struct {
	sym string
	val uint32
}

type poolSlot struct {
	key    poolKey
	offset uint32
}

// section accumulates one output section across both passes. The pool
// sits word-aligned after the code; its offsets are assigned once the
// first pass has fixed the code size.
type section struct {
	name      string
	size      uint32
	pool      []poolSlot
	poolIndex map[poolKey]int
	data      []byte
	cursor    uint32
}

func (sec *section) intern(key poolKey) {
	if sec.poolIndex == nil {
		sec.poolIndex = map[poolKey]int{}
	}
	if _, ok := sec.poolIndex[key]; !ok {
		sec.poolIndex[key] = len(sec.pool)
		sec.pool = append(sec.pool, poolSlot{key: key})
	}
}

// backend carries the resolution state shared by the two passes.
type backend struct {
	unit *Unit

	secs   []*section
	secIdx map[string]*section
	cur    *section

	symbols []*obj.Symbol
	symIdx  map[string]*obj.Symbol
	globals []string

	// Labels defined at or before the current walk position. Rebuilt
	// by each pass so both resolve backward references identically.
	seen map[string]bool

	relocs  []obj.Reloc
	poolTab []obj.PoolEntry
}

// Assemble resolves an assembly unit into a relocatable object module.
// The first pass computes the layout only: section sizes, label
// offsets, and literal-pool slots. The second re-walks the same item
// sequence emitting bytes and relocation records.
func Assemble(unit *Unit) (mod *obj.Module, err error) {
	b := &backend{
		unit:   unit,
		secIdx: map[string]*section{},
		symIdx: map[string]*obj.Symbol{},
	}

	err = b.layoutPass()
	if err != nil {
		return
	}

	b.layoutPool()

	err = b.emitPass()
	if err != nil {
		return
	}

	return b.finalize()
}

// enter switches to a section, creating it on first use.
func (b *backend) enter(name string) *section {
	sec, ok := b.secIdx[name]
	if !ok {
		sec = &section{name: name}
		b.secIdx[name] = sec
		b.secs = append(b.secs, sec)
	}
	b.cur = sec
	return sec
}

// section returns the current section, defaulting to "text".
func (b *backend) section() *section {
	if b.cur == nil {
		b.enter("text")
	}
	return b.cur
}

func (b *backend) define(sym obj.Symbol) error {
	if b.symIdx[sym.Name] != nil {
		return ErrSymbolRedefined(sym.Name)
	}
	ref := &sym
	b.symIdx[sym.Name] = ref
	b.symbols = append(b.symbols, ref)
	return nil
}

// layoutPass assigns section-relative offsets, records label
// definitions, and interns pool slots. No bytes are produced, so
// forward references are permitted here.
func (b *backend) layoutPass() (err error) {
	b.cur = nil
	b.seen = map[string]bool{}

	for n := range b.unit.Items {
		it := &b.unit.Items[n]

		err = b.layoutItem(it)
		if err != nil {
			return &ErrSyntax{LineNo: it.LineNo, Line: it.Text, Err: err}
		}
		if it.Op == ".end" {
			break
		}
	}

	return
}

func (b *backend) layoutItem(it *Item) (err error) {
	for _, label := range it.Labels {
		sec := b.section()
		err = b.define(obj.Symbol{Name: label, Value: sec.size, Section: sec.name})
		if err != nil {
			return
		}
		b.seen[label] = true
	}

	ops := it.Operands

	switch it.Op {
	case "", ".end":
		// no layout
	case ".equ":
		if len(ops) != 2 || ops[0].Sym == "" {
			return ErrEquateSyntax
		}
		err = b.define(obj.Symbol{Name: ops[0].Sym, Value: ops[1].Value, Absolute: true})
		b.seen[ops[0].Sym] = true
	case ".section":
		var name string
		name, err = symOperand(ops)
		if err != nil {
			return
		}
		b.enter(name)
	case ".global":
		for _, od := range ops {
			if od.Mode != MODE_MEMDIR || od.Sym == "" {
				return ErrOperandInvalid
			}
			b.globals = append(b.globals, od.Sym)
		}
	case ".extern":
		for _, od := range ops {
			if od.Mode != MODE_MEMDIR || od.Sym == "" {
				return ErrOperandInvalid
			}
			err = b.define(obj.Symbol{Name: od.Sym, Binding: obj.BIND_EXTERN})
			if err != nil {
				return
			}
		}
	case ".word":
		if len(ops) == 0 {
			return ErrOperandCount
		}
		for _, od := range ops {
			if od.Mode != MODE_MEMDIR {
				return ErrOperandInvalid
			}
		}
		b.section().size += 4 * uint32(len(ops))
	case ".skip":
		if len(ops) != 1 || ops[0].Mode != MODE_MEMDIR || ops[0].Sym != "" {
			return ErrSkipInvalid
		}
		b.section().size += ops[0].Value
	default:
		sec := b.section()
		var pool *poolKey
		_, pool, err = b.encode(it, sec.size, false)
		if err != nil {
			return
		}
		if pool != nil {
			sec.intern(*pool)
		}
		sec.size += isa.CodeSize
	}

	return
}

// layoutPool fixes each section's pool base and slot offsets.
func (b *backend) layoutPool() {
	for _, sec := range b.secs {
		if len(sec.pool) == 0 {
			continue
		}
		base := (sec.size + 3) &^ 3
		for n := range sec.pool {
			sec.pool[n].offset = base + 4*uint32(n)
		}
		sec.size = base + 4*uint32(len(sec.pool))
	}
}

// emitPass re-walks the unit emitting bytes, consuming the layout the
// first pass produced. Unresolvable operands become relocation records.
func (b *backend) emitPass() (err error) {
	for _, sec := range b.secs {
		sec.data = make([]byte, sec.size)
		sec.cursor = 0
	}
	b.cur = nil
	b.seen = map[string]bool{}

	for n := range b.unit.Items {
		it := &b.unit.Items[n]

		err = b.emitItem(it)
		if err != nil {
			return &ErrSyntax{LineNo: it.LineNo, Line: it.Text, Err: err}
		}
		if it.Op == ".end" {
			break
		}
	}

	// Pool emission: literals inline, symbol slots as self-relative
	// words patched by the linker.
	for _, sec := range b.secs {
		for _, slot := range sec.pool {
			ent := obj.PoolEntry{Section: sec.name, Offset: slot.offset}
			if slot.key.sym != "" {
				ent.Symbol = slot.key.sym
				b.relocs = append(b.relocs, obj.Reloc{
					Section: sec.name,
					Offset:  slot.offset,
					Symbol:  slot.key.sym,
					Kind:    obj.PCREL32,
					Width:   4,
				})
			} else {
				ent.Value = slot.key.val
				binary.LittleEndian.PutUint32(sec.data[slot.offset:], slot.key.val)
			}
			b.poolTab = append(b.poolTab, ent)
		}
	}

	return
}

func (b *backend) emitItem(it *Item) (err error) {
	for _, label := range it.Labels {
		b.section()
		b.seen[label] = true
	}

	ops := it.Operands

	switch it.Op {
	case "", ".end", ".equ", ".global", ".extern":
		// no bytes
	case ".section":
		name, _ := symOperand(ops)
		b.enter(name)
	case ".word":
		sec := b.section()
		for _, od := range ops {
			if od.Sym != "" {
				b.relocs = append(b.relocs, obj.Reloc{
					Section: sec.name,
					Offset:  sec.cursor,
					Symbol:  od.Sym,
					Kind:    obj.ABS32,
					Width:   4,
				})
			} else {
				binary.LittleEndian.PutUint32(sec.data[sec.cursor:], od.Value)
			}
			sec.cursor += 4
		}
	case ".skip":
		b.section().cursor += ops[0].Value
	default:
		sec := b.section()
		var code isa.Code
		code, _, err = b.encode(it, sec.cursor, true)
		if err != nil {
			return
		}
		copy(sec.data[sec.cursor:], code.Bytes())
		sec.cursor += isa.CodeSize
	}

	return
}

// finalize promotes .global symbols, checks that every referenced
// symbol resolved, and packages the object module.
func (b *backend) finalize() (mod *obj.Module, err error) {
	for _, name := range b.globals {
		sym := b.symIdx[name]
		if sym == nil || !sym.Defined() {
			return nil, ErrSymbolUndefined(name)
		}
		sym.Binding = obj.BIND_GLOBAL
	}

	for n := range b.relocs {
		if b.symIdx[b.relocs[n].Symbol] == nil {
			return nil, ErrSymbolUndefined(b.relocs[n].Symbol)
		}
	}

	mod = &obj.Module{Name: b.unit.Name}
	for _, sec := range b.secs {
		mod.Sections = append(mod.Sections, obj.Section{Name: sec.name, Data: sec.data})
	}
	for _, sym := range b.symbols {
		mod.Symbols = append(mod.Symbols, *sym)
	}
	mod.Relocs = b.relocs
	mod.Pool = b.poolTab

	err = mod.Validate()
	if err != nil {
		return nil, err
	}

	return
}

// symOperand expects a single bare-symbol operand.
func symOperand(ops []Operand) (string, error) {
	if len(ops) != 1 || ops[0].Mode != MODE_MEMDIR || ops[0].Sym == "" {
		return "", ErrOperandInvalid
	}
	return ops[0].Sym, nil
}

func regOperand(od Operand) (isa.Reg, error) {
	if od.Mode != MODE_REGDIR {
		return 0, ErrOperandInvalid
	}
	return od.Reg, nil
}

var arithMap = map[string]isa.ArithOp{
	"add": isa.ARITH_ADD,
	"sub": isa.ARITH_SUB,
	"mul": isa.ARITH_MUL,
	"div": isa.ARITH_DIV,
}

var logicMap = map[string]isa.LogicOp{
	"and": isa.LOGIC_AND,
	"or":  isa.LOGIC_OR,
	"xor": isa.LOGIC_XOR,
}

var shiftMap = map[string]isa.ShiftOp{
	"shl": isa.SHIFT_SHL,
	"shr": isa.SHIFT_SHR,
}

var branchMap = map[string]isa.BranchCond{
	"beq": isa.BR_EQ,
	"bne": isa.BR_NE,
	"bgt": isa.BR_GT,
}

// encode translates one instruction at section offset site. During the
// layout pass (emit false) pool offsets are not yet known; the encoder
// only reports which pool slot the operand needs. Both passes make
// every other decision identically.
func (b *backend) encode(it *Item, site uint32, emit bool) (code isa.Code, pool *poolKey, err error) {
	ops := it.Operands

	expect := func(count int) bool {
		if len(ops) != count {
			err = ErrOperandCount
		}
		return err == nil
	}

	switch it.Op {
	case "halt":
		if expect(0) {
			code = isa.Make(isa.OC_HALT, 0, 0, 0, 0, 0)
		}
	case "int":
		if expect(0) {
			code = isa.Make(isa.OC_INT, 0, 0, 0, 0, 0)
		}
	case "iret":
		if expect(0) {
			code = isa.Make(isa.OC_IRET, 0, 0, 0, 0, 0)
		}
	case "ret":
		if expect(0) {
			code = isa.MakeLd(isa.LD_POP, isa.PC, isa.SP, 4)
		}
	case "push":
		if expect(1) {
			var reg isa.Reg
			reg, err = regOperand(ops[0])
			if err == nil {
				code = isa.MakeSt(isa.ST_PUSH, isa.SP, reg, -4)
			}
		}
	case "pop":
		if expect(1) {
			var reg isa.Reg
			reg, err = regOperand(ops[0])
			if err == nil {
				code = isa.MakeLd(isa.LD_POP, reg, isa.SP, 4)
			}
		}
	case "xchg":
		if expect(2) {
			var rb, rc isa.Reg
			rb, err = regOperand(ops[0])
			if err == nil {
				rc, err = regOperand(ops[1])
			}
			if err == nil {
				code = isa.Make(isa.OC_XCHG, 0, 0, rb, rc, 0)
			}
		}
	case "call", "jmp":
		if expect(1) {
			code, pool, err = b.ctrl(it.Op, isa.BR_ALWAYS, 0, 0, ops[0], site, emit)
		}
	case "beq", "bne", "bgt":
		if expect(3) {
			var rb, rc isa.Reg
			rb, err = regOperand(ops[0])
			if err == nil {
				rc, err = regOperand(ops[1])
			}
			if err == nil {
				code, pool, err = b.ctrl("jmp", branchMap[it.Op], rb, rc, ops[2], site, emit)
			}
		}
	case "add", "sub", "mul", "div":
		if expect(2) {
			var rs, rd isa.Reg
			rs, err = regOperand(ops[0])
			if err == nil {
				rd, err = regOperand(ops[1])
			}
			if err == nil {
				code = isa.Make(isa.OC_ARITH, int(arithMap[it.Op]), rd, rd, rs, 0)
			}
		}
	case "not":
		if expect(1) {
			var reg isa.Reg
			reg, err = regOperand(ops[0])
			if err == nil {
				code = isa.Make(isa.OC_LOGIC, int(isa.LOGIC_NOT), reg, reg, 0, 0)
			}
		}
	case "and", "or", "xor":
		if expect(2) {
			var rs, rd isa.Reg
			rs, err = regOperand(ops[0])
			if err == nil {
				rd, err = regOperand(ops[1])
			}
			if err == nil {
				code = isa.Make(isa.OC_LOGIC, int(logicMap[it.Op]), rd, rd, rs, 0)
			}
		}
	case "shl", "shr":
		if expect(2) {
			var rs, rd isa.Reg
			rs, err = regOperand(ops[0])
			if err == nil {
				rd, err = regOperand(ops[1])
			}
			if err == nil {
				code = isa.Make(isa.OC_SHIFT, int(shiftMap[it.Op]), rd, rd, rs, 0)
			}
		}
	case "ld":
		if expect(2) {
			var rd isa.Reg
			rd, err = regOperand(ops[1])
			if err == nil {
				code, pool, err = b.load(rd, ops[0], site, emit)
			}
		}
	case "st":
		if expect(2) {
			var rs isa.Reg
			rs, err = regOperand(ops[0])
			if err == nil {
				code, pool, err = b.store(rs, ops[1], site, emit)
			}
		}
	case "csrrd":
		if expect(2) {
			if ops[0].Mode != MODE_CSR {
				err = ErrOperandInvalid
				break
			}
			var rd isa.Reg
			rd, err = regOperand(ops[1])
			if err == nil {
				code = isa.Make(isa.OC_CSR, int(isa.CSR_RD), rd, isa.Reg(ops[0].Csr), 0, 0)
			}
		}
	case "csrwr":
		if expect(2) {
			if ops[1].Mode != MODE_CSR {
				err = ErrOperandInvalid
				break
			}
			var rs isa.Reg
			rs, err = regOperand(ops[0])
			if err == nil {
				code = isa.Make(isa.OC_CSR, int(isa.CSR_WR), isa.Reg(ops[1].Csr), rs, 0, 0)
			}
		}
	default:
		err = ErrMnemonicInvalid
	}

	return
}

// poolDisp computes the pc-relative displacement from the instruction
// at site to a pool slot.
func (b *backend) poolDisp(key poolKey, site uint32) (disp int32, err error) {
	sec := b.section()
	slot := sec.pool[sec.poolIndex[key]]
	disp = int32(slot.offset) - int32(site+isa.CodeSize)
	if !isa.DispFits(disp) {
		err = ErrDispRange
	}
	return
}

// ctrl encodes a call, jmp, or branch target operand. Backward
// references to labels in the current section encode as an inline
// pc-relative displacement; everything else symbolic goes through a
// pool slot with a PCREL32 relocation.
func (b *backend) ctrl(op string, cond isa.BranchCond, rb, rc isa.Reg, od Operand, site uint32, emit bool) (code isa.Code, pool *poolKey, err error) {
	oc := isa.OC_JMP
	if op == "call" {
		oc = isa.OC_CALL
	}

	switch od.Mode {
	case MODE_MEMDIR:
		if od.Sym != "" {
			sym := b.symIdx[od.Sym]
			if sym != nil && b.seen[od.Sym] && !sym.Absolute && sym.Section == b.section().name {
				disp := int32(sym.Value) - int32(site+isa.CodeSize)
				if isa.DispFits(disp) {
					code = isa.MakeCtrl(oc, cond, isa.CTRL_REG, isa.PC, rb, rc, disp)
					return
				}
			}
			pool = &poolKey{sym: od.Sym}
			if emit {
				var disp int32
				disp, err = b.poolDisp(*pool, site)
				code = isa.MakeCtrl(oc, cond, isa.CTRL_REL, isa.PC, rb, rc, disp)
			}
			return
		}
		if od.Value <= uint32(isa.DispMax) {
			code = isa.MakeCtrl(oc, cond, isa.CTRL_ABS, 0, rb, rc, int32(od.Value))
			return
		}
		pool = &poolKey{val: od.Value}
		if emit {
			var disp int32
			disp, err = b.poolDisp(*pool, site)
			code = isa.MakeCtrl(oc, cond, isa.CTRL_MEM, isa.PC, rb, rc, disp)
		}
	case MODE_REGDIR:
		code = isa.MakeCtrl(oc, cond, isa.CTRL_REG, od.Reg, rb, rc, 0)
	case MODE_REGIND:
		code = isa.MakeCtrl(oc, cond, isa.CTRL_MEM, od.Reg, rb, rc, 0)
	case MODE_REGOFF:
		disp := int32(od.Value)
		if !isa.DispFits(disp) {
			err = ErrDispRange
			return
		}
		code = isa.MakeCtrl(oc, cond, isa.CTRL_MEM, od.Reg, rb, rc, disp)
	default:
		err = ErrOperandInvalid
	}

	return
}

// load encodes the source operand of an ld instruction.
func (b *backend) load(rd isa.Reg, od Operand, site uint32, emit bool) (code isa.Code, pool *poolKey, err error) {
	switch od.Mode {
	case MODE_IMM:
		if od.Sym != "" {
			pool = &poolKey{sym: od.Sym}
			if emit {
				var disp int32
				disp, err = b.poolDisp(*pool, site)
				code = isa.MakeLd(isa.LD_LEA, rd, isa.PC, disp)
			}
			return
		}
		if isa.DispFits(int32(od.Value)) {
			code = isa.MakeLd(isa.LD_IMM, rd, 0, int32(od.Value))
			return
		}
		pool = &poolKey{val: od.Value}
		if emit {
			var disp int32
			disp, err = b.poolDisp(*pool, site)
			code = isa.MakeLd(isa.LD_MEM, rd, isa.PC, disp)
		}
	case MODE_REGDIR:
		code = isa.MakeLd(isa.LD_REG, rd, od.Reg, 0)
	case MODE_REGIND:
		code = isa.MakeLd(isa.LD_MEM, rd, od.Reg, 0)
	case MODE_REGOFF:
		disp := int32(od.Value)
		if !isa.DispFits(disp) {
			err = ErrDispRange
			return
		}
		code = isa.MakeLd(isa.LD_MEM, rd, od.Reg, disp)
	case MODE_MEMDIR:
		if od.Sym != "" {
			pool = &poolKey{sym: od.Sym}
			if emit {
				var disp int32
				disp, err = b.poolDisp(*pool, site)
				code = isa.MakeLd(isa.LD_REL, rd, isa.PC, disp)
			}
			return
		}
		pool = &poolKey{val: od.Value}
		if emit {
			var disp int32
			disp, err = b.poolDisp(*pool, site)
			code = isa.MakeLd(isa.LD_IND, rd, isa.PC, disp)
		}
	default:
		err = ErrOperandInvalid
	}

	return
}

// store encodes the destination operand of an st instruction.
// Immediate and register-direct destinations are not storable.
func (b *backend) store(rs isa.Reg, od Operand, site uint32, emit bool) (code isa.Code, pool *poolKey, err error) {
	switch od.Mode {
	case MODE_REGIND:
		code = isa.MakeSt(isa.ST_MEM, od.Reg, rs, 0)
	case MODE_REGOFF:
		disp := int32(od.Value)
		if !isa.DispFits(disp) {
			err = ErrDispRange
			return
		}
		code = isa.MakeSt(isa.ST_MEM, od.Reg, rs, disp)
	case MODE_MEMDIR:
		if od.Sym != "" {
			pool = &poolKey{sym: od.Sym}
			if emit {
				var disp int32
				disp, err = b.poolDisp(*pool, site)
				code = isa.MakeSt(isa.ST_REL, isa.PC, rs, disp)
			}
			return
		}
		pool = &poolKey{val: od.Value}
		if emit {
			var disp int32
			disp, err = b.poolDisp(*pool, site)
			code = isa.MakeSt(isa.ST_IND, isa.PC, rs, disp)
		}
	default:
		err = ErrOperandInvalid
	}

	return
}
