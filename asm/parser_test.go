package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

func parseOne(t *testing.T, line string) Item {
	require := require.New(t)

	parser := &Parser{}
	unit, err := parser.Parse("test", strings.NewReader(line))
	require.NoError(err)
	require.Len(unit.Items, 1)

	return unit.Items[0]
}

func TestParseOperands(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		line string
		want []Operand
	}){
		{"imm_num", "ld $42, %r1",
			[]Operand{{Mode: MODE_IMM, Value: 42}, {Mode: MODE_REGDIR, Reg: isa.R1}}},
		{"imm_hex", "ld $0xff, %r1",
			[]Operand{{Mode: MODE_IMM, Value: 0xff}, {Mode: MODE_REGDIR, Reg: isa.R1}}},
		{"imm_neg", "ld $-1, %r1",
			[]Operand{{Mode: MODE_IMM, Value: 0xffffffff}, {Mode: MODE_REGDIR, Reg: isa.R1}}},
		{"imm_invert", "ld $~0xf, %r1",
			[]Operand{{Mode: MODE_IMM, Value: 0xfffffff0}, {Mode: MODE_REGDIR, Reg: isa.R1}}},
		{"imm_sym", "ld $value, %r2",
			[]Operand{{Mode: MODE_IMM, Sym: "value"}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"memdir_sym", "ld value, %r2",
			[]Operand{{Mode: MODE_MEMDIR, Sym: "value"}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"memdir_num", "ld 0x1000, %r2",
			[]Operand{{Mode: MODE_MEMDIR, Value: 0x1000}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"regind", "ld [%r3], %r2",
			[]Operand{{Mode: MODE_REGIND, Reg: isa.R3}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"regoff", "ld [%r3 + 8], %r2",
			[]Operand{{Mode: MODE_REGOFF, Reg: isa.R3, Value: 8}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"regoff_neg", "ld [%sp - 4], %r2",
			[]Operand{{Mode: MODE_REGOFF, Reg: isa.SP, Value: 0xfffffffc}, {Mode: MODE_REGDIR, Reg: isa.R2}}},
		{"aliases", "xchg %sp, %pc",
			[]Operand{{Mode: MODE_REGDIR, Reg: isa.SP}, {Mode: MODE_REGDIR, Reg: isa.PC}}},
		{"csr", "csrwr %r1, %handler",
			[]Operand{{Mode: MODE_REGDIR, Reg: isa.R1}, {Mode: MODE_CSR, Csr: isa.CSR_HANDLER}}},
		{"sys_equate", "st %r1, term_out",
			[]Operand{{Mode: MODE_REGDIR, Reg: isa.R1}, {Mode: MODE_MEMDIR, Value: isa.TERM_OUT}}},
	}

	for _, entry := range table {
		item := parseOne(t, entry.line)
		assert.Equal(entry.want, item.Operands, entry.name)
	}
}

func TestParseLabels(t *testing.T) {
	assert := assert.New(t)

	item := parseOne(t, "loop: again: add %r1, %r2")
	assert.Equal([]string{"loop", "again"}, item.Labels)
	assert.Equal("add", item.Op)

	item = parseOne(t, "alone:")
	assert.Equal([]string{"alone"}, item.Labels)
	assert.Equal("", item.Op)
}

func TestParseComments(t *testing.T) {
	assert := assert.New(t)

	parser := &Parser{}
	unit, err := parser.Parse("test", strings.NewReader(strings.Join([]string{
		"# full line comment",
		"halt ; trailing comment",
		"",
	}, "\n")))
	assert.NoError(err)
	assert.Len(unit.Items, 1)
	assert.Equal("halt", unit.Items[0].Op)
}

func TestParseEquate(t *testing.T) {
	assert := assert.New(t)

	parser := &Parser{}
	unit, err := parser.Parse("test", strings.NewReader(strings.Join([]string{
		".equ count 5",
		".equ limit count",
		"ld $count, %r1",
		"ld limit, %r2",
	}, "\n")))
	assert.NoError(err)
	assert.Equal(uint32(5), parser.Equate["count"])
	assert.Equal(uint32(5), parser.Equate["limit"])

	// Equates substitute inline wherever they are referenced.
	assert.Equal(Operand{Mode: MODE_IMM, Value: 5}, unit.Items[2].Operands[0])
	assert.Equal(Operand{Mode: MODE_MEMDIR, Value: 5}, unit.Items[3].Operands[0])

	_, err = parser.Parse("test", strings.NewReader(strings.Join([]string{
		".equ twice 1",
		".equ twice 2",
	}, "\n")))
	assert.ErrorIs(err, ErrEquateDuplicate)
}

func TestParseExpression(t *testing.T) {
	assert := assert.New(t)

	parser := &Parser{}
	parser.Predefine("base", 0x100)

	unit, err := parser.Parse("test", strings.NewReader(strings.Join([]string{
		".equ size 16",
		"ld $$(base + size * 2), %r1",
	}, "\n")))
	assert.NoError(err)
	assert.Equal(Operand{Mode: MODE_IMM, Value: 0x120}, unit.Items[1].Operands[0])
}

func TestParseExpressionInvalid(t *testing.T) {
	assert := assert.New(t)

	parser := &Parser{}
	_, err := parser.Parse("test", strings.NewReader("ld $$(nosuch + 1), %r1"))
	assert.Error(err)
}

func TestParseEnd(t *testing.T) {
	assert := assert.New(t)

	parser := &Parser{}
	unit, err := parser.Parse("test", strings.NewReader(strings.Join([]string{
		"halt",
		".end",
		"this is not parsed",
	}, "\n")))
	assert.NoError(err)
	assert.Len(unit.Items, 2)
	assert.Equal(".end", unit.Items[1].Op)
}

func TestParseErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		line string
		want error
	}){
		{"register", "ld $1, %r16", ErrRegisterInvalid},
		{"csr_name", "csrwr %r1, %nosuch", ErrRegisterInvalid},
		{"bracket", "ld [%r1, %r2", ErrOperandInvalid},
		{"number", "ld $12zz, %r1", ErrParseNumber("12zz")},
		{"label", "1bad: halt", ErrLabelInvalid("1bad")},
		{"empty_operand", "add %r1,, %r2", ErrOperandInvalid},
	}

	for _, entry := range table {
		parser := &Parser{}
		_, err := parser.Parse("test", strings.NewReader(entry.line))
		assert.ErrorIs(err, entry.want, entry.name)

		var syn *ErrSyntax
		if assert.True(errors.As(err, &syn), entry.name) {
			assert.Equal(1, syn.LineNo, entry.name)
		}
	}
}
