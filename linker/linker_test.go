package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragan-mitrasinovic/RiscToolchain/obj"
)

// defmod builds a module with one 16-byte text section exporting a
// single global symbol.
func defmod(name, sym string, value uint32) *obj.Module {
	return &obj.Module{
		Name: name,
		Sections: []obj.Section{
			{Name: "text", Data: make(obj.HexBytes, 16)},
		},
		Symbols: []obj.Symbol{
			{Name: sym, Value: value, Section: "text", Binding: obj.BIND_GLOBAL},
		},
	}
}

func word(im *Image, addr uint32) uint32 {
	var value uint32
	for n := uint32(0); n < 4; n++ {
		b, ok := im.At(addr + n)
		if !ok {
			return 0
		}
		value |= uint32(b) << (8 * n)
	}
	return value
}

func TestLinkResolvesExtern(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	caller := &obj.Module{
		Name: "caller",
		Sections: []obj.Section{
			{Name: "text", Data: make(obj.HexBytes, 8)},
		},
		Symbols: []obj.Symbol{
			{Name: "callee", Binding: obj.BIND_EXTERN},
		},
		Relocs: []obj.Reloc{
			{Section: "text", Offset: 4, Symbol: "callee", Kind: obj.PCREL32, Width: 4},
		},
	}
	target := defmod("target", "callee", 12)

	im, err := Link([]*obj.Module{caller, target}, map[string]uint32{"text": 0x1000})
	require.NoError(err)

	// Output text: caller's 8 bytes, then target's 16.
	// callee = 0x1000 + 8 + 12; site = 0x1000 + 4.
	assert.Equal(uint32(0x1000+8+12)-uint32(0x1004), word(im, 0x1004))
}

func TestLinkAbsVersusPcrel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	build := func() *obj.Module {
		return &obj.Module{
			Name: "unit",
			Sections: []obj.Section{
				{Name: "text", Data: make(obj.HexBytes, 16)},
			},
			Symbols: []obj.Symbol{
				{Name: "x", Value: 0, Section: "text", Binding: obj.BIND_LOCAL},
			},
			Relocs: []obj.Reloc{
				{Section: "text", Offset: 8, Symbol: "x", Kind: obj.ABS32, Width: 4},
				{Section: "text", Offset: 12, Symbol: "x", Kind: obj.PCREL32, Width: 4},
			},
		}
	}

	first, err := Link([]*obj.Module{build()}, map[string]uint32{"text": 0x1000})
	require.NoError(err)
	second, err := Link([]*obj.Module{build()}, map[string]uint32{"text": 0x8000})
	require.NoError(err)

	// Absolute patches track placement; pc-relative ones do not.
	assert.Equal(uint32(0x1000), word(first, 0x1008))
	assert.Equal(uint32(0x8000), word(second, 0x8008))
	assert.Equal(word(first, 0x100c), word(second, 0x800c))
	assert.Equal(uint32(0xfffffff4), word(first, 0x100c))
}

func TestLinkAbsoluteSymbol(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := &obj.Module{
		Name: "unit",
		Sections: []obj.Section{
			{Name: "text", Data: make(obj.HexBytes, 8)},
		},
		Symbols: []obj.Symbol{
			{Name: "limit", Value: 0xabcd, Absolute: true},
		},
		Relocs: []obj.Reloc{
			{Section: "text", Offset: 0, Symbol: "limit", Kind: obj.ABS32, Width: 4},
		},
	}

	im, err := Link([]*obj.Module{mod}, map[string]uint32{"text": 0x4000})
	require.NoError(err)
	assert.Equal(uint32(0xabcd), word(im, 0x4000))
}

func TestLinkAddend(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := defmod("unit", "base", 0)
	mod.Relocs = []obj.Reloc{
		{Section: "text", Offset: 0, Symbol: "base", Kind: obj.ABS32, Width: 4, Addend: 8},
	}

	im, err := Link([]*obj.Module{mod}, map[string]uint32{"text": 0x2000})
	require.NoError(err)
	assert.Equal(uint32(0x2008), word(im, 0x2000))
}

func TestLinkDefaultPlacement(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := &obj.Module{
		Name: "unit",
		Sections: []obj.Section{
			{Name: "text", Data: make(obj.HexBytes, 8)},
			{Name: "data", Data: obj.HexBytes{0xaa, 0xbb}},
		},
	}

	im, err := Link([]*obj.Module{mod}, map[string]uint32{"text": 0x1000})
	require.NoError(err)

	// Unplaced sections pack after the highest placed end.
	require.Len(im.Segments, 2)
	assert.Equal(uint32(0x1000), im.Segments[0].Base)
	assert.Equal(uint32(0x1008), im.Segments[1].Base)

	b, ok := im.At(0x1009)
	assert.True(ok)
	assert.Equal(byte(0xbb), b)
}

func TestLinkErrors(t *testing.T) {
	assert := assert.New(t)

	dupA := defmod("a", "twice", 0)
	dupB := defmod("b", "twice", 4)
	_, err := Link([]*obj.Module{dupA, dupB}, nil)
	var dup *ErrDuplicateGlobal
	if assert.ErrorAs(err, &dup) {
		assert.Equal("twice", dup.Symbol)
	}

	undef := &obj.Module{
		Name: "undef",
		Sections: []obj.Section{
			{Name: "text", Data: make(obj.HexBytes, 8)},
		},
		Symbols: []obj.Symbol{
			{Name: "ghost", Binding: obj.BIND_EXTERN},
		},
		Relocs: []obj.Reloc{
			{Section: "text", Offset: 0, Symbol: "ghost", Kind: obj.ABS32, Width: 4},
		},
	}
	_, err = Link([]*obj.Module{undef}, nil)
	var und *ErrSymbolUndefined
	if assert.ErrorAs(err, &und) {
		assert.Equal("ghost", und.Symbol)
	}

	overlapA := defmod("a", "syma", 0)
	overlapB := defmod("b", "symb", 0)
	overlapB.Sections[0].Name = "data"
	_, err = Link([]*obj.Module{overlapA, overlapB},
		map[string]uint32{"text": 0x1000, "data": 0x1008})
	var conflict *ErrPlacementConflict
	assert.ErrorAs(err, &conflict)

	_, err = Link([]*obj.Module{defmod("a", "sym", 0)},
		map[string]uint32{"nosuch": 0x1000})
	assert.ErrorIs(err, ErrSectionUnplaceable("nosuch"))
}

func TestLinkConcatenationOffsets(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Two modules contribute to the same section; the second module's
	// symbols shift by the first one's size.
	first := defmod("first", "one", 0)
	second := defmod("second", "two", 4)

	probe := &obj.Module{
		Name: "probe",
		Sections: []obj.Section{
			{Name: "data", Data: make(obj.HexBytes, 8)},
		},
		Symbols: []obj.Symbol{
			{Name: "one", Binding: obj.BIND_EXTERN},
			{Name: "two", Binding: obj.BIND_EXTERN},
		},
		Relocs: []obj.Reloc{
			{Section: "data", Offset: 0, Symbol: "one", Kind: obj.ABS32, Width: 4},
			{Section: "data", Offset: 4, Symbol: "two", Kind: obj.ABS32, Width: 4},
		},
	}

	im, err := Link([]*obj.Module{first, second, probe},
		map[string]uint32{"text": 0x1000, "data": 0x2000})
	require.NoError(err)

	assert.Equal(uint32(0x1000), word(im, 0x2000))
	assert.Equal(uint32(0x1000+16+4), word(im, 0x2004))
}

func TestImageMergesAdjacentParts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := defmod("unit", "sym", 0)
	im, err := Link([]*obj.Module{mod}, nil)
	require.NoError(err)

	require.Len(im.Segments, 1)
	assert.Equal(uint32(0), im.Segments[0].Base)
	assert.Len(im.Segments[0].Data, 16)
}
