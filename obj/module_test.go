package obj

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wellFormed() *Module {
	return &Module{
		Name: "unit",
		Sections: []Section{
			{Name: "text", Data: HexBytes{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
			{Name: "data", Data: HexBytes{0xaa, 0xbb, 0xcc, 0xdd}},
		},
		Symbols: []Symbol{
			{Name: "main", Value: 0, Section: "text", Binding: BIND_GLOBAL},
			{Name: "size", Value: 16, Absolute: true},
			{Name: "other", Binding: BIND_EXTERN},
		},
		Relocs: []Reloc{
			{Section: "text", Offset: 4, Symbol: "other", Kind: PCREL32, Width: 4},
			{Section: "data", Offset: 0, Symbol: "main", Kind: ABS32, Width: 4},
		},
		Pool: []PoolEntry{
			{Section: "text", Offset: 4, Symbol: "other"},
		},
	}
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(wellFormed().Validate())

	table := [](struct {
		name   string
		mutate func(*Module)
		want   error
	}){
		{"section_dup", func(mod *Module) {
			mod.Sections = append(mod.Sections, Section{Name: "text"})
		}, ErrSectionDuplicate("text")},
		{"symbol_dup", func(mod *Module) {
			mod.Symbols = append(mod.Symbols, Symbol{Name: "main"})
		}, ErrSymbolDuplicate("main")},
		{"symbol_section", func(mod *Module) {
			mod.Symbols[0].Section = "bss"
		}, ErrSectionUnknown("bss")},
		{"reloc_symbol", func(mod *Module) {
			mod.Relocs[0].Symbol = "ghost"
		}, ErrSymbolUnknown("ghost")},
		{"reloc_bounds", func(mod *Module) {
			mod.Relocs[0].Offset = 6
		}, &ErrRelocBounds{Section: "text", Offset: 6}},
		{"pool_bounds", func(mod *Module) {
			mod.Pool[0].Offset = 5
		}, &ErrRelocBounds{Section: "text", Offset: 5}},
	}

	for _, entry := range table {
		mod := wellFormed()
		entry.mutate(mod)

		err := mod.Validate()
		assert.ErrorContains(err, "module unit", entry.name)
		assert.Equal(entry.want.Error(), errors.Unwrap(err).Error(), entry.name)
	}
}

func TestFileRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := wellFormed()

	var buf bytes.Buffer
	require.NoError(mod.Save(&buf))

	back, err := Load(&buf)
	require.NoError(err)
	assert.Equal(mod, back)
}

func TestLoadRejectsInvalid(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	mod := wellFormed()
	mod.Relocs[0].Symbol = "ghost"

	var buf bytes.Buffer
	require.NoError(mod.Save(&buf))

	_, err := Load(&buf)
	assert.ErrorContains(err, "ghost")
}

func TestBindingText(t *testing.T) {
	assert := assert.New(t)

	for _, bind := range []Binding{BIND_LOCAL, BIND_GLOBAL, BIND_EXTERN} {
		text, err := bind.MarshalText()
		assert.NoError(err)

		var back Binding
		assert.NoError(back.UnmarshalText(text))
		assert.Equal(bind, back)
	}

	var bind Binding
	assert.ErrorIs(bind.UnmarshalText([]byte("weak")), ErrBindingInvalid)
}
