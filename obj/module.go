// Package obj defines the relocatable object model produced by the
// assembler and consumed by the linker: sections, symbols, relocation
// records, and the literal/symbol pool, plus the structural validation
// and the on-disk object-file codec.
package obj

import (
	"encoding/hex"
)

// Binding is the visibility of a symbol.
type Binding int

const (
	BIND_LOCAL  = Binding(0) // local
	BIND_GLOBAL = Binding(1) // global
	BIND_EXTERN = Binding(2) // extern
)

var bindingNames = map[Binding]string{
	BIND_LOCAL:  "local",
	BIND_GLOBAL: "global",
	BIND_EXTERN: "extern",
}

func (b Binding) String() string {
	name, ok := bindingNames[b]
	if !ok {
		return "bind?"
	}
	return name
}

// MarshalText implements encoding.TextMarshaler for the object file.
func (b Binding) MarshalText() ([]byte, error) {
	name, ok := bindingNames[b]
	if !ok {
		return nil, ErrBindingInvalid
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the object file.
func (b *Binding) UnmarshalText(text []byte) error {
	for bind, name := range bindingNames {
		if name == string(text) {
			*b = bind
			return nil
		}
	}
	return ErrBindingInvalid
}

// RelocKind is the patch rule of a relocation record.
type RelocKind int

const (
	ABS32   = RelocKind(0) // abs32: patch = S + A
	PCREL32 = RelocKind(1) // pcrel32: patch = S + A - P
)

var relocNames = map[RelocKind]string{
	ABS32:   "abs32",
	PCREL32: "pcrel32",
}

func (k RelocKind) String() string {
	name, ok := relocNames[k]
	if !ok {
		return "reloc?"
	}
	return name
}

// MarshalText implements encoding.TextMarshaler for the object file.
func (k RelocKind) MarshalText() ([]byte, error) {
	name, ok := relocNames[k]
	if !ok {
		return nil, ErrRelocKindInvalid
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the object file.
func (k *RelocKind) UnmarshalText(text []byte) error {
	for kind, name := range relocNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return ErrRelocKindInvalid
}

// HexBytes is a byte run serialized as lowercase hex text.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (hb HexBytes) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(hb)))
	hex.Encode(out, hb)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (hb *HexBytes) UnmarshalText(text []byte) error {
	out := make([]byte, hex.DecodedLen(len(text)))
	_, err := hex.Decode(out, text)
	if err != nil {
		return err
	}
	*hb = out
	return nil
}

// Section is a named contiguous byte run. The byte length is fixed
// once assembly finishes; the absolute base is assigned by the linker
// only.
type Section struct {
	Name string   `toml:"name"`
	Data HexBytes `toml:"data"`
}

// Symbol binds a name to a value. For section symbols the value is a
// section-relative offset; absolute symbols carry a constant and no
// section; extern symbols carry neither until link time.
type Symbol struct {
	Name     string  `toml:"name"`
	Value    uint32  `toml:"value"`
	Section  string  `toml:"section,omitempty"`
	Binding  Binding `toml:"binding"`
	Absolute bool    `toml:"absolute,omitempty"`
}

// Defined reports whether the symbol carries a value in this module.
func (sym *Symbol) Defined() bool {
	return sym.Binding != BIND_EXTERN
}

// Reloc marks bytes whose encoded value depends on a symbol's final
// address. Patches are little-endian at the given width.
type Reloc struct {
	Section string    `toml:"section"`
	Offset  uint32    `toml:"offset"`
	Symbol  string    `toml:"symbol"`
	Kind    RelocKind `toml:"kind"`
	Width   int       `toml:"width"`
	Addend  int32     `toml:"addend,omitempty"`
}

// PoolEntry records one literal/symbol pool slot: a constant value, or
// a symbol reference patched by an accompanying relocation record.
type PoolEntry struct {
	Section string `toml:"section"`
	Offset  uint32 `toml:"offset"`
	Symbol  string `toml:"symbol,omitempty"`
	Value   uint32 `toml:"value,omitempty"`
}

// Module is the output of one assembler run.
type Module struct {
	Name     string      `toml:"name"`
	Sections []Section   `toml:"section"`
	Symbols  []Symbol    `toml:"symbol"`
	Relocs   []Reloc     `toml:"reloc"`
	Pool     []PoolEntry `toml:"pool"`
}

// Section returns the named section, or nil.
func (mod *Module) Section(name string) *Section {
	for n := range mod.Sections {
		if mod.Sections[n].Name == name {
			return &mod.Sections[n]
		}
	}
	return nil
}

// Symbol returns the named symbol, or nil.
func (mod *Module) Symbol(name string) *Symbol {
	for n := range mod.Symbols {
		if mod.Symbols[n].Name == name {
			return &mod.Symbols[n]
		}
	}
	return nil
}

// Globals returns the module's global definitions.
func (mod *Module) Globals() (globals []*Symbol) {
	for n := range mod.Symbols {
		if mod.Symbols[n].Binding == BIND_GLOBAL {
			globals = append(globals, &mod.Symbols[n])
		}
	}
	return
}

// Validate checks the module's structural invariants: unique section
// names, single definition per symbol, and relocation and pool records
// that stay inside a known section and reference a known symbol.
// Cross-module checks belong to the linker.
func (mod *Module) Validate() (err error) {
	sections := map[string]bool{}
	for n := range mod.Sections {
		name := mod.Sections[n].Name
		if sections[name] {
			return &ErrModule{Module: mod.Name, Err: ErrSectionDuplicate(name)}
		}
		sections[name] = true
	}

	symbols := map[string]bool{}
	for n := range mod.Symbols {
		sym := &mod.Symbols[n]
		if symbols[sym.Name] {
			return &ErrModule{Module: mod.Name, Err: ErrSymbolDuplicate(sym.Name)}
		}
		symbols[sym.Name] = true
		if sym.Section != "" && !sections[sym.Section] {
			return &ErrModule{Module: mod.Name, Err: ErrSectionUnknown(sym.Section)}
		}
	}

	for n := range mod.Relocs {
		rel := &mod.Relocs[n]
		sec := mod.Section(rel.Section)
		if sec == nil {
			return &ErrModule{Module: mod.Name, Err: ErrSectionUnknown(rel.Section)}
		}
		if !symbols[rel.Symbol] {
			return &ErrModule{Module: mod.Name, Err: ErrSymbolUnknown(rel.Symbol)}
		}
		if rel.Width <= 0 || int(rel.Offset)+rel.Width > len(sec.Data) {
			return &ErrModule{Module: mod.Name, Err: &ErrRelocBounds{Section: rel.Section, Offset: rel.Offset}}
		}
	}

	for n := range mod.Pool {
		ent := &mod.Pool[n]
		sec := mod.Section(ent.Section)
		if sec == nil {
			return &ErrModule{Module: mod.Name, Err: ErrSectionUnknown(ent.Section)}
		}
		if int(ent.Offset)+4 > len(sec.Data) {
			return &ErrModule{Module: mod.Name, Err: &ErrRelocBounds{Section: ent.Section, Offset: ent.Offset}}
		}
		if ent.Symbol != "" && !symbols[ent.Symbol] {
			return &ErrModule{Module: mod.Name, Err: ErrSymbolUnknown(ent.Symbol)}
		}
	}

	return
}
