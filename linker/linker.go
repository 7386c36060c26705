// Package linker combines relocatable object modules into a flat,
// executable memory image: it resolves global symbols across modules,
// places sections at absolute addresses, applies relocation records,
// and emits the address-to-byte image the emulator loads.
package linker

import (
	"log"
	"sort"

	"github.com/dragan-mitrasinovic/RiscToolchain/obj"
)

// part is one module's contribution to an output section.
type part struct {
	mod  *obj.Module
	off  uint32 // offset within the output section
	data []byte // patched copy of the section bytes
}

// outSection is the concatenation of all same-named input sections,
// in module order.
type outSection struct {
	name   string
	base   uint32
	size   uint32
	placed bool
	parts  []*part
}

func (out *outSection) end() uint32 {
	return out.base + out.size
}

// link is the per-invocation state; it is discarded once the image is
// produced, keeping Link repeatable within one process.
type link struct {
	Verbose bool

	modules []*obj.Module
	outs    []*outSection
	outIdx  map[string]*outSection
	parts   map[*obj.Module]map[string]*part
	globals map[string]*obj.Module
}

// Link resolves, places, and relocates the given modules as one atomic
// pass. The placement set maps section names to absolute bases;
// sections left out are laid out consecutively after the highest
// placed address, stable by first-encountered module order. Any
// failure aborts the whole link with no image produced.
func Link(modules []*obj.Module, place map[string]uint32) (im *Image, err error) {
	return (&link{}).run(modules, place)
}

func (ln *link) run(modules []*obj.Module, place map[string]uint32) (im *Image, err error) {
	ln.modules = modules
	ln.outIdx = map[string]*outSection{}
	ln.parts = map[*obj.Module]map[string]*part{}
	ln.globals = map[string]*obj.Module{}

	for _, mod := range modules {
		err = mod.Validate()
		if err != nil {
			return
		}
	}

	err = ln.collect()
	if err != nil {
		return
	}

	err = ln.placeSections(place)
	if err != nil {
		return
	}

	err = ln.relocate()
	if err != nil {
		return
	}

	im = &Image{}
	for _, out := range ln.outs {
		if out.size == 0 {
			continue
		}
		data := make([]byte, 0, out.size)
		for _, p := range out.parts {
			data = append(data, p.data...)
		}
		im.Segments = append(im.Segments, Segment{Base: out.base, Data: data})
	}
	sort.Slice(im.Segments, func(i, j int) bool {
		return im.Segments[i].Base < im.Segments[j].Base
	})

	return
}

// collect concatenates same-named sections and builds the global
// symbol table, rejecting duplicate global definitions.
func (ln *link) collect() (err error) {
	for _, mod := range ln.modules {
		ln.parts[mod] = map[string]*part{}
		for n := range mod.Sections {
			sec := &mod.Sections[n]
			out, ok := ln.outIdx[sec.Name]
			if !ok {
				out = &outSection{name: sec.Name}
				ln.outIdx[sec.Name] = out
				ln.outs = append(ln.outs, out)
			}
			p := &part{mod: mod, off: out.size, data: append([]byte(nil), sec.Data...)}
			out.parts = append(out.parts, p)
			out.size += uint32(len(sec.Data))
			ln.parts[mod][sec.Name] = p
		}

		for _, sym := range mod.Globals() {
			prior, ok := ln.globals[sym.Name]
			if ok {
				return &ErrDuplicateGlobal{Symbol: sym.Name, First: prior.Name, Second: mod.Name}
			}
			ln.globals[sym.Name] = mod
		}
	}

	return
}

// placeSections assigns every output section its absolute base.
func (ln *link) placeSections(place map[string]uint32) (err error) {
	var next uint32
	for name, base := range place {
		out, ok := ln.outIdx[name]
		if !ok {
			return ErrSectionUnplaceable(name)
		}
		out.base = base
		out.placed = true
		if out.end() > next {
			next = out.end()
		}
	}

	placed := []*outSection{}
	for _, out := range ln.outs {
		if out.placed {
			placed = append(placed, out)
		}
	}
	sort.Slice(placed, func(i, j int) bool { return placed[i].base < placed[j].base })
	for n := 1; n < len(placed); n++ {
		if placed[n].base < placed[n-1].end() {
			return &ErrPlacementConflict{First: placed[n-1].name, Second: placed[n].name}
		}
	}

	for _, out := range ln.outs {
		if out.placed {
			continue
		}
		out.base = next
		next = out.end()
	}

	if ln.Verbose {
		for _, out := range ln.outs {
			log.Printf("link: section %v at %#08x+%#x", out.name, out.base, out.size)
		}
	}

	return
}

// resolve finalizes one symbol as seen from one module: local and
// global definitions get section base plus offset, absolute symbols
// keep their value, and externs chase the resolving global definition.
func (ln *link) resolve(mod *obj.Module, name string) (addr uint32, err error) {
	sym := mod.Symbol(name)
	if sym == nil || !sym.Defined() {
		def, ok := ln.globals[name]
		if !ok {
			return 0, &ErrSymbolUndefined{Module: mod.Name, Symbol: name}
		}
		return ln.resolve(def, name)
	}

	if sym.Absolute {
		return sym.Value, nil
	}

	out := ln.outIdx[sym.Section]
	p := ln.parts[mod][sym.Section]
	return out.base + p.off + sym.Value, nil
}

// relocate applies every relocation record: absolute patches write the
// symbol's final address, pc-relative ones the distance from the
// relocation site, both little-endian at the record's width.
func (ln *link) relocate() (err error) {
	for _, mod := range ln.modules {
		for n := range mod.Relocs {
			rel := &mod.Relocs[n]

			var target uint32
			target, err = ln.resolve(mod, rel.Symbol)
			if err != nil {
				return
			}

			p := ln.parts[mod][rel.Section]
			site := ln.outIdx[rel.Section].base + p.off + rel.Offset

			value := target + uint32(rel.Addend)
			if rel.Kind == obj.PCREL32 {
				value -= site
			}

			for i := 0; i < rel.Width; i++ {
				p.data[rel.Offset+uint32(i)] = byte(value >> (8 * i))
			}
		}
	}

	return
}
