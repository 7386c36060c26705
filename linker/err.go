package linker

import (
	"github.com/dragan-mitrasinovic/RiscToolchain/translate"
)

var f = translate.From

// ErrDuplicateGlobal marks a global symbol defined by two modules.
type ErrDuplicateGlobal struct {
	Symbol string
	First  string
	Second string
}

func (err *ErrDuplicateGlobal) Error() string {
	return f("global %v defined in both %v and %v", err.Symbol, err.First, err.Second)
}

// ErrSymbolUndefined marks an external reference no module defines.
type ErrSymbolUndefined struct {
	Module string
	Symbol string
}

func (err *ErrSymbolUndefined) Error() string {
	return f("module %v: undefined symbol %v", err.Module, err.Symbol)
}

// ErrPlacementConflict marks two sections placed at overlapping
// address ranges.
type ErrPlacementConflict struct {
	First  string
	Second string
}

func (err *ErrPlacementConflict) Error() string {
	return f("placement conflict: sections %v and %v overlap", err.First, err.Second)
}

type ErrSectionUnplaceable string

func (err ErrSectionUnplaceable) Error() string {
	return f("placement names unknown section %v", string(err))
}

// ErrImageLine marks an unparseable hex image line.
type ErrImageLine struct {
	LineNo int
	Line   string
}

func (err *ErrImageLine) Error() string {
	return f("image line %d '%v' invalid", err.LineNo, err.Line)
}
