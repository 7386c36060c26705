package obj

import (
	"errors"

	"github.com/dragan-mitrasinovic/RiscToolchain/translate"
)

var f = translate.From

var (
	ErrBindingInvalid   = errors.New(f("binding invalid"))
	ErrRelocKindInvalid = errors.New(f("relocation kind invalid"))
)

type ErrSectionDuplicate string

func (err ErrSectionDuplicate) Error() string {
	return f("section %v defined twice", string(err))
}

type ErrSectionUnknown string

func (err ErrSectionUnknown) Error() string {
	return f("section %v unknown", string(err))
}

type ErrSymbolDuplicate string

func (err ErrSymbolDuplicate) Error() string {
	return f("symbol %v defined twice", string(err))
}

type ErrSymbolUnknown string

func (err ErrSymbolUnknown) Error() string {
	return f("symbol %v unknown", string(err))
}

type ErrRelocBounds struct {
	Section string
	Offset  uint32
}

func (err *ErrRelocBounds) Error() string {
	return f("relocation at %v+%#x out of bounds", err.Section, err.Offset)
}

// ErrModule attributes a structural error to its object module.
type ErrModule struct {
	Module string
	Err    error
}

func (err *ErrModule) Error() string {
	return f("module %v: %v", err.Module, err.Err)
}

func (err *ErrModule) Unwrap() error {
	return err.Err
}
