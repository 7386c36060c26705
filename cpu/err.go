package cpu

import (
	"errors"

	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
	"github.com/dragan-mitrasinovic/RiscToolchain/translate"
)

var f = translate.From

var (
	// ErrHalted is returned by Tick once the processor has halted.
	ErrHalted = errors.New(f("processor halted"))
	// ErrOpcodeDecode marks an instruction word with no defined meaning.
	ErrOpcodeDecode = errors.New(f("decode"))
	// ErrCsrInvalid marks a csr access outside the register file.
	ErrCsrInvalid = errors.New(f("no such control/status register"))
)

// ErrFault records where a faulting instruction was fetched from.
type ErrFault struct {
	Addr uint32
	Code isa.Code
}

func (err *ErrFault) Error() string {
	return f("fault at %08x: %v", err.Addr, err.Code)
}
