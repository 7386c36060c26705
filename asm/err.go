package asm

import (
	"errors"

	"github.com/dragan-mitrasinovic/RiscToolchain/translate"
)

var f = translate.From

var (
	// Front-end errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrOperandInvalid  = errors.New(f("operand invalid"))

	// Backend errors
	ErrMnemonicInvalid = errors.New(f("instruction invalid"))
	ErrOperandCount    = errors.New(f("wrong operand count"))
	ErrDispRange       = errors.New(f("displacement out of range"))
	ErrSkipInvalid     = errors.New(f(".skip count invalid"))
)

type ErrLabelInvalid string

func (err ErrLabelInvalid) Error() string {
	return f("label %v invalid", string(err))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSymbolRedefined marks a label or constant defined twice.
type ErrSymbolRedefined string

func (err ErrSymbolRedefined) Error() string {
	return f("symbol %v redefined", string(err))
}

// ErrSymbolUndefined marks a symbol used but never defined, declared
// global, nor externed by the end of the unit.
type ErrSymbolUndefined string

func (err ErrSymbolUndefined) Error() string {
	return f("symbol %v undefined", string(err))
}

// ErrSyntax indicates the source location of an assembly error.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
