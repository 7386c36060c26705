package emulator

import (
	"github.com/dragan-mitrasinovic/RiscToolchain/translate"
)

var f = translate.From

// ErrRuntime indicates the cycle at which a runtime error occurred.
type ErrRuntime struct {
	Tick int
	Err  error
}

func (err *ErrRuntime) Error() string {
	return f("tick %d %v", err.Tick, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
