// Package emulator wraps the processor with its memory-mapped device
// simulations (terminal and timer) and the executable image loader,
// and drives the run-to-halt loop.
package emulator
