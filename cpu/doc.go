// Package cpu implements the virtual processor: sixteen general
// registers (sp and pc among them), three control/status registers, a
// byte-addressable sparse memory, and the fetch-decode-execute loop
// with interrupt delivery.
//
// Timer and terminal interrupts arrive as pending bits raised by
// device simulations between cycles; the loop samples them once per
// cycle and delivers at most one. Software interrupts (the int
// instruction and division by zero) transfer control immediately.
package cpu
