// Package asm implements the assembler for the toolchain's RISC-like
// instruction set.
//
// The front end (Parser) turns source text into an ordered assembly
// unit of labels, directives, and instructions with parsed operands,
// expanding .equ constants and compile-time $() expressions. The
// backend (Assemble) resolves the unit in two passes over the same
// item sequence: the first computes the layout — section offsets,
// label values, and literal-pool slots — and the second emits bytes,
// producing a relocatable object module.
package asm
