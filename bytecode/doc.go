// Package bytecode defines the engine's intermediate instruction set: the
// Op enumeration, the per-opcode Imm operand structs, register/block id
// types, and the Linearize pass that turns a builder's block-labeled
// stream into a flat, directly-executable Program.
//
// This package has no knowledge of the AST or of JavaScript semantics; it
// is purely the wire format between the builder (package builder) and the
// interpreter (package interp), exactly as the WASM binary instruction
// encoding in this codebase's wasm package is the wire format between its
// encoder and decoder.
package bytecode
