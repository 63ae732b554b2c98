// Package builder lowers a parsed AST (package ast) into the engine's
// register-based bytecode (package bytecode), per §4.1 of the
// specification: scope and capture resolution, block-based control-flow
// construction, operator/pattern lowering, and function/class construction.
//
// FunctionBuilder does the work: it holds one function body's lexical scope
// stack and storage-class resolution (reaching enclosing functions'
// declarations through its parent builder), drives that body's AST
// traversal, and emits CreateBlock/SwitchToBlock pseudo-ops and
// register-addressed instructions that bytecode.Linearize later flattens.
package builder
