// Package interp executes the bytecode.Program the builder produces.
// It owns the one piece of state package runtime deliberately cannot hold
// itself (§5: "the interpreter installs this hook on itself via
// SetInvoker, closing the loop without an import cycle") plus everything
// execution-local: call frames, the value/temp stacks, iterator state, and
// the optional tier-2 wazero seam of §4.8.
//
// The dispatch loop is grounded on the classic register-VM shape (see
// nooga/paserati's pkg/vm): a flat instruction slice, an instruction
// pointer, and a per-opcode switch that never allocates on the arithmetic
// fast paths. What is specific to this engine is the split between a
// function's value stack (plain Values, monotonically slotted by the
// builder) and its capture cells (heap-allocated *value.Cell, shared with
// every closure that reads the same captured variable by reference).
package interp
