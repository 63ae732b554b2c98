package interp

import (
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// tryEntry is one active protected region's catch target, pushed by
// OpEnterTry and popped by the OpExitTry that begins either the catch
// block or the code immediately following a try with no exception.
//
// tempDepth/argBaseDepth snapshot the region's entry-time stack heights
// (§4.3: "the value/temp stacks are rewound to stack_snapshot"). A throw
// caught by this entry truncates both stacks back to these depths before
// resuming at catchIP, so a throw mid-expression — e.g. inside an operand
// whose sibling left an outstanding StoreTemp or an argument span's
// CreateArg open — can't leave either LIFO misaligned for the catch body.
type tryEntry struct {
	catchIP      int
	tempDepth    int
	argBaseDepth int
}

// Frame is one function activation: its own value stack, its own capture
// cells, the capture frame it inherited from its creator, and the
// call-convention/try/class bookkeeping that only matters while this
// frame is executing (§4.3, §4.1 Classes).
type Frame struct {
	desc *runtime.FunctionDescriptor
	prog bytecode.Program
	ip   int

	regs [3]value.Value

	// stack holds this function's own declared locals, one slot per
	// allocStackSlot call the builder made against it. Sized once to
	// desc.MaxStackOffset and pre-filled with value.Undefined — the Go
	// zero value for value.Value is a meaningless bit pattern, not
	// Undefined (see value.Value's doc comment).
	stack []value.Value

	// ownCells backs this function's own promoted-to-capture locals
	// (OpGetCapture/OpSetCapture), one entry per OwnCaptureSlots, each
	// lazily allocated the first time OpPromoteToCapture runs for it.
	ownCells []*value.Cell

	// inherited is the capture frame this function instance received at
	// closure-creation time (OpGetInherited/OpSetInherited).
	inherited []*value.Cell

	this      value.Value
	newTarget value.Value

	// hasSuperSlot/superCtor give the dynamically-scoped "SUPER
	// CONSTRUCTOR" binding a frame-local override inside a derived
	// class's constructor (§4.1 Classes; see classes.go). Every other
	// dynamic read falls through to the interpreter's shared globals.
	hasSuperCtor bool
	superCtor    value.Value

	// tempStack is the strict LIFO scratch area OpStoreTemp/OpReadTemp/
	// OpReleaseTemp address (§4.1 Expression lowering contract).
	tempStack []value.Value

	// argBase is a LIFO stack of pending-call argument span base offsets.
	// A span's PushArg/PushArgSpread instructions carry only an Index
	// relative to their own span's base, so nested calls inside an
	// argument expression (each with their own CreateArg/FinishArgs pair)
	// need the innermost still-open span's base to resolve an absolute
	// stack slot.
	argBase []uint32
	// spreadMarks records, per absolute stack slot, whether the value
	// written there by PushArgSpread must be expanded at FinishArgs time.
	spreadMarks map[uint32]bool
	// lastArgs holds the most recently finalized (spread-expanded)
	// argument slice; the OpCall/OpNew that always immediately follows a
	// FinishArgs consumes it.
	lastArgs []value.Value

	tryStack []tryEntry

	// pendingClass associates a ClassID with the constructor object most
	// recently created by OpCreateClass for it in THIS frame's bytecode —
	// the Bind* opcodes that follow a CreateClass always do so
	// contiguously within the same frame (§4.1 Classes).
	pendingClass map[uint32]*object.Object

	// driver is non-nil only for a generator function's frame: OpYield
	// suspends through it instead of returning control to runFrame's
	// caller synchronously (see generator.go).
	driver *coroDriver
}

func newFrame(desc *runtime.FunctionDescriptor, this, newTarget value.Value, inherited []*value.Cell) *Frame {
	stack := make([]value.Value, desc.MaxStackOffset)
	for i := range stack {
		stack[i] = value.Undefined
	}
	var ownCells []*value.Cell
	if desc.OwnCaptureSlots > 0 {
		ownCells = make([]*value.Cell, desc.OwnCaptureSlots)
	}
	return &Frame{
		desc:      desc,
		prog:      desc.Bytecode,
		stack:     stack,
		ownCells:  ownCells,
		inherited: inherited,
		this:      this,
		newTarget: newTarget,
	}
}

func (fr *Frame) pushTemp(v value.Value) { fr.tempStack = append(fr.tempStack, v) }

func (fr *Frame) peekTemp() value.Value { return fr.tempStack[len(fr.tempStack)-1] }

func (fr *Frame) popTemp() {
	fr.tempStack = fr.tempStack[:len(fr.tempStack)-1]
}

func (fr *Frame) cell(slot uint32) *value.Cell {
	c := fr.ownCells[slot]
	if c == nil {
		c = value.NewCell(value.Undefined)
		fr.ownCells[slot] = c
	}
	return c
}
