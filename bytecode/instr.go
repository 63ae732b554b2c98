package bytecode

import "github.com/wippyai/jsvm/ident"

// Instr is one bytecode instruction: an Op paired with a typed immediate
// operand struct, mirroring the Opcode+Imm shape used elsewhere in this
// codebase for WebAssembly instructions — the addressing modes here are
// just registers/blocks/slots instead of WASM locals/labels/memargs.
type Instr struct {
	Op  Op
	Imm any
}

// BlockImm names a block being declared or switched into.
type BlockImm struct {
	Block Block
}

// JumpImm is an unconditional jump target. Line is patched to an
// instruction index by Linearize; the builder leaves it zero.
type JumpImm struct {
	Target Block
	Line   int32
}

// CondJumpImm is a conditional jump: JumpIfTrue/JumpIfFalse test Cond;
// JumpIfIterDone tests the done-flag register written by IterNext.
type CondJumpImm struct {
	Cond   Register
	Target Block
	Line   int32
}

// RegImm moves or transforms a single register (unary ops, LoadThis's
// destination, etc).
type RegImm struct {
	Dst Register
	Src Register
}

// Int32Imm carries an inline int32 (OpLoadInt32).
type Int32Imm struct {
	Dst   Register
	Value int32
}

// ConstImm references a per-runtime table entry: the constant pool for
// OpLoadNumber/OpLoadString, the regex table for OpLoadRegex. The builder
// loads every number, bigint, string and regex literal this way.
type ConstImm struct {
	Dst     Register
	ConstID uint32
}

// BinImm is the generic two-register binary operator form.
type BinImm struct {
	Dst Register
	L   Register
	R   Register
}

// ImmBinImm is a binary operator specialized for a literal right-hand
// side that fit inline (§4.1 Operator lowering); Int32 carries an int32
// immediate, F32 a float32-representable immediate, ConstID a string
// constant id (resolved through the runtime's constant pool the same as ConstImm).
type ImmBinImm struct {
	Dst     Register
	L       Register
	Int32   int32
	F32     float32
	ConstID uint32
}

// SlotImm addresses a value-stack slot or capture-frame slot.
type SlotImm struct {
	Reg  Register
	Slot uint32
}

// PromoteImm retires a value-stack local and replaces it with a newly
// allocated cell holding the local's current value, for OpPromoteToCapture
// (§4.1: "promoted to capture slots retroactively"). Every OpGetLocal/
// OpSetLocal the builder would otherwise have emitted for LocalSlot after
// this point is emitted as OpGetCapture/OpSetCapture at CellSlot instead.
type PromoteImm struct {
	LocalSlot uint32
	CellSlot  uint32
}

// DynImm addresses a dynamically-resolved binding by interned name.
type DynImm struct {
	Reg  Register
	Name ident.ID
	// Kind distinguishes var/let/const/none for OpDeclareDynamic; zero
	// value for Get/Set.
	Kind uint8
}

// FieldImm addresses a property by a statically-known interned field id.
type FieldImm struct {
	Obj    Register
	Result Register // for reads: destination; for writes: value source
	Field  ident.ID
}

// FieldRegImm addresses a property whose key is a runtime value held in a
// register (computed member access, including `in`'s dynamic key).
type FieldRegImm struct {
	Obj    Register
	Key    Register
	Result Register
}

// CaptureSource describes, from the instantiating (enclosing) function's
// point of view, where one slot of a new closure's capture frame comes
// from: either one of the enclosing function's own promoted-local cells, or
// one the enclosing function itself already holds in its inherited capture
// frame (a pass-through, for a grandchild capturing a grandparent's
// variable). Order matches the closure's own capture-slot numbering.
type CaptureSource struct {
	FromInherited bool
	Index         uint32
}

// FuncImm names a previously-built FunctionDescriptor to instantiate as a
// closure over the current capture frame.
type FuncImm struct {
	Result   Register
	FuncID   uint32
	Captures []CaptureSource
}

// ClassImm names a class to instantiate via the runtime's class table. The
// constructor and every method/getter/setter registered under ClassID may
// each need their own capture frame; Captures here supplies the
// constructor's, keyed the same way as FuncImm.Captures. Method capture
// frames are supplied by MemberImm instead, since each is bound as its own
// separate opcode.
type ClassImm struct {
	Result   Register
	ClassID  uint32
	Captures []CaptureSource
}

// MemberImm binds a method/getter/setter/field to a class by class id and
// field name, static or instance per Static.
type MemberImm struct {
	ClassID  uint32
	Field    ident.ID
	FuncID   uint32 // 0/unused for field initializers without a function
	Static   bool
	Captures []CaptureSource
}

// ArrayOpImm appends (ArrayPush) or spreads (ArraySpread) Value's
// elements into Array during array-literal construction.
type ArrayOpImm struct {
	Array Register
	Value Register
}

// ObjectSetImm defines a non-computed property on Object by interned field
// name during object-literal construction.
type ObjectSetImm struct {
	Object Register
	Value  Register
	Field  ident.ID
}

// ObjectSetComputedImm defines a computed-key property on Object during
// object-literal construction.
type ObjectSetComputedImm struct {
	Object Register
	Key    Register
	Value  Register
}

// ObjectSpreadImm spreads Source's own enumerable properties into Object,
// the `...expr` form inside an object literal.
type ObjectSpreadImm struct {
	Object Register
	Source Register
}

// ArgsImm reserves or finalizes a contiguous argument span on the value
// stack for a pending call (§4.3 Call convention).
type ArgsImm struct {
	StackOffset uint32
	Len         uint32
}

// PushArgImm pushes a single (possibly spread) argument value into the
// pending argument span at StackOffset+Index.
type PushArgImm struct {
	Value Register
	Index uint32
}

// CallImm invokes Callee with This and the argument span
// [StackOffset, StackOffset+ArgsLen).
type CallImm struct {
	Result      Register
	This        Register
	Callee      Register
	StackOffset uint32
	ArgsLen     uint32
}

// IterSourceImm starts for-in/for-of iteration over a source value.
type IterSourceImm struct {
	Source Register
	Result Register // holds the iterator object
}

// IterNextImm writes the next value and a done flag.
type IterNextImm struct {
	Iter   Register
	Result Register
	Done   Register
}

// IterDropImm releases an iterator obtained from PrepareForIn/Of.
type IterDropImm struct {
	Iter Register
}

// IterCollectImm drains the remaining items of an iterator into a fresh
// array value, for a rest element in array destructuring (§4.1 Pattern
// assignment: rest element, array form).
type IterCollectImm struct {
	Iter   Register
	Result Register
}

// RestObjectImm builds a fresh plain object from Source's own enumerable
// properties, excluding Excluded, for a rest element in object
// destructuring (§4.1 Pattern assignment: rest element, object form).
type RestObjectImm struct {
	Source   Register
	Result   Register
	Excluded []ident.ID
}

// TryImm marks the start of a protected region; Line is patched to the
// catch block's instruction index by Linearize, exactly like JumpImm.
type TryImm struct {
	Catch Block
	Line  int32
}

// SelectImm implements Dst = Cond ? A : B. The interpreter executes it; the
// builder lowers destructuring defaults and short-circuit operators to
// explicit branches and does not emit it.
type SelectImm struct {
	Dst  Register
	Cond Register
	A    Register
	B    Register
}

// SuspendImm is shared by Await and Yield: Value is handed to the external
// driver; on resumption the driver writes the continuation value into
// Dest.
type SuspendImm struct {
	Value Register
	Dest  Register
}
