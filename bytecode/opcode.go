package bytecode

// Op identifies one bytecode operation. The interpreter precompiles each Op
// into a dedicated dispatch closure (§4.3); the builder never emits an Op
// it does not also know how to pair with the right Imm type (see instr.go).
type Op uint16

// Pseudo-ops: block declaration and control-flow block switching. These
// exist purely for the builder; CreateBlock/SwitchToBlock never appear in
// the linearized stream the interpreter executes (see program.go).
const (
	OpCreateBlock Op = iota
	OpSwitchToBlock

	// Jumps. JumpImm/CondJumpImm's Line field is patched to an instruction
	// index by Linearize; the builder leaves it zero.
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfIterDone

	// Literal loads.
	OpLoadUndefined
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpLoadThis
	OpLoadNewTarget
	OpLoadNumber // ConstImm: number or bigint literal via constant pool (the builder loads every one this way)
	OpLoadInt32  // Int32Imm carries the int32 directly
	OpLoadString // ConstImm: interned string constant id
	OpLoadRegex  // ConstImm: compiled regex handle id

	// Temp stack, a strict LIFO (§4.1 Expression lowering contract).
	OpStoreTemp
	OpReadTemp
	OpReleaseTemp

	// Generic two-register binary operators (ApplyStringOrNumericBinaryOperator
	// and the comparison/logical family), using BinImm{Dst, L, R}.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpShl
	OpShr
	OpUShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpEqEq
	OpNotEq
	OpEqEqEq
	OpNotEqEq
	OpIn
	OpInstanceOf

	// Specialized immediate-operand binary ops — pure optimisations that
	// must agree bit-for-bit with the generic form (§4.1 Operator lowering).
	OpAddImmI32
	OpAddImmF32
	OpAddImmStr
	OpSubImmI32
	OpMulImmI32
	OpLtImmI32
	OpGtImmI32

	// Unary operators.
	OpNeg
	OpPos
	OpBitNotOp
	OpLogicalNot
	OpTypeOf
	OpVoidOp
	// OpDeleteOp deletes a property (FieldRegImm's Obj/Key), writing
	// success as a boolean into Result. `delete` on a bare identifier is a
	// no-op per §9 Design Notes and never reaches this opcode — the
	// builder lowers it directly to `true` instead.
	OpDeleteOp

	// Ternary/ short-circuit helper: Dst = Cond ? A : B (registers).
	OpSelect

	// Storage class opcodes (§4.1 Builder Context: stack slot / capture
	// slot / dynamic).
	OpGetLocal
	OpSetLocal
	// GetCapture/SetCapture address this function's OWN promoted-local
	// cells (the ones OpPromoteToCapture allocated in this same function).
	OpGetCapture
	OpSetCapture
	// GetInherited/SetInherited address the capture frame this function
	// instance received from its parent at creation time — variables it
	// captured by reference from an enclosing function (possibly forwarded
	// through several levels).
	OpGetInherited
	OpSetInherited
	OpGetDynamic
	OpSetDynamic
	OpDeclareDynamic
	// PromoteToCapture is emitted retroactively into an *enclosing*
	// function's stream once a nested function is found to capture a
	// stack-slot variable by reference (§4.1).
	OpPromoteToCapture

	// Property access. OptChain short-circuiting is built from explicit
	// nullish-check branches by the builder, not a dedicated opcode
	// family (§4.3, §9 Design Notes).
	OpReadFieldStatic
	OpWriteFieldStatic
	OpReadField  // dynamic key held in a register
	OpWriteField // dynamic key held in a register

	// Array/object literal construction.
	OpCreateArray
	OpArrayPush
	OpArraySpread
	OpCreateObject
	OpObjectSetStatic
	OpObjectSetComputed
	// DefineGetter/DefineSetter install an accessor property instead of a
	// data property; they reuse ObjectSetStatic/ObjectSetComputed's operand
	// shapes (ObjectSetImm/ObjectSetComputedImm), with Value the accessor
	// closure rather than a plain value.
	OpObjectDefineGetter
	OpObjectDefineSetter
	OpObjectDefineGetterComputed
	OpObjectDefineSetterComputed
	OpObjectSpread
	// CollectRestObject builds a fresh plain object from a source object's
	// own enumerable properties, excluding the keys an object pattern's
	// preceding properties already consumed (§4.1 Pattern assignment: rest
	// element, object form).
	OpCollectRestObject

	// Function/class construction.
	OpCreateFunction
	OpCreateArrow
	OpCreateClass
	OpBindMethod
	OpBindGetter
	OpBindSetter
	OpBindField
	OpBindPrivate

	// Call convention (§4.3). Method calls and super's constructor lookup
	// both lower to ordinary ReadField/dynamic-binding reads followed by a
	// plain Call, so there is no dedicated CallMethod/BindSuper opcode.
	OpCreateArg
	OpPushArg
	OpPushArgSpread
	OpFinishArgs
	OpCall
	OpNew
	OpReturn

	// Iterator protocol (§4.3).
	OpPrepareForIn
	OpPrepareForOf
	OpIterNext
	OpIterCollect
	OpIterDrop

	// Exception handling state machine (§4.3).
	OpEnterTry
	OpExitTry
	OpThrow

	// Suspension points — the only opcodes that may hand control back to
	// an external driver (§4.3, §5).
	OpAwait
	OpYield

	// Misc.
	// Move copies Src into Dst (RegImm), used where a value must land in a
	// register other than the one an expression naturally produced it in —
	// e.g. splicing a destructuring default back into a non-R0 slot.
	OpMove
	OpDebugger
	OpNop
)
