package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/runtime"
)

// loopEntry is one active loop/switch's break/continue targets, searched by
// label per §4.1 Control flow lowering.
type loopEntry struct {
	label         string // empty for an unlabeled loop
	breakBlock    bytecode.Block
	continueBlock bytecode.Block // NoBlock for switch, which has no continue target

	// nestedFloor is len(fb.cleanups) at the moment this loop was pushed —
	// the boundary above which a break/continue targeting this loop must
	// fully unwind (ExitTry plus the finally/IterDrop it guards) every
	// cleanup frame opened inside the loop body. ownFrames counts this
	// loop's own cleanup frame(s) (1 for for-in/for-of's iterator, 0
	// otherwise) sitting just below that boundary: those still need a bare
	// ExitTry to balance the OpEnterTry the loop body opened, but not the
	// frame's action, since the loop's own break/continue target block
	// (done/test) already performs it exactly once (§4.3, §8).
	nestedFloor int
	ownFrames   int
}

// FunctionBuilder lowers one function (or top-level script) body's AST into
// bytecode, consulting the shared Runtime for interning and registration.
type FunctionBuilder struct {
	rt     *runtime.Runtime
	parent *FunctionBuilder

	scopes []*scope

	nextStackSlot  uint32
	maxStackOffset uint32
	nextOwnCell    uint32

	captures    []bytecode.CaptureSource
	captureIndex map[ident.ID]uint32

	// classIDs maps a lexically visible class declaration's name to its
	// registered runtime.ClassID, searched the same way an identifier
	// resolves through the enclosing function chain — but classes are a
	// compile-time blueprint relationship, not a captured value, so this
	// is a plain name lookup rather than a capture-frame slot.
	classIDs map[string]runtime.ClassID

	buf       []bytecode.Instr
	nextBlock bytecode.Block
	loopStack []loopEntry

	// cleanups is the stack of currently-open protected regions a
	// non-local exit (return, or a break/continue crossing one) must
	// unwind — one frame per active OpEnterTry whose matching OpExitTry
	// hasn't run yet, each carrying either a `finally` block's statements
	// or a for-in/for-of loop's iterator slot to drop (§4.1, §4.3, §8: a
	// finally/IteratorClose runs on every exit path, not only normal
	// fall-through). See cleanup.go.
	cleanups []cleanup

	name        string
	arity       uint32
	isAsync     bool
	isGenerator bool
	hasRest     bool

	// inProtected counts nested try regions. translateTry increments and
	// decrements it and nothing reads it; the cleanups stack is what
	// drives exit behavior.
	inProtected int
}

// New creates the top-level FunctionBuilder for a script (no parent, no
// capture frame).
func New(rt *runtime.Runtime) *FunctionBuilder {
	return newFunctionBuilder(rt, nil, "", 0, false, false)
}

func newFunctionBuilder(rt *runtime.Runtime, parent *FunctionBuilder, name string, arity uint32, isAsync, isGenerator bool) *FunctionBuilder {
	fb := &FunctionBuilder{
		rt:           rt,
		parent:       parent,
		captureIndex: make(map[ident.ID]uint32),
		name:         name,
		arity:        arity,
		isAsync:      isAsync,
		isGenerator:  isGenerator,
	}
	fb.pushFunctionScope()
	return fb
}

func (fb *FunctionBuilder) emit(op bytecode.Op, imm any) {
	fb.buf = append(fb.buf, bytecode.Instr{Op: op, Imm: imm})
}

// newBlock allocates a fresh block id without declaring it yet.
func (fb *FunctionBuilder) newBlock() bytecode.Block {
	b := fb.nextBlock
	fb.nextBlock++
	fb.emit(bytecode.OpCreateBlock, bytecode.BlockImm{Block: b})
	return b
}

// switchTo marks subsequent instructions as belonging to b.
func (fb *FunctionBuilder) switchTo(b bytecode.Block) {
	fb.emit(bytecode.OpSwitchToBlock, bytecode.BlockImm{Block: b})
}

func (fb *FunctionBuilder) pushLoop(label string, breakBlock, continueBlock bytecode.Block) {
	fb.pushLoopOwning(label, breakBlock, continueBlock, 0)
}

// pushLoopOwning is pushLoop for a loop that just opened its own cleanup
// frame(s) (a for-in/for-of's iterator) — ownFrames must be called only
// after those frames are pushed, so nestedFloor excludes them.
func (fb *FunctionBuilder) pushLoopOwning(label string, breakBlock, continueBlock bytecode.Block, ownFrames int) {
	fb.loopStack = append(fb.loopStack, loopEntry{
		label: label, breakBlock: breakBlock, continueBlock: continueBlock,
		nestedFloor: len(fb.cleanups), ownFrames: ownFrames,
	})
}

func (fb *FunctionBuilder) popLoop() {
	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]
}

// findLoop searches the loop stack innermost-first for a break/continue
// target, honoring an optional label (§4.1: "a break/continue with a label
// searches the loop stack; an undefined label is a LabelUndefined build
// error").
func (fb *FunctionBuilder) findLoop(label string) (loopEntry, error) {
	for i := len(fb.loopStack) - 1; i >= 0; i-- {
		e := fb.loopStack[i]
		if label == "" || e.label == label {
			return e, nil
		}
	}
	if label != "" {
		return loopEntry{}, jserrors.LabelUndefined(label)
	}
	return loopEntry{}, jserrors.IllegalBreak()
}

// Finish finalizes the function: appends an implicit `return undefined`,
// linearizes the block-structured buffer, registers a FunctionDescriptor
// with the runtime, and returns its FuncID plus the capture sources the
// instantiating CreateFunction/CreateArrow/CreateClass opcode must supply.
func (fb *FunctionBuilder) Finish() (runtime.FuncID, []bytecode.CaptureSource, error) {
	fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpReturn, bytecode.RegImm{Src: bytecode.R0})

	program, err := bytecode.Linearize(fb.buf)
	if err != nil {
		return 0, nil, jserrors.Wrap(jserrors.PhaseBuild, jserrors.KindInternal, err, "linearizing function "+fb.name)
	}

	desc := &runtime.FunctionDescriptor{
		IsAsync:         fb.isAsync,
		IsGenerator:     fb.isGenerator,
		Arity:           fb.arity,
		HasRestParam:    fb.hasRest,
		MaxStackOffset:  fb.maxStackOffset,
		CaptureSize:     uint32(len(fb.captures)),
		OwnCaptureSlots: fb.nextOwnCell,
		Bytecode:        program,
		Name:            fb.name,
	}
	id := fb.rt.NewFunction(desc)
	return id, fb.captures, nil
}

// BuildScript lowers a top-level statement list into a registered
// FunctionDescriptor in one call, for a host that has nothing nested to
// build around it (cmd/jsrun's REPL; a future "compile a whole file" batch
// mode). Anything that needs a child FunctionBuilder — a function or class
// expression nested inside stmts — is handled internally via
// translateFunctionExpr/translateClassExpr the same way it would be for a
// full program.
func BuildScript(rt *runtime.Runtime, stmts []ast.Stmt) (runtime.FuncID, error) {
	fb := New(rt)
	if err := fb.translateBody(stmts); err != nil {
		return 0, err
	}
	id, _, err := fb.Finish()
	return id, err
}

// declareParams binds each formal parameter in order, reading argument
// values off the value stack (the interpreter guarantees slots
// [0,arity) hold the positional arguments on entry, per §4.3 Call
// convention) and lowering any destructuring/default pattern.
func (fb *FunctionBuilder) declareParams(params []ast.Param) error {
	for i, p := range params {
		slot := fb.allocStackSlot()
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: uint32(i)})
		if p.Rest {
			fb.hasRest = true
			fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: slot})
			if err := fb.bindPattern(p.Target, bytecode.R0, ast.DeclLet); err != nil {
				return err
			}
			continue
		}
		if p.Default != nil {
			if err := fb.applyDefault(bytecode.R0, p.Default); err != nil {
				return err
			}
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: slot})
		if err := fb.bindPattern(p.Target, bytecode.R0, ast.DeclLet); err != nil {
			return err
		}
	}
	return nil
}

// applyDefault replaces an undefined value in R0 with the evaluated default
// expression (§4.1 Pattern assignment: assignment pattern).
func (fb *FunctionBuilder) applyDefault(reg bytecode.Register, def ast.Expr) error {
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: reg})
	isUndef := fb.newBlock()
	hasValue := fb.newBlock()
	join := fb.newBlock()
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R2})
	fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: isUndef})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: hasValue})

	fb.switchTo(isUndef)
	if err := fb.translateExpr(def); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(hasValue)
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	return nil
}
