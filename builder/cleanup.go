package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
)

// cleanupKind distinguishes the two things a non-local exit must run before
// it leaves a protected region (§4.3 Exception handling state machine; §8):
// a user `finally` block, or closing an open for-in/for-of iterator.
type cleanupKind int

const (
	cleanupFinally cleanupKind = iota
	cleanupIterDrop
)

// cleanup is one pending region a static return/break/continue must unwind
// before it actually leaves — every such frame corresponds one-to-one with
// an OpEnterTry that hasn't reached its OpExitTry yet on this path, so
// unwinding it always means emitting that ExitTry before running (or, for
// a loop's own frame exited via break/continue to that same loop, skipping)
// the frame's action.
type cleanup struct {
	kind         cleanupKind
	finallyStmts []ast.Stmt
	iterSlot     uint32
}

func (fb *FunctionBuilder) pushFinallyCleanup(stmts []ast.Stmt) {
	fb.cleanups = append(fb.cleanups, cleanup{kind: cleanupFinally, finallyStmts: stmts})
}

func (fb *FunctionBuilder) pushIterCleanup(slot uint32) {
	fb.cleanups = append(fb.cleanups, cleanup{kind: cleanupIterDrop, iterSlot: slot})
}

func (fb *FunctionBuilder) popCleanup() {
	fb.cleanups = fb.cleanups[:len(fb.cleanups)-1]
}

// runCleanups emits, for every cleanup frame from the innermost (top of the
// stack) down to and including floor, the ExitTry that balances its
// OpEnterTry followed by its action: a finally block's statements
// (re-translated at this exit point, since it may run from several static
// exits) or an iterator's IterDrop. This is what a `return` — which always
// passes floor 0 — or a break/continue that crosses one or more try/
// iterator boundaries on its way to an enclosing loop must run first
// (§4.3, §8: "every path leading out of the loop body reaches exactly one
// IterDrop"; "finally blocks execute on every exit path").
//
// A finally frame's own statements are translated with fb.cleanups
// temporarily truncated to below the frame itself, so a nested return/
// break/continue inside the finally body unwinds only the regions still
// outside it, never re-entering the finally that contains it.
func (fb *FunctionBuilder) runCleanups(floor int) error {
	for i := len(fb.cleanups) - 1; i >= floor; i-- {
		c := fb.cleanups[i]
		fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
		switch c.kind {
		case cleanupFinally:
			saved := fb.cleanups
			fb.cleanups = fb.cleanups[:i]
			err := fb.translateStmts(c.finallyStmts)
			fb.cleanups = saved
			if err != nil {
				return err
			}
		case cleanupIterDrop:
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: c.iterSlot})
			fb.emit(bytecode.OpIterDrop, bytecode.IterDropImm{Iter: bytecode.R1})
		}
	}
	return nil
}

// exitToLoop emits whatever a break/continue targeting e must run before
// its jump: a full unwind (runCleanups) of every frame opened strictly
// inside the loop body, then a bare ExitTry (no action) for the loop's own
// cleanup frame, if it owns one — its break/continue target block (done or
// test) performs the actual IterDrop exactly once, so running it here too
// would double-close the iterator.
func (fb *FunctionBuilder) exitToLoop(e loopEntry) error {
	if err := fb.runCleanups(e.nestedFloor); err != nil {
		return err
	}
	for i := 0; i < e.ownFrames; i++ {
		fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
	}
	return nil
}
