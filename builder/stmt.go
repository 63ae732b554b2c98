package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
)

// translateBody lowers a function body's top-level statement list.
func (fb *FunctionBuilder) translateBody(stmts []ast.Stmt) error {
	return fb.translateStmts(stmts)
}

// translateStmts lowers a statement list within the current scope,
// hoisting function declarations to the top the way §4.1 Control flow
// lowering requires: every FunctionDecl in the list is bound and
// instantiated before any other statement runs, regardless of its
// textual position.
func (fb *FunctionBuilder) translateStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if fd, ok := s.(*ast.FunctionDecl); ok {
			if err := fb.hoistFunctionDecl(fd); err != nil {
				return err
			}
		}
	}
	for _, s := range stmts {
		if _, ok := s.(*ast.FunctionDecl); ok {
			continue
		}
		if err := fb.translateStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fb *FunctionBuilder) hoistFunctionDecl(fd *ast.FunctionDecl) error {
	b := fb.declare(fd.Fn.Name, ast.DeclVar)
	if err := fb.translateFunctionExpr(fd.Fn); err != nil {
		return err
	}
	if b.class == ClassCapture {
		fb.emit(bytecode.OpSetCapture, bytecode.SlotImm{Reg: bytecode.R0, Slot: b.slot})
	} else {
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: b.slot})
	}
	return nil
}

func (fb *FunctionBuilder) translateStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.ExprStmt:
		return fb.translateExpr(n.Expr)
	case *ast.VarDecl:
		return fb.translateVarDecl(n)
	case *ast.BlockStmt:
		fb.pushScope()
		err := fb.translateStmts(n.Body)
		fb.popScope()
		return err
	case *ast.IfStmt:
		return fb.translateIf(n)
	case *ast.ForStmt:
		return fb.translateFor(n)
	case *ast.ForInStmt:
		return fb.translateForIn(n)
	case *ast.WhileStmt:
		return fb.translateWhile(n)
	case *ast.DoWhileStmt:
		return fb.translateDoWhile(n)
	case *ast.BreakStmt:
		return fb.translateBreak(n)
	case *ast.ContinueStmt:
		return fb.translateContinue(n)
	case *ast.ReturnStmt:
		return fb.translateReturn(n)
	case *ast.ThrowStmt:
		if err := fb.translateExpr(n.Argument); err != nil {
			return err
		}
		fb.emit(bytecode.OpThrow, bytecode.RegImm{Src: bytecode.R0})
		return nil
	case *ast.TryStmt:
		return fb.translateTry(n)
	case *ast.SwitchStmt:
		return fb.translateSwitch(n)
	case *ast.FunctionDecl:
		return nil // hoisted already by translateStmts
	case *ast.ClassDecl:
		return fb.translateClassDecl(n)
	case *ast.LabeledStmt:
		return fb.translateLabeled(n)
	case *ast.EmptyStmt:
		return nil
	case *ast.DebuggerStmt:
		fb.emit(bytecode.OpDebugger, bytecode.RegImm{})
		return nil
	default:
		return jserrors.Unimplemented("statement")
	}
}

func (fb *FunctionBuilder) translateVarDecl(n *ast.VarDecl) error {
	for _, d := range n.Declarations {
		if d.Init == nil {
			if id, ok := d.Target.(*ast.Identifier); ok {
				fb.declare(id.Name, n.Kind)
				continue
			}
			fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
			if err := fb.bindPattern(d.Target, bytecode.R0, n.Kind); err != nil {
				return err
			}
			continue
		}
		if err := fb.translateExpr(d.Init); err != nil {
			return err
		}
		if err := fb.bindPattern(d.Target, bytecode.R0, n.Kind); err != nil {
			return err
		}
	}
	return nil
}

func (fb *FunctionBuilder) translateIf(n *ast.IfStmt) error {
	thenB := fb.newBlock()
	join := fb.newBlock()
	var elseB bytecode.Block
	if n.Alternate != nil {
		elseB = fb.newBlock()
	} else {
		elseB = join
	}
	if err := fb.translateExpr(n.Test); err != nil {
		return err
	}
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: thenB})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: elseB})

	fb.switchTo(thenB)
	if err := fb.translateStmt(n.Consequent); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	if n.Alternate != nil {
		fb.switchTo(elseB)
		if err := fb.translateStmt(n.Alternate); err != nil {
			return err
		}
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})
	}

	fb.switchTo(join)
	return nil
}

func (fb *FunctionBuilder) translateWhile(n *ast.WhileStmt) error {
	test := fb.newBlock()
	body := fb.newBlock()
	done := fb.newBlock()
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(test)
	if err := fb.translateExpr(n.Test); err != nil {
		return err
	}
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: body})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})

	fb.switchTo(body)
	fb.pushLoop(n.Label, done, test)
	err := fb.translateStmt(n.Body)
	fb.popLoop()
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(done)
	return nil
}

func (fb *FunctionBuilder) translateDoWhile(n *ast.DoWhileStmt) error {
	body := fb.newBlock()
	test := fb.newBlock()
	done := fb.newBlock()
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: body})

	fb.switchTo(body)
	fb.pushLoop(n.Label, done, test)
	err := fb.translateStmt(n.Body)
	fb.popLoop()
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(test)
	if err := fb.translateExpr(n.Test); err != nil {
		return err
	}
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: body})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})

	fb.switchTo(done)
	return nil
}

func (fb *FunctionBuilder) translateFor(n *ast.ForStmt) error {
	fb.pushScope()
	defer fb.popScope()

	if n.Init != nil {
		if err := fb.translateStmt(n.Init); err != nil {
			return err
		}
	}

	test := fb.newBlock()
	body := fb.newBlock()
	update := fb.newBlock()
	done := fb.newBlock()
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(test)
	if n.Test != nil {
		if err := fb.translateExpr(n.Test); err != nil {
			return err
		}
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: body})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})
	} else {
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: body})
	}

	fb.switchTo(body)
	fb.pushLoop(n.Label, done, update)
	err := fb.translateStmt(n.Body)
	fb.popLoop()
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: update})

	fb.switchTo(update)
	if n.Update != nil {
		if err := fb.translateExpr(n.Update); err != nil {
			return err
		}
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(done)
	return nil
}

// translateForIn lowers both for-in and for-of via the same iterator
// protocol (§4.3): PrepareForIn/PrepareForOf differ only in what kind of
// iterator they hand back (key iteration vs the target's @@iterator).
func (fb *FunctionBuilder) translateForIn(n *ast.ForInStmt) error {
	if err := fb.translateExpr(n.Right); err != nil {
		return err
	}
	iterSlot := fb.allocStackSlot()
	op := bytecode.OpPrepareForIn
	if n.Of {
		op = bytecode.OpPrepareForOf
	}
	fb.emit(op, bytecode.IterSourceImm{Source: bytecode.R0, Result: bytecode.R1})
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})

	test := fb.newBlock()
	body := fb.newBlock()
	done := fb.newBlock()
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(test)
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})
	fb.emit(bytecode.OpIterNext, bytecode.IterNextImm{Iter: bytecode.R1, Result: bytecode.R2, Done: bytecode.R1})
	fb.emit(bytecode.OpJumpIfIterDone, bytecode.CondJumpImm{Cond: bytecode.R1, Target: done})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: body})

	fb.switchTo(body)
	fb.pushScope()
	target := n.Decl.Declarations[0].Target
	var err error
	if n.Decl.Kind != "" {
		err = fb.bindPattern(target, bytecode.R2, n.Decl.Kind)
	} else {
		err = fb.assignPattern(target, bytecode.R2)
	}
	if err != nil {
		fb.popScope()
		return err
	}

	// The body runs inside its own protected region so a throw out of it
	// still reaches IterDrop before propagating (§4.3, §8: "every path
	// leading out of the loop body reaches exactly one IterDrop" —
	// including the exceptional one; on a generator source this also
	// keeps its driver goroutine from staying parked forever).
	cleanup := fb.newBlock()
	fb.pushIterCleanup(iterSlot)
	fb.emit(bytecode.OpEnterTry, bytecode.TryImm{Catch: cleanup})
	fb.pushLoopOwning(n.Label, done, test, 1)
	err = fb.translateStmt(n.Body)
	fb.popLoop()
	fb.popScope()
	fb.popCleanup()
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: test})

	fb.switchTo(cleanup)
	fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})
	fb.emit(bytecode.OpIterDrop, bytecode.IterDropImm{Iter: bytecode.R1})
	fb.emit(bytecode.OpThrow, bytecode.RegImm{Src: bytecode.R0})

	fb.switchTo(done)
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})
	fb.emit(bytecode.OpIterDrop, bytecode.IterDropImm{Iter: bytecode.R1})
	return nil
}

func (fb *FunctionBuilder) translateBreak(n *ast.BreakStmt) error {
	e, err := fb.findLoop(n.Label)
	if err != nil {
		return err
	}
	if err := fb.exitToLoop(e); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: e.breakBlock})
	return nil
}

func (fb *FunctionBuilder) translateContinue(n *ast.ContinueStmt) error {
	e, err := fb.findLoop(n.Label)
	if err != nil {
		return err
	}
	if e.continueBlock == bytecode.NoBlock {
		return jserrors.IllegalContinue()
	}
	if err := fb.exitToLoop(e); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: e.continueBlock})
	return nil
}

func (fb *FunctionBuilder) translateReturn(n *ast.ReturnStmt) error {
	if n.Argument == nil {
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
	} else if err := fb.translateExpr(n.Argument); err != nil {
		return err
	}
	if len(fb.cleanups) == 0 {
		fb.emit(bytecode.OpReturn, bytecode.RegImm{Src: bytecode.R0})
		return nil
	}
	// A pending finally/IterDrop must run before the value actually
	// returns, and must not observe or clobber it (§4.3, §8) — stash it
	// across the cleanup the same way applyDefault stashes a value across
	// a conditional splice.
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	if err := fb.runCleanups(0); err != nil {
		return err
	}
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(bytecode.OpReturn, bytecode.RegImm{Src: bytecode.R0})
	return nil
}

// translateTry lowers try/catch/finally (§4.3 Exception handling state
// machine; §8). A finally block is spliced at every exit from the
// try/catch: the normal fall-through, a caught exception that completes
// normally, an uncaught exception (no catch, or catch itself throws), and
// any return/break/continue that statically leaves the protected region
// via runCleanups. Catch bodies that can themselves throw are wrapped in
// their own nested protected region so that path also reaches the finally,
// with the newly thrown value (not the original) the one that propagates.
func (fb *FunctionBuilder) translateTry(n *ast.TryStmt) error {
	catchBlock := fb.newBlock()
	afterTry := fb.newBlock()
	hasFinally := n.Finally != nil
	var rethrowBlock bytecode.Block
	if hasFinally {
		rethrowBlock = fb.newBlock()
	}

	// Each currently-open protected region (the try block, and — when a
	// caught body is itself re-protected below — the catch body) gets its
	// own cleanup frame, pushed right after its OpEnterTry and popped
	// right before the matching static OpExitTry: runCleanups must always
	// find exactly one cleanup frame per try-stack entry actually open at
	// that point, never one stale frame left over from a region whose
	// OpExitTry already ran.
	fb.inProtected++
	fb.emit(bytecode.OpEnterTry, bytecode.TryImm{Catch: catchBlock})
	if hasFinally {
		fb.pushFinallyCleanup(n.Finally)
	}
	blockErr := fb.translateStmts(n.Block)
	if hasFinally {
		fb.popCleanup()
	}
	fb.inProtected--
	if blockErr != nil {
		return blockErr
	}
	fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: afterTry})

	fb.switchTo(catchBlock)
	fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
	switch {
	case n.Catch != nil && hasFinally:
		secondCatch := fb.newBlock()
		fb.emit(bytecode.OpEnterTry, bytecode.TryImm{Catch: secondCatch})
		fb.pushFinallyCleanup(n.Finally)
		fb.pushScope()
		if n.Catch.Param != nil {
			if err := fb.bindPattern(n.Catch.Param, bytecode.R0, ast.DeclLet); err != nil {
				fb.popScope()
				fb.popCleanup()
				return err
			}
		}
		err := fb.translateStmts(n.Catch.Body)
		fb.popScope()
		fb.popCleanup()
		if err != nil {
			return err
		}
		fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: afterTry})

		fb.switchTo(secondCatch)
		fb.emit(bytecode.OpExitTry, bytecode.RegImm{})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: rethrowBlock})

	case n.Catch != nil:
		fb.pushScope()
		if n.Catch.Param != nil {
			if err := fb.bindPattern(n.Catch.Param, bytecode.R0, ast.DeclLet); err != nil {
				fb.popScope()
				return err
			}
		}
		err := fb.translateStmts(n.Catch.Body)
		fb.popScope()
		if err != nil {
			return err
		}
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: afterTry})

	case hasFinally:
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: rethrowBlock})

	default:
		fb.emit(bytecode.OpThrow, bytecode.RegImm{Src: bytecode.R0})
	}

	if hasFinally {
		fb.switchTo(rethrowBlock)
		fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
		if err := fb.translateStmts(n.Finally); err != nil {
			return err
		}
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R0})
		fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
		fb.emit(bytecode.OpThrow, bytecode.RegImm{Src: bytecode.R0})
	}

	fb.switchTo(afterTry)
	if hasFinally {
		return fb.translateStmts(n.Finally)
	}
	return nil
}

// translateSwitch lowers a switch statement as a chain of strict-equality
// tests against the discriminant, each taken branch falling through to the
// next case's block exactly as source order and an absent `break` would
// (§4.1 Control flow lowering).
func (fb *FunctionBuilder) translateSwitch(n *ast.SwitchStmt) error {
	if err := fb.translateExpr(n.Discriminant); err != nil {
		return err
	}
	discSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: discSlot})

	caseBlocks := make([]bytecode.Block, len(n.Cases))
	for i := range n.Cases {
		caseBlocks[i] = fb.newBlock()
	}
	done := fb.newBlock()

	defaultIdx := -1
	for i, c := range n.Cases {
		if c.Expr == nil {
			defaultIdx = i
			continue
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: discSlot})
		if err := fb.translateExpr(c.Expr); err != nil {
			return err
		}
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: caseBlocks[i]})
	}
	if defaultIdx >= 0 {
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: caseBlocks[defaultIdx]})
	} else {
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})
	}

	fb.pushScope()
	fb.pushLoop("", done, bytecode.NoBlock)
	for i, c := range n.Cases {
		fb.switchTo(caseBlocks[i])
		if err := fb.translateStmts(c.Body); err != nil {
			fb.popLoop()
			fb.popScope()
			return err
		}
	}
	fb.popLoop()
	fb.popScope()
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})

	fb.switchTo(done)
	return nil
}

func (fb *FunctionBuilder) translateClassDecl(n *ast.ClassDecl) error {
	if err := fb.translateClassExpr(n.Class); err != nil {
		return err
	}
	if n.Class.Name == "" {
		return nil
	}
	b := fb.declare(n.Class.Name, ast.DeclLet)
	if b.class == ClassCapture {
		fb.emit(bytecode.OpSetCapture, bytecode.SlotImm{Reg: bytecode.R0, Slot: b.slot})
	} else {
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: b.slot})
	}
	return nil
}

// translateLabeled attaches a label to its immediate loop body so
// break/continue can target it by name; a label on any other statement
// only supports a labeled break (§4.1: "a break/continue with a label
// searches the loop stack").
func (fb *FunctionBuilder) translateLabeled(n *ast.LabeledStmt) error {
	switch body := n.Body.(type) {
	case *ast.ForStmt:
		body.Label = n.Label
		return fb.translateStmt(body)
	case *ast.ForInStmt:
		body.Label = n.Label
		return fb.translateStmt(body)
	case *ast.WhileStmt:
		body.Label = n.Label
		return fb.translateStmt(body)
	case *ast.DoWhileStmt:
		body.Label = n.Label
		return fb.translateStmt(body)
	default:
		done := fb.newBlock()
		fb.pushLoop(n.Label, done, bytecode.NoBlock)
		err := fb.translateStmt(n.Body)
		fb.popLoop()
		if err != nil {
			return err
		}
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: done})
		fb.switchTo(done)
		return nil
	}
}
