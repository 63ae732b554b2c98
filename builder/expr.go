package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
)

// translateExpr lowers e, leaving its value in R0 (§4.1 Expression lowering
// contract). It may clobber R1/R2 freely; anything the caller needs
// preserved across a nested translateExpr call must go through
// StoreTemp/ReadTemp/ReleaseTemp.
func (fb *FunctionBuilder) translateExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Identifier:
		return fb.translateIdentifier(n)
	case *ast.NumberLiteral:
		return fb.loadNumber(n.Value)
	case *ast.StringLiteral:
		fb.emit(bytecode.OpLoadString, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.internString(n.Value)})
		return nil
	case *ast.BoolLiteral:
		if n.Value {
			fb.emit(bytecode.OpLoadTrue, bytecode.RegImm{Dst: bytecode.R0})
		} else {
			fb.emit(bytecode.OpLoadFalse, bytecode.RegImm{Dst: bytecode.R0})
		}
		return nil
	case *ast.NullLiteral:
		fb.emit(bytecode.OpLoadNull, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	case *ast.UndefinedLiteral:
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	case *ast.BigIntLiteral:
		return fb.loadBigInt(n.Raw)
	case *ast.RegexLiteral:
		return fb.loadRegex(n.Pattern, n.Flags)
	case *ast.ThisExpr:
		fb.emit(bytecode.OpLoadThis, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	case *ast.NewTargetExpr:
		fb.emit(bytecode.OpLoadNewTarget, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	case *ast.SuperExpr:
		return fb.translateIdentifierByName("SUPER CONSTRUCTOR")
	case *ast.BinaryExpr:
		return fb.translateBinary(n)
	case *ast.LogicalExpr:
		return fb.translateLogical(n)
	case *ast.UnaryExpr:
		return fb.translateUnary(n)
	case *ast.UpdateExpr:
		return fb.translateUpdate(n)
	case *ast.AssignExpr:
		return fb.translateAssign(n)
	case *ast.ConditionalExpr:
		return fb.translateConditional(n)
	case *ast.SequenceExpr:
		for _, sub := range n.Exprs {
			if err := fb.translateExpr(sub); err != nil {
				return err
			}
		}
		return nil
	case *ast.MemberExpr:
		return fb.translateMember(n, false)
	case *ast.CallExpr:
		return fb.translateCall(n)
	case *ast.NewExpr:
		return fb.translateNew(n)
	case *ast.ArrayLiteral:
		return fb.translateArrayLiteral(n)
	case *ast.ObjectLiteral:
		return fb.translateObjectLiteral(n)
	case *ast.TemplateLiteral:
		return fb.translateTemplate(n)
	case *ast.FunctionExpr:
		return fb.translateFunctionExpr(n)
	case *ast.ClassExpr:
		return fb.translateClassExpr(n)
	case *ast.AwaitExpr:
		return fb.translateAwait(n)
	case *ast.YieldExpr:
		return fb.translateYield(n)
	default:
		return jserrors.Unimplemented("expression")
	}
}

// translateAwait lowers `await <arg>` to the generic Suspend opcode pair:
// the argument lands in R0, Await hands it to the runtime's synchronous
// resolution rule (§4.3) and writes the resumption value back into R0.
func (fb *FunctionBuilder) translateAwait(n *ast.AwaitExpr) error {
	if err := fb.translateExpr(n.Arg); err != nil {
		return err
	}
	fb.emit(bytecode.OpAwait, bytecode.SuspendImm{Value: bytecode.R0, Dest: bytecode.R0})
	return nil
}

// translateYield lowers `yield <arg>` / `yield` to a single Suspend opcode
// that hands the value to the generator's driver and writes whatever the
// caller passed to Generator.next(v) back into R0.
//
// `yield*` instead prepares a PrepareForOf iterator over the delegate
// source and re-yields each drained element in turn — the delegate's own
// `next(v)` input is not round-tripped back into it, a documented
// simplification (§9).
func (fb *FunctionBuilder) translateYield(n *ast.YieldExpr) error {
	if n.Delegate {
		if err := fb.translateExpr(n.Arg); err != nil {
			return err
		}
		iterSlot := fb.allocStackSlot()
		fb.emit(bytecode.OpPrepareForOf, bytecode.IterSourceImm{Source: bytecode.R0, Result: bytecode.R1})
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})

		head := fb.newBlock()
		body := fb.newBlock()
		exit := fb.newBlock()
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: head})

		fb.switchTo(head)
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})
		fb.emit(bytecode.OpIterNext, bytecode.IterNextImm{Iter: bytecode.R1, Result: bytecode.R2, Done: bytecode.R1})
		fb.emit(bytecode.OpJumpIfIterDone, bytecode.CondJumpImm{Cond: bytecode.R1, Target: exit})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: body})

		fb.switchTo(body)
		fb.emit(bytecode.OpYield, bytecode.SuspendImm{Value: bytecode.R2, Dest: bytecode.R0})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: head})

		fb.switchTo(exit)
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: iterSlot})
		fb.emit(bytecode.OpIterDrop, bytecode.IterDropImm{Iter: bytecode.R1})
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	}

	if n.Arg != nil {
		if err := fb.translateExpr(n.Arg); err != nil {
			return err
		}
	} else {
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
	}
	fb.emit(bytecode.OpYield, bytecode.SuspendImm{Value: bytecode.R0, Dest: bytecode.R0})
	return nil
}

func (fb *FunctionBuilder) internString(s string) uint32 {
	return fb.rt.InternConst(fb.rt.InternString(s))
}

func (fb *FunctionBuilder) loadNumber(f float64) error {
	fb.emit(bytecode.OpLoadNumber, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.rt.InternConst(numberValue(f))})
	return nil
}

func (fb *FunctionBuilder) loadBigInt(raw string) error {
	n, ok := parseBigInt(raw)
	if !ok {
		return jserrors.SyntaxErrorf(jserrors.PhaseBuild, "invalid bigint literal %q", raw)
	}
	fb.emit(bytecode.OpLoadNumber, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.rt.InternConst(fb.rt.NewBigInt(n))})
	return nil
}

func (fb *FunctionBuilder) loadRegex(pattern, flags string) error {
	handle, err := fb.rt.CompileRegex(pattern, flags)
	if err != nil {
		return jserrors.Wrap(jserrors.PhaseBuild, jserrors.KindUnimplemented, err, "regex literal /"+pattern+"/"+flags)
	}
	fb.emit(bytecode.OpLoadRegex, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.rt.NewRegex(handle)})
	return nil
}

func (fb *FunctionBuilder) translateIdentifier(n *ast.Identifier) error {
	return fb.translateIdentifierByName(n.Name)
}

func (fb *FunctionBuilder) translateIdentifierByName(name string) error {
	if local, ok := fb.lookupLocal(fb.rt.Fields().Intern(name)); ok && local.class == ClassCapture {
		fb.emit(bytecode.OpGetCapture, bytecode.SlotImm{Reg: bytecode.R0, Slot: local.slot})
		return nil
	}
	res := fb.resolve(name)
	switch res.class {
	case ClassStack:
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: res.slot})
	case ClassCapture:
		fb.emit(bytecode.OpGetInherited, bytecode.SlotImm{Reg: bytecode.R0, Slot: res.slot})
	default:
		fb.emit(bytecode.OpGetDynamic, bytecode.DynImm{Reg: bytecode.R0, Name: fb.rt.Fields().Intern(name)})
	}
	return nil
}

// writeIdentifier stores R0 into name's resolved storage.
func (fb *FunctionBuilder) writeIdentifier(name string) error {
	return fb.writeIdentifierFrom(name, bytecode.R0)
}

// writeIdentifierFrom stores reg into name's resolved storage.
func (fb *FunctionBuilder) writeIdentifierFrom(name string, reg bytecode.Register) error {
	id := fb.rt.Fields().Intern(name)
	if local, ok := fb.lookupLocal(id); ok {
		if local.class == ClassCapture {
			fb.emit(bytecode.OpSetCapture, bytecode.SlotImm{Reg: reg, Slot: local.slot})
		} else {
			fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: reg, Slot: local.slot})
		}
		return nil
	}
	res := fb.resolve(name)
	switch res.class {
	case ClassCapture:
		fb.emit(bytecode.OpSetInherited, bytecode.SlotImm{Reg: reg, Slot: res.slot})
	default:
		fb.emit(bytecode.OpSetDynamic, bytecode.DynImm{Reg: reg, Name: id})
	}
	return nil
}

var binOpcode = map[ast.BinaryOp]bytecode.Op{
	ast.OpAdd: bytecode.OpAdd, ast.OpSub: bytecode.OpSub, ast.OpMul: bytecode.OpMul,
	ast.OpDiv: bytecode.OpDiv, ast.OpMod: bytecode.OpMod, ast.OpPow: bytecode.OpPow,
	ast.OpShl: bytecode.OpShl, ast.OpShr: bytecode.OpShr, ast.OpUShr: bytecode.OpUShr,
	ast.OpBitAnd: bytecode.OpBitAnd, ast.OpBitOr: bytecode.OpBitOr, ast.OpBitXor: bytecode.OpBitXor,
	ast.OpLt: bytecode.OpLt, ast.OpLtEq: bytecode.OpLtEq, ast.OpGt: bytecode.OpGt, ast.OpGtEq: bytecode.OpGtEq,
	ast.OpEqEq: bytecode.OpEqEq, ast.OpNotEq: bytecode.OpNotEq,
	ast.OpEqEqEq: bytecode.OpEqEqEq, ast.OpNotEqEq: bytecode.OpNotEqEq,
	ast.OpIn: bytecode.OpIn, ast.OpInstance: bytecode.OpInstanceOf,
}

func (fb *FunctionBuilder) translateBinary(n *ast.BinaryExpr) error {
	if n.Op == ast.OpIn {
		if _, isNum := n.Left.(*ast.NumberLiteral); isNum {
			return jserrors.TypeErrorf(jserrors.PhaseBuild, "left-hand side of 'in' cannot be a numeric literal")
		}
	}
	op, ok := binOpcode[n.Op]
	if !ok {
		return jserrors.Unimplemented("binary operator " + string(n.Op))
	}
	if imm, ok := fb.tryImmediateBinary(n.Op, n.Left, n.Right); ok {
		return imm()
	}
	if err := fb.translateExpr(n.Left); err != nil {
		return err
	}
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	if err := fb.translateExpr(n.Right); err != nil {
		return err
	}
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(op, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})
	return nil
}

// tryImmediateBinary recognizes the specialized immediate-operand forms
// (§4.1 Operator lowering): a literal int32/float32/string right-hand side
// lets the builder skip the temp-stack dance entirely. Returns a thunk to
// run instead of the generic path, or ok=false to fall back.
func (fb *FunctionBuilder) tryImmediateBinary(op ast.BinaryOp, left, right ast.Expr) (func() error, bool) {
	lit, isNum := right.(*ast.NumberLiteral)
	if isNum {
		if i32, exact := asExactInt32(lit.Value); exact {
			switch op {
			case ast.OpAdd:
				return fb.immInt32(left, bytecode.OpAddImmI32, i32), true
			case ast.OpSub:
				return fb.immInt32(left, bytecode.OpSubImmI32, i32), true
			case ast.OpMul:
				return fb.immInt32(left, bytecode.OpMulImmI32, i32), true
			case ast.OpLt:
				return fb.immInt32(left, bytecode.OpLtImmI32, i32), true
			case ast.OpGt:
				return fb.immInt32(left, bytecode.OpGtImmI32, i32), true
			}
		}
		if op == ast.OpAdd && float64(float32(lit.Value)) == lit.Value {
			return func() error {
				if err := fb.translateExpr(left); err != nil {
					return err
				}
				fb.emit(bytecode.OpAddImmF32, bytecode.ImmBinImm{Dst: bytecode.R0, L: bytecode.R0, F32: float32(lit.Value)})
				return nil
			}, true
		}
	}
	if str, isStr := right.(*ast.StringLiteral); isStr && op == ast.OpAdd {
		id := fb.internString(str.Value)
		return func() error {
			if err := fb.translateExpr(left); err != nil {
				return err
			}
			fb.emit(bytecode.OpAddImmStr, bytecode.ImmBinImm{Dst: bytecode.R0, L: bytecode.R0, ConstID: id})
			return nil
		}, true
	}
	return nil, false
}

func (fb *FunctionBuilder) immInt32(left ast.Expr, op bytecode.Op, i32 int32) func() error {
	return func() error {
		if err := fb.translateExpr(left); err != nil {
			return err
		}
		fb.emit(op, bytecode.ImmBinImm{Dst: bytecode.R0, L: bytecode.R0, Int32: i32})
		return nil
	}
}

// translateLogical lowers &&, ||, and ?? as short-circuiting branches. The
// left value is preserved across the test via the temp stack; exactly one
// of the two paths (keep-left or evaluate-right) releases it, so every
// path out of this expression balances its StoreTemp with one ReleaseTemp.
func (fb *FunctionBuilder) translateLogical(n *ast.LogicalExpr) error {
	if err := fb.translateExpr(n.Left); err != nil {
		return err
	}
	rhs := fb.newBlock()
	keepLeft := fb.newBlock()
	join := fb.newBlock()
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})

	switch n.Op {
	case ast.OpLogAnd:
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R1, Target: rhs})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: keepLeft})
	case ast.OpLogOr:
		fb.emit(bytecode.OpJumpIfFalse, bytecode.CondJumpImm{Cond: bytecode.R1, Target: rhs})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: keepLeft})
	default: // ??
		fb.emit(bytecode.OpLoadNull, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		checkUndef := fb.newBlock()
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: rhs})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: checkUndef})

		fb.switchTo(checkUndef)
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: rhs})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: keepLeft})
	}

	fb.switchTo(rhs)
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	if err := fb.translateExpr(n.Right); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(keepLeft)
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}

func (fb *FunctionBuilder) translateUnary(n *ast.UnaryExpr) error {
	if n.Op == ast.OpDelete {
		return fb.translateDelete(n.Operand)
	}
	if n.Op == ast.OpTypeof {
		if id, ok := n.Operand.(*ast.Identifier); ok {
			if fb.resolve(id.Name).class == ClassDynamic {
				if _, local := fb.lookupLocal(fb.rt.Fields().Intern(id.Name)); !local {
					fb.emit(bytecode.OpGetDynamic, bytecode.DynImm{Reg: bytecode.R0, Name: fb.rt.Fields().Intern(id.Name)})
					fb.emit(bytecode.OpTypeOf, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
					return nil
				}
			}
		}
	}
	if err := fb.translateExpr(n.Operand); err != nil {
		return err
	}
	switch n.Op {
	case ast.OpNeg:
		fb.emit(bytecode.OpNeg, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	case ast.OpPos:
		fb.emit(bytecode.OpPos, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	case ast.OpNot:
		fb.emit(bytecode.OpLogicalNot, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	case ast.OpBitNot:
		fb.emit(bytecode.OpBitNotOp, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	case ast.OpTypeof:
		fb.emit(bytecode.OpTypeOf, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	case ast.OpVoid:
		fb.emit(bytecode.OpVoidOp, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R0})
	default:
		return jserrors.Unimplemented("unary operator " + string(n.Op))
	}
	return nil
}

func (fb *FunctionBuilder) translateDelete(target ast.Expr) error {
	m, ok := target.(*ast.MemberExpr)
	if !ok {
		fb.emit(bytecode.OpLoadTrue, bytecode.RegImm{Dst: bytecode.R0})
		return nil
	}
	if err := fb.translateExpr(m.Object); err != nil {
		return err
	}
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	if err := fb.loadMemberKey(m); err != nil {
		return err
	}
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(bytecode.OpDeleteOp, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R0, Result: bytecode.R0})
	return nil
}

func (fb *FunctionBuilder) translateConditional(n *ast.ConditionalExpr) error {
	thenB := fb.newBlock()
	elseB := fb.newBlock()
	join := fb.newBlock()
	if err := fb.translateExpr(n.Test); err != nil {
		return err
	}
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R0, Target: thenB})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: elseB})

	fb.switchTo(thenB)
	if err := fb.translateExpr(n.Then); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(elseB)
	if err := fb.translateExpr(n.Else); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}
