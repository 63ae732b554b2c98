package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/jserrors"
)

// translateMember lowers a property read, including `?.`'s short-circuit
// (§4.3 Optional chaining: the builder emits an explicit nullish-check
// block pair rather than a dedicated opcode). Optional chaining here
// short-circuits only the immediate access, not an entire `a?.b.c` chain.
func (fb *FunctionBuilder) translateMember(n *ast.MemberExpr, _ bool) error {
	if err := fb.translateExpr(n.Object); err != nil {
		return err
	}
	if !n.Optional {
		return fb.readMember(n)
	}

	objSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})
	isNullish := fb.newBlock()
	notNullish := fb.newBlock()
	join := fb.newBlock()
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	fb.emit(bytecode.OpLoadNull, bytecode.RegImm{Dst: bytecode.R2})
	fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: isNullish})
	fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R2})
	fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
	fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: isNullish})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: notNullish})

	fb.switchTo(isNullish)
	fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(notNullish)
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})
	if err := fb.readMember(n); err != nil {
		return err
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}

// readMember reads a property off the object currently in R0, leaving the
// result in R0.
func (fb *FunctionBuilder) readMember(n *ast.MemberExpr) error {
	if n.Computed {
		objSlot := fb.allocStackSlot()
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})
		if err := fb.translateExpr(n.Property); err != nil {
			return err
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
		fb.emit(bytecode.OpReadField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R0, Result: bytecode.R0})
		return nil
	}
	name, err := staticKeyName(n.Property)
	if err != nil {
		return err
	}
	id := fb.rt.Fields().Intern(name)
	fb.emit(bytecode.OpReadFieldStatic, bytecode.FieldImm{Obj: bytecode.R0, Result: bytecode.R0, Field: id})
	return nil
}

// loadMemberKey leaves m's property key (computed or static) in R0,
// without reading through the object — used by `delete`.
func (fb *FunctionBuilder) loadMemberKey(m *ast.MemberExpr) error {
	if m.Computed {
		return fb.translateExpr(m.Property)
	}
	name, err := staticKeyName(m.Property)
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpLoadString, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.internString(name)})
	return nil
}

// assignMemberFrom writes srcReg's value into m (§4.1 Pattern assignment:
// member-expression target). srcReg is read before m.Object/m.Property are
// evaluated, so it survives whatever registers those sub-evaluations use.
func (fb *FunctionBuilder) assignMemberFrom(m *ast.MemberExpr, srcReg bytecode.Register) error {
	valSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: srcReg, Slot: valSlot})

	if err := fb.translateExpr(m.Object); err != nil {
		return err
	}
	if !m.Computed {
		name, err := staticKeyName(m.Property)
		if err != nil {
			return err
		}
		id := fb.rt.Fields().Intern(name)
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: valSlot})
		fb.emit(bytecode.OpWriteFieldStatic, bytecode.FieldImm{Obj: bytecode.R0, Result: bytecode.R1, Field: id})
		return nil
	}
	objSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})
	if err := fb.translateExpr(m.Property); err != nil {
		return err
	}
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: valSlot})
	fb.emit(bytecode.OpWriteField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R0, Result: bytecode.R2})
	return nil
}

var compoundBinOpcode = map[string]bytecode.Op{
	"+=": bytecode.OpAdd, "-=": bytecode.OpSub, "*=": bytecode.OpMul,
	"/=": bytecode.OpDiv, "%=": bytecode.OpMod, "**=": bytecode.OpPow,
	"<<=": bytecode.OpShl, ">>=": bytecode.OpShr, ">>>=": bytecode.OpUShr,
	"&=": bytecode.OpBitAnd, "|=": bytecode.OpBitOr, "^=": bytecode.OpBitXor,
}

func (fb *FunctionBuilder) translateAssign(n *ast.AssignExpr) error {
	if n.Op == "=" {
		if err := fb.translateExpr(n.Value); err != nil {
			return err
		}
		fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
		if err := fb.assignPattern(n.Target, bytecode.R0); err != nil {
			return err
		}
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R0})
		fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
		return nil
	}
	if n.Op == "&&=" || n.Op == "||=" || n.Op == "??=" {
		return fb.translateLogicalAssign(n)
	}
	op, ok := compoundBinOpcode[n.Op]
	if !ok {
		return jserrors.Unimplemented("compound assignment operator " + n.Op)
	}
	switch target := n.Target.(type) {
	case *ast.Identifier:
		if err := fb.translateIdentifier(target); err != nil {
			return err
		}
		fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
		if err := fb.translateExpr(n.Value); err != nil {
			return err
		}
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
		fb.emit(op, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})
		return fb.writeIdentifier(target.Name)
	case *ast.MemberExpr:
		return fb.compoundAssignMember(target, op, n.Value)
	default:
		return jserrors.Unimplemented("compound assignment target")
	}
}

// compoundAssignMember lowers `obj.prop OP= value`: object and (if
// computed) key are stashed in scratch stack slots so they survive
// evaluating the current value, the right-hand side, and the operator
// itself before the final write.
func (fb *FunctionBuilder) compoundAssignMember(m *ast.MemberExpr, op bytecode.Op, valueExpr ast.Expr) error {
	objSlot := fb.allocStackSlot()
	if err := fb.translateExpr(m.Object); err != nil {
		return err
	}
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})

	var keySlot uint32
	var id ident.ID
	if m.Computed {
		keySlot = fb.allocStackSlot()
		if err := fb.translateExpr(m.Property); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: keySlot})
	} else {
		name, err := staticKeyName(m.Property)
		if err != nil {
			return err
		}
		id = fb.rt.Fields().Intern(name)
	}

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	if m.Computed {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: keySlot})
		fb.emit(bytecode.OpReadField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R2, Result: bytecode.R0})
	} else {
		fb.emit(bytecode.OpReadFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R0, Field: id})
	}

	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	if err := fb.translateExpr(valueExpr); err != nil {
		return err
	}
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(op, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	if m.Computed {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: keySlot})
		fb.emit(bytecode.OpWriteField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R2, Result: bytecode.R0})
	} else {
		fb.emit(bytecode.OpWriteFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R0, Field: id})
	}
	return nil
}

// translateLogicalAssign lowers &&=, ||=, and ??=: the right-hand side is
// evaluated, and the write performed, only when the current value passes
// the operator's test.
func (fb *FunctionBuilder) translateLogicalAssign(n *ast.AssignExpr) error {
	id, isIdent := n.Target.(*ast.Identifier)
	mem, isMember := n.Target.(*ast.MemberExpr)
	if !isIdent && !isMember {
		return jserrors.Unimplemented("logical assignment target")
	}

	var memObjSlot uint32
	if isIdent {
		if err := fb.translateIdentifier(id); err != nil {
			return err
		}
	} else {
		if err := fb.translateExpr(mem.Object); err != nil {
			return err
		}
		memObjSlot = fb.allocStackSlot()
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: memObjSlot})
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: memObjSlot})
		if err := fb.readMember(mem); err != nil {
			return err
		}
	}

	doAssign := fb.newBlock()
	join := fb.newBlock()
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	switch n.Op {
	case "&&=":
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R1, Target: doAssign})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})
	case "||=":
		fb.emit(bytecode.OpJumpIfFalse, bytecode.CondJumpImm{Cond: bytecode.R1, Target: doAssign})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})
	default: // ??=
		fb.emit(bytecode.OpLoadNull, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		checkUndef := fb.newBlock()
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: doAssign})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: checkUndef})
		fb.switchTo(checkUndef)
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: doAssign})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})
	}

	fb.switchTo(doAssign)
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	if err := fb.translateExpr(n.Value); err != nil {
		return err
	}
	if isIdent {
		if err := fb.writeIdentifier(id.Name); err != nil {
			return err
		}
	} else {
		valSlot := fb.allocStackSlot()
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: valSlot})
		if !mem.Computed {
			name, err := staticKeyName(mem.Property)
			if err != nil {
				return err
			}
			fieldID := fb.rt.Fields().Intern(name)
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: memObjSlot})
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: valSlot})
			fb.emit(bytecode.OpWriteFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R0, Field: fieldID})
		} else {
			if err := fb.translateExpr(mem.Property); err != nil {
				return err
			}
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: memObjSlot})
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: valSlot})
			fb.emit(bytecode.OpWriteField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R0, Result: bytecode.R2})
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: valSlot})
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}

func (fb *FunctionBuilder) translateUpdate(n *ast.UpdateExpr) error {
	switch t := n.Operand.(type) {
	case *ast.Identifier:
		return fb.updateIdentifier(t, n)
	case *ast.MemberExpr:
		return fb.updateMember(t, n)
	default:
		return jserrors.Unimplemented("update expression target")
	}
}

func (fb *FunctionBuilder) updateIdentifier(id *ast.Identifier, n *ast.UpdateExpr) error {
	if err := fb.translateIdentifier(id); err != nil {
		return err
	}
	op := bytecode.OpAddImmI32
	if n.Op == "--" {
		op = bytecode.OpSubImmI32
	}
	oldSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: oldSlot})
	fb.emit(op, bytecode.ImmBinImm{Dst: bytecode.R1, L: bytecode.R0, Int32: 1})
	if err := fb.writeIdentifierFrom(id.Name, bytecode.R1); err != nil {
		return err
	}
	if n.Prefix {
		fb.emit(bytecode.OpMove, bytecode.RegImm{Dst: bytecode.R0, Src: bytecode.R1})
	} else {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: oldSlot})
	}
	return nil
}

func (fb *FunctionBuilder) updateMember(m *ast.MemberExpr, n *ast.UpdateExpr) error {
	objSlot := fb.allocStackSlot()
	if err := fb.translateExpr(m.Object); err != nil {
		return err
	}
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})

	var keySlot uint32
	var id ident.ID
	if m.Computed {
		keySlot = fb.allocStackSlot()
		if err := fb.translateExpr(m.Property); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: keySlot})
	} else {
		name, err := staticKeyName(m.Property)
		if err != nil {
			return err
		}
		id = fb.rt.Fields().Intern(name)
	}

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	if m.Computed {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: keySlot})
		fb.emit(bytecode.OpReadField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R2, Result: bytecode.R0})
	} else {
		fb.emit(bytecode.OpReadFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R0, Field: id})
	}

	oldSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: oldSlot})
	op := bytecode.OpAddImmI32
	if n.Op == "--" {
		op = bytecode.OpSubImmI32
	}
	fb.emit(op, bytecode.ImmBinImm{Dst: bytecode.R0, L: bytecode.R0, Int32: 1})

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
	if m.Computed {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: keySlot})
		fb.emit(bytecode.OpWriteField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R2, Result: bytecode.R0})
	} else {
		fb.emit(bytecode.OpWriteFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R0, Field: id})
	}

	if !n.Prefix {
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: oldSlot})
	}
	return nil
}
