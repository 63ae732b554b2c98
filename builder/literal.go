package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
)

// emitArgs lowers a call's argument list under the §4.3 call convention:
// reserve a contiguous stack span, push each (possibly spread) argument
// into it, then finalize. Returns the span's base offset and its
// syntactic length (pre-spread-expansion; the interpreter expands any
// spread-marked slot at FinishArgs time).
func (fb *FunctionBuilder) emitArgs(args []ast.Argument) (uint32, uint32, error) {
	n := len(args)
	if uint32(n) > fb.rt.MaxArguments() {
		return 0, 0, jserrors.ArgumentsOverflow(n)
	}
	stackOffset := fb.allocStackSlot()
	for i := 1; i < n; i++ {
		fb.allocStackSlot()
	}
	fb.emit(bytecode.OpCreateArg, bytecode.ArgsImm{StackOffset: stackOffset, Len: uint32(n)})
	for i, a := range args {
		if err := fb.translateExpr(a.Value); err != nil {
			return 0, 0, err
		}
		op := bytecode.OpPushArg
		if a.Spread {
			op = bytecode.OpPushArgSpread
		}
		fb.emit(op, bytecode.PushArgImm{Value: bytecode.R0, Index: uint32(i)})
	}
	fb.emit(bytecode.OpFinishArgs, bytecode.ArgsImm{StackOffset: stackOffset, Len: uint32(n)})
	return stackOffset, uint32(n), nil
}

// translateCall lowers a call expression, including method-call `this`
// binding (callee is a member expression), `super(...)` (binds to the
// current `this`), and `?.`'s short-circuit on either the member access
// (`a?.b()`) or the call itself (`a.b?.()`) — either skips the entire
// call, evaluating neither the remaining property chain nor the
// arguments, and yields undefined.
func (fb *FunctionBuilder) translateCall(n *ast.CallExpr) error {
	thisSlot := fb.allocStackSlot()
	calleeSlot := fb.allocStackSlot()
	shortCircuit := fb.newBlock()
	join := fb.newBlock()

	emitNullishGuard := func(slot uint32) {
		cont := fb.newBlock()
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: slot})
		fb.emit(bytecode.OpLoadNull, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: shortCircuit})
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: slot})
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R2})
		fb.emit(bytecode.OpEqEqEq, bytecode.BinImm{Dst: bytecode.R2, L: bytecode.R1, R: bytecode.R2})
		fb.emit(bytecode.OpJumpIfTrue, bytecode.CondJumpImm{Cond: bytecode.R2, Target: shortCircuit})
		fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: cont})
		fb.switchTo(cont)
	}

	switch callee := n.Callee.(type) {
	case *ast.MemberExpr:
		if err := fb.translateExpr(callee.Object); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: thisSlot})
		if callee.Optional {
			emitNullishGuard(thisSlot)
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: thisSlot})
		if err := fb.readMember(callee); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: calleeSlot})
	case *ast.SuperExpr:
		fb.emit(bytecode.OpLoadThis, bytecode.RegImm{Dst: bytecode.R0})
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: thisSlot})
		if err := fb.translateIdentifierByName("SUPER CONSTRUCTOR"); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: calleeSlot})
	default:
		fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: thisSlot})
		if err := fb.translateExpr(n.Callee); err != nil {
			return err
		}
		fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: calleeSlot})
	}

	if n.Optional {
		emitNullishGuard(calleeSlot)
	}

	stackOffset, argsLen, err := fb.emitArgs(n.Args)
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: thisSlot})
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: calleeSlot})
	fb.emit(bytecode.OpCall, bytecode.CallImm{Result: bytecode.R0, This: bytecode.R1, Callee: bytecode.R2, StackOffset: stackOffset, ArgsLen: argsLen})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(shortCircuit)
	fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}

func (fb *FunctionBuilder) translateNew(n *ast.NewExpr) error {
	calleeSlot := fb.allocStackSlot()
	if err := fb.translateExpr(n.Callee); err != nil {
		return err
	}
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: calleeSlot})

	stackOffset, argsLen, err := fb.emitArgs(n.Args)
	if err != nil {
		return err
	}
	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: calleeSlot})
	fb.emit(bytecode.OpNew, bytecode.CallImm{Result: bytecode.R0, Callee: bytecode.R2, StackOffset: stackOffset, ArgsLen: argsLen})
	return nil
}

// translateArrayLiteral builds a fresh array, pushing each element in
// source order and spreading `...expr` elements (§4.1).
func (fb *FunctionBuilder) translateArrayLiteral(n *ast.ArrayLiteral) error {
	arrSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpCreateArray, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: arrSlot})

	for _, el := range n.Elements {
		if el.Value == nil {
			fb.emit(bytecode.OpLoadUndefined, bytecode.RegImm{Dst: bytecode.R0})
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: arrSlot})
			fb.emit(bytecode.OpArrayPush, bytecode.ArrayOpImm{Array: bytecode.R1, Value: bytecode.R0})
			continue
		}
		if err := fb.translateExpr(el.Value); err != nil {
			return err
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: arrSlot})
		if el.Spread {
			fb.emit(bytecode.OpArraySpread, bytecode.ArrayOpImm{Array: bytecode.R1, Value: bytecode.R0})
		} else {
			fb.emit(bytecode.OpArrayPush, bytecode.ArrayOpImm{Array: bytecode.R1, Value: bytecode.R0})
		}
	}

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: arrSlot})
	return nil
}

// translateObjectLiteral builds a fresh object, defining each property in
// source order: data properties (static or computed key), accessor
// properties, and `...expr` spreads (§4.1).
func (fb *FunctionBuilder) translateObjectLiteral(n *ast.ObjectLiteral) error {
	objSlot := fb.allocStackSlot()
	fb.emit(bytecode.OpCreateObject, bytecode.RegImm{Dst: bytecode.R0})
	fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})

	for _, prop := range n.Properties {
		if prop.Kind == ast.PropSpread {
			if err := fb.translateExpr(prop.Value); err != nil {
				return err
			}
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
			fb.emit(bytecode.OpObjectSpread, bytecode.ObjectSpreadImm{Object: bytecode.R1, Source: bytecode.R0})
			continue
		}

		if prop.Computed {
			if err := fb.translateExpr(prop.Key); err != nil {
				return err
			}
			keySlot := fb.allocStackSlot()
			fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: keySlot})
			if err := fb.translateExpr(prop.Value); err != nil {
				return err
			}
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
			fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R2, Slot: keySlot})
			op := bytecode.OpObjectSetComputed
			switch prop.Kind {
			case ast.PropGetter:
				op = bytecode.OpObjectDefineGetterComputed
			case ast.PropSetter:
				op = bytecode.OpObjectDefineSetterComputed
			}
			fb.emit(op, bytecode.ObjectSetComputedImm{Object: bytecode.R1, Key: bytecode.R2, Value: bytecode.R0})
			continue
		}

		name, err := staticKeyName(prop.Key)
		if err != nil {
			return err
		}
		id := fb.rt.Fields().Intern(name)
		if err := fb.translateExpr(prop.Value); err != nil {
			return err
		}
		fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R1, Slot: objSlot})
		op := bytecode.OpObjectSetStatic
		switch prop.Kind {
		case ast.PropGetter:
			op = bytecode.OpObjectDefineGetter
		case ast.PropSetter:
			op = bytecode.OpObjectDefineSetter
		}
		fb.emit(op, bytecode.ObjectSetImm{Object: bytecode.R1, Value: bytecode.R0, Field: id})
	}

	fb.emit(bytecode.OpGetLocal, bytecode.SlotImm{Reg: bytecode.R0, Slot: objSlot})
	return nil
}

// translateTemplate lowers a template literal to a chain of string
// concatenations, coercing each substitution with the generic `+`
// operator the same way the specialized OpAddImmStr fast path does for a
// string-literal operand (§4.1 Operator lowering: ToString happens
// through ApplyStringOrNumericBinaryOperator, not a dedicated opcode).
func (fb *FunctionBuilder) translateTemplate(n *ast.TemplateLiteral) error {
	fb.emit(bytecode.OpLoadString, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.internString(n.Quasis[0])})
	for i, expr := range n.Expressions {
		fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
		if err := fb.translateExpr(expr); err != nil {
			return err
		}
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
		fb.emit(bytecode.OpAdd, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})
		fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R0})
		fb.emit(bytecode.OpLoadString, bytecode.ConstImm{Dst: bytecode.R0, ConstID: fb.internString(n.Quasis[i+1])})
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
		fb.emit(bytecode.OpAdd, bytecode.BinImm{Dst: bytecode.R0, L: bytecode.R1, R: bytecode.R0})
	}
	return nil
}
