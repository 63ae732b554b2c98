package interp

import (
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// raise boxes any non-thrown error into the carried-JS-value shape exactly
// once, at the point it first crosses from a coercion/property helper into
// the dispatch loop, so every later frame along the unwind only ever sees
// a *thrown (§4.3 Exception handling state machine).
func (ip *Interp) raise(err error) *thrown {
	if t, ok := err.(*thrown); ok {
		return t
	}
	return &thrown{V: ip.rt.ToThrown(err)}
}

// runFrame2 binds args into callee's declared parameter slots and runs it —
// the common tail of callValue/construct once a Frame has been built.
func (ip *Interp) runFrame2(fr *Frame, args []value.Value) (value.Value, error) {
	bindCallArgs(ip, fr, args)
	return ip.runFrame(fr)
}

// runFrame executes fr.prog from instruction 0 until an OpReturn, an
// unhandled throw, or the end of the stream (an implicit `return undefined`,
// the shape every script/function body's builder output falls through to).
func (ip *Interp) runFrame(fr *Frame) (value.Value, error) {
	prog := fr.prog
	for {
		if fr.ip >= len(prog) {
			return value.Undefined, nil
		}
		instr := prog[fr.ip]
		jumped, ret, retVal, err := ip.step(fr, instr)
		if err != nil {
			t := ip.raise(err)
			if len(fr.tryStack) > 0 {
				entry := fr.tryStack[len(fr.tryStack)-1]
				fr.tempStack = fr.tempStack[:entry.tempDepth]
				fr.argBase = fr.argBase[:entry.argBaseDepth]
				fr.regs[bytecode.R0] = t.V
				fr.ip = entry.catchIP
				continue
			}
			return value.Undefined, t
		}
		if ret {
			return retVal, nil
		}
		if !jumped {
			fr.ip++
		}
	}
}

// step executes one instruction, returning whether it branched (jumped) so
// the caller's default ip++ is skipped, or whether it is an OpReturn
// (ret, with retVal).
func (ip *Interp) step(fr *Frame, instr bytecode.Instr) (jumped bool, ret bool, retVal value.Value, err error) {
	switch instr.Op {
	case bytecode.OpJump:
		imm := instr.Imm.(bytecode.JumpImm)
		fr.ip = int(imm.Line)
		return true, false, value.Undefined, nil

	case bytecode.OpJumpIfTrue, bytecode.OpJumpIfFalse, bytecode.OpJumpIfIterDone:
		imm := instr.Imm.(bytecode.CondJumpImm)
		cond := fr.regs[imm.Cond]
		take := false
		switch instr.Op {
		case bytecode.OpJumpIfTrue:
			take = ip.rt.ToBoolean(cond)
		case bytecode.OpJumpIfFalse:
			take = !ip.rt.ToBoolean(cond)
		case bytecode.OpJumpIfIterDone:
			take = cond == value.True
		}
		if take {
			fr.ip = int(imm.Line)
			return true, false, value.Undefined, nil
		}
		return false, false, value.Undefined, nil

	case bytecode.OpLoadUndefined:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = value.Undefined
	case bytecode.OpLoadNull:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = value.Null
	case bytecode.OpLoadTrue:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = value.True
	case bytecode.OpLoadFalse:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = value.False
	case bytecode.OpLoadThis:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = fr.this
	case bytecode.OpLoadNewTarget:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = fr.newTarget
	case bytecode.OpLoadNumber, bytecode.OpLoadString, bytecode.OpLoadRegex:
		imm := instr.Imm.(bytecode.ConstImm)
		fr.regs[imm.Dst] = ip.rt.Const(imm.ConstID)
	case bytecode.OpLoadInt32:
		imm := instr.Imm.(bytecode.Int32Imm)
		fr.regs[imm.Dst] = value.Int32(imm.Value)

	case bytecode.OpStoreTemp:
		imm := instr.Imm.(bytecode.RegImm)
		fr.pushTemp(fr.regs[imm.Src])
	case bytecode.OpReadTemp:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = fr.peekTemp()
	case bytecode.OpReleaseTemp:
		fr.popTemp()

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr, bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor,
		bytecode.OpLt, bytecode.OpLtEq, bytecode.OpGt, bytecode.OpGtEq,
		bytecode.OpEqEq, bytecode.OpNotEq, bytecode.OpEqEqEq, bytecode.OpNotEqEq,
		bytecode.OpIn, bytecode.OpInstanceOf:
		imm := instr.Imm.(bytecode.BinImm)
		v, e := ip.binaryOp(instr.Op, fr.regs[imm.L], fr.regs[imm.R])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dst] = v

	case bytecode.OpAddImmI32, bytecode.OpSubImmI32, bytecode.OpMulImmI32, bytecode.OpLtImmI32, bytecode.OpGtImmI32:
		imm := instr.Imm.(bytecode.ImmBinImm)
		v, e := ip.binaryOp(immGenericOp(instr.Op), fr.regs[imm.L], value.Int32(imm.Int32))
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dst] = v
	case bytecode.OpAddImmF32:
		imm := instr.Imm.(bytecode.ImmBinImm)
		v, e := ip.binaryOp(bytecode.OpAdd, fr.regs[imm.L], value.NarrowNumeric(value.Number(float64(imm.F32))))
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dst] = v
	case bytecode.OpAddImmStr:
		imm := instr.Imm.(bytecode.ImmBinImm)
		v, e := ip.binaryOp(bytecode.OpAdd, fr.regs[imm.L], ip.rt.Const(imm.ConstID))
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dst] = v

	case bytecode.OpNeg, bytecode.OpPos, bytecode.OpBitNotOp, bytecode.OpLogicalNot, bytecode.OpTypeOf, bytecode.OpVoidOp:
		imm := instr.Imm.(bytecode.RegImm)
		v, e := ip.unaryOp(instr.Op, fr.regs[imm.Src])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dst] = v

	case bytecode.OpDeleteOp:
		imm := instr.Imm.(bytecode.FieldRegImm)
		key, _, e := ip.resolveKey(fr.regs[imm.Key])
		if e != nil {
			return false, false, value.Undefined, e
		}
		ok, e := ip.deleteProp(fr.regs[imm.Obj], key)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = value.Bool(ok)

	case bytecode.OpSelect:
		imm := instr.Imm.(bytecode.SelectImm)
		if ip.rt.ToBoolean(fr.regs[imm.Cond]) {
			fr.regs[imm.Dst] = fr.regs[imm.A]
		} else {
			fr.regs[imm.Dst] = fr.regs[imm.B]
		}

	case bytecode.OpGetLocal:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.regs[imm.Reg] = fr.getLocal(imm.Slot)
	case bytecode.OpSetLocal:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.setLocal(imm.Slot, fr.regs[imm.Reg])
	case bytecode.OpGetCapture:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.regs[imm.Reg] = fr.getCapture(imm.Slot)
	case bytecode.OpSetCapture:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.setCapture(imm.Slot, fr.regs[imm.Reg])
	case bytecode.OpGetInherited:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.regs[imm.Reg] = fr.getInherited(imm.Slot)
	case bytecode.OpSetInherited:
		imm := instr.Imm.(bytecode.SlotImm)
		fr.setInherited(imm.Slot, fr.regs[imm.Reg])
	case bytecode.OpGetDynamic:
		imm := instr.Imm.(bytecode.DynImm)
		v, e := ip.getDynamic(fr, imm)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Reg] = v
	case bytecode.OpSetDynamic:
		imm := instr.Imm.(bytecode.DynImm)
		if e := ip.setDynamic(imm, fr.regs[imm.Reg]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpDeclareDynamic:
		imm := instr.Imm.(bytecode.DynImm)
		ip.declareDynamic(imm, fr.regs[imm.Reg])
	case bytecode.OpPromoteToCapture:
		imm := instr.Imm.(bytecode.PromoteImm)
		fr.cell(imm.CellSlot).V = fr.getLocal(imm.LocalSlot)

	case bytecode.OpReadFieldStatic:
		imm := instr.Imm.(bytecode.FieldImm)
		v, e := ip.getProp(fr.regs[imm.Obj], object.FieldKey(imm.Field), ip.rt.Fields().Name(imm.Field))
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpWriteFieldStatic:
		imm := instr.Imm.(bytecode.FieldImm)
		if e := ip.setProp(fr.regs[imm.Obj], object.FieldKey(imm.Field), fr.regs[imm.Result]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpReadField:
		imm := instr.Imm.(bytecode.FieldRegImm)
		key, name, e := ip.resolveKey(fr.regs[imm.Key])
		if e != nil {
			return false, false, value.Undefined, e
		}
		v, e := ip.getProp(fr.regs[imm.Obj], key, name)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpWriteField:
		imm := instr.Imm.(bytecode.FieldRegImm)
		key, _, e := ip.resolveKey(fr.regs[imm.Key])
		if e != nil {
			return false, false, value.Undefined, e
		}
		if e := ip.setProp(fr.regs[imm.Obj], key, fr.regs[imm.Result]); e != nil {
			return false, false, value.Undefined, e
		}

	case bytecode.OpCreateArray:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = ip.newArray()
	case bytecode.OpArrayPush:
		imm := instr.Imm.(bytecode.ArrayOpImm)
		ip.arrayPush(fr.regs[imm.Array], fr.regs[imm.Value])
	case bytecode.OpArraySpread:
		imm := instr.Imm.(bytecode.ArrayOpImm)
		if e := ip.arraySpread(fr.regs[imm.Array], fr.regs[imm.Value]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpCreateObject:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = ip.newObject()
	case bytecode.OpObjectSetStatic:
		imm := instr.Imm.(bytecode.ObjectSetImm)
		ip.objectSetStatic(fr.regs[imm.Object], fr.regs[imm.Value], imm.Field)
	case bytecode.OpObjectSetComputed:
		imm := instr.Imm.(bytecode.ObjectSetComputedImm)
		if e := ip.objectSetComputed(fr.regs[imm.Object], fr.regs[imm.Key], fr.regs[imm.Value]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpObjectDefineGetter:
		imm := instr.Imm.(bytecode.ObjectSetImm)
		ip.objectDefineGetter(fr.regs[imm.Object], fr.regs[imm.Value], imm.Field)
	case bytecode.OpObjectDefineSetter:
		imm := instr.Imm.(bytecode.ObjectSetImm)
		ip.objectDefineSetter(fr.regs[imm.Object], fr.regs[imm.Value], imm.Field)
	case bytecode.OpObjectDefineGetterComputed:
		imm := instr.Imm.(bytecode.ObjectSetComputedImm)
		if e := ip.objectDefineGetterComputed(fr.regs[imm.Object], fr.regs[imm.Key], fr.regs[imm.Value]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpObjectDefineSetterComputed:
		imm := instr.Imm.(bytecode.ObjectSetComputedImm)
		if e := ip.objectDefineSetterComputed(fr.regs[imm.Object], fr.regs[imm.Key], fr.regs[imm.Value]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpObjectSpread:
		imm := instr.Imm.(bytecode.ObjectSpreadImm)
		if e := ip.objectSpread(fr.regs[imm.Object], fr.regs[imm.Source]); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpCollectRestObject:
		imm := instr.Imm.(bytecode.RestObjectImm)
		v, e := ip.collectRestObject(fr.regs[imm.Source], imm.Excluded)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v

	case bytecode.OpCreateFunction:
		imm := instr.Imm.(bytecode.FuncImm)
		fr.regs[imm.Result] = ip.makeClosure(fr, imm.FuncID, imm.Captures, false)
	case bytecode.OpCreateArrow:
		imm := instr.Imm.(bytecode.FuncImm)
		fr.regs[imm.Result] = ip.makeClosure(fr, imm.FuncID, imm.Captures, true)
	case bytecode.OpCreateClass:
		imm := instr.Imm.(bytecode.ClassImm)
		v, e := ip.createClass(fr, imm)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpBindMethod:
		imm := instr.Imm.(bytecode.MemberImm)
		ip.bindMethod(fr, imm)
	case bytecode.OpBindGetter:
		imm := instr.Imm.(bytecode.MemberImm)
		ip.bindAccessor(fr, imm, true)
	case bytecode.OpBindSetter:
		imm := instr.Imm.(bytecode.MemberImm)
		ip.bindAccessor(fr, imm, false)
	case bytecode.OpBindField:
		imm := instr.Imm.(bytecode.MemberImm)
		if e := ip.bindField(fr, imm); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpBindPrivate:
		imm := instr.Imm.(bytecode.MemberImm)
		if e := ip.bindPrivate(fr, imm); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpCreateArg:
		imm := instr.Imm.(bytecode.ArgsImm)
		fr.createArg(imm.StackOffset)
	case bytecode.OpPushArg:
		imm := instr.Imm.(bytecode.PushArgImm)
		fr.pushArg(fr.regs[imm.Value], imm.Index, false)
	case bytecode.OpPushArgSpread:
		imm := instr.Imm.(bytecode.PushArgImm)
		fr.pushArg(fr.regs[imm.Value], imm.Index, true)
	case bytecode.OpFinishArgs:
		imm := instr.Imm.(bytecode.ArgsImm)
		if e := ip.finishArgs(fr, imm.StackOffset, imm.Len); e != nil {
			return false, false, value.Undefined, e
		}
	case bytecode.OpCall:
		imm := instr.Imm.(bytecode.CallImm)
		args := fr.lastArgs
		v, e := ip.callValue(fr.regs[imm.Callee], fr.regs[imm.This], args)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpNew:
		imm := instr.Imm.(bytecode.CallImm)
		args := fr.lastArgs
		v, e := ip.construct(fr.regs[imm.Callee], args)
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpReturn:
		imm := instr.Imm.(bytecode.RegImm)
		return false, true, fr.regs[imm.Src], nil

	case bytecode.OpPrepareForIn:
		imm := instr.Imm.(bytecode.IterSourceImm)
		v, e := ip.prepareForIn(fr.regs[imm.Source])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpPrepareForOf:
		imm := instr.Imm.(bytecode.IterSourceImm)
		v, e := ip.newIterator(fr.regs[imm.Source])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpIterNext:
		imm := instr.Imm.(bytecode.IterNextImm)
		v, done, e := ip.iterNext(fr.regs[imm.Iter])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
		fr.regs[imm.Done] = value.Bool(done)
	case bytecode.OpIterCollect:
		imm := instr.Imm.(bytecode.IterCollectImm)
		v, e := ip.iterCollect(fr.regs[imm.Iter])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Result] = v
	case bytecode.OpIterDrop:
		imm := instr.Imm.(bytecode.IterDropImm)
		ip.iterDrop(fr.regs[imm.Iter])

	case bytecode.OpEnterTry:
		imm := instr.Imm.(bytecode.TryImm)
		fr.tryStack = append(fr.tryStack, tryEntry{
			catchIP:      int(imm.Line),
			tempDepth:    len(fr.tempStack),
			argBaseDepth: len(fr.argBase),
		})
	case bytecode.OpExitTry:
		fr.tryStack = fr.tryStack[:len(fr.tryStack)-1]
	case bytecode.OpThrow:
		imm := instr.Imm.(bytecode.RegImm)
		return false, false, value.Undefined, &thrown{V: fr.regs[imm.Src]}

	case bytecode.OpAwait:
		imm := instr.Imm.(bytecode.SuspendImm)
		v, e := ip.resolveAwait(fr.regs[imm.Value])
		if e != nil {
			return false, false, value.Undefined, e
		}
		fr.regs[imm.Dest] = v

	case bytecode.OpYield:
		// Suspend this frame's goroutine until Generator.next/return/throw
		// resumes it (§4.3 Scheduling model, §9: mapped onto whichever
		// coroutine facility the target ecosystem has — see generator.go).
		imm := instr.Imm.(bytecode.SuspendImm)
		msg := fr.driver.suspend(fr.regs[imm.Value])
		if msg.isThrow {
			return false, false, value.Undefined, &thrown{V: msg.value}
		}
		if msg.isReturn {
			return false, true, msg.value, nil
		}
		fr.regs[imm.Dest] = msg.value

	case bytecode.OpMove:
		imm := instr.Imm.(bytecode.RegImm)
		fr.regs[imm.Dst] = fr.regs[imm.Src]
	case bytecode.OpDebugger, bytecode.OpNop:
		// no-op

	default:
		return false, false, value.Undefined, jserrors.Newf(jserrors.PhaseRun, jserrors.KindInternal, "unhandled opcode %v", instr.Op)
	}
	return false, false, value.Undefined, nil
}

// immGenericOp maps a specialized immediate-operand opcode to the generic
// binary op it must agree bit-for-bit with (§4.1 Operator lowering).
func immGenericOp(op bytecode.Op) bytecode.Op {
	switch op {
	case bytecode.OpAddImmI32:
		return bytecode.OpAdd
	case bytecode.OpSubImmI32:
		return bytecode.OpSub
	case bytecode.OpMulImmI32:
		return bytecode.OpMul
	case bytecode.OpLtImmI32:
		return bytecode.OpLt
	case bytecode.OpGtImmI32:
		return bytecode.OpGt
	default:
		return op
	}
}
