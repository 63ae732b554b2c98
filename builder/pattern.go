package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/jserrors"
)

// bindPattern declares (under kind) and initializes pattern from the value
// held in srcReg — the declaration form of §4.1 Pattern assignment, used by
// var/let/const declarators, parameters, and catch clauses.
func (fb *FunctionBuilder) bindPattern(pattern ast.Pattern, srcReg bytecode.Register, kind ast.DeclKind) error {
	return fb.lowerPattern(pattern, srcReg, kind, true)
}

// assignPattern writes srcReg's value into pattern's existing bindings and
// member targets without declaring anything — the assignment form, used by
// a destructuring `=` whose target is an array/object pattern.
func (fb *FunctionBuilder) assignPattern(pattern ast.Pattern, srcReg bytecode.Register) error {
	return fb.lowerPattern(pattern, srcReg, "", false)
}

func (fb *FunctionBuilder) lowerPattern(pattern ast.Pattern, srcReg bytecode.Register, kind ast.DeclKind, declare bool) error {
	switch p := pattern.(type) {
	case *ast.Identifier:
		if declare {
			b := fb.declare(p.Name, kind)
			if b.class == ClassCapture {
				fb.emit(bytecode.OpSetCapture, bytecode.SlotImm{Reg: srcReg, Slot: b.slot})
			} else {
				fb.emit(bytecode.OpSetLocal, bytecode.SlotImm{Reg: srcReg, Slot: b.slot})
			}
			return nil
		}
		return fb.writeIdentifierFrom(p.Name, srcReg)
	case *ast.MemberExpr:
		if declare {
			return jserrors.Unimplemented("member expression in a declaration pattern")
		}
		return fb.assignMemberFrom(p, srcReg)
	case *ast.AssignPattern:
		if err := fb.applyPatternDefault(srcReg, p.Default); err != nil {
			return err
		}
		return fb.lowerPattern(p.Target, srcReg, kind, declare)
	case *ast.RestElement:
		return fb.lowerPattern(p.Target, srcReg, kind, declare)
	case *ast.ArrayPattern:
		return fb.lowerArrayPattern(p, srcReg, kind, declare)
	case *ast.ObjectPattern:
		return fb.lowerObjectPattern(p, srcReg, kind, declare)
	default:
		return jserrors.Unimplemented("binding pattern")
	}
}

// applyPatternDefault is applyDefault's destructuring-pattern sibling: it
// replaces reg in place with the evaluated default when reg holds
// undefined, rather than reading/writing through R0 only (§4.1 Pattern
// assignment: assignment pattern).
func (fb *FunctionBuilder) applyPatternDefault(reg bytecode.Register, def ast.Expr) error {
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
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	if reg != bytecode.R0 {
		fb.emit(bytecode.OpMove, bytecode.RegImm{Dst: reg, Src: bytecode.R0})
	}
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(hasValue)
	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: reg})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	fb.emit(bytecode.OpJump, bytecode.JumpImm{Target: join})

	fb.switchTo(join)
	return nil
}

// lowerArrayPattern destructures srcReg's value via the iterator protocol
// (§4.1 Pattern assignment: array pattern). Each element pulls one
// IterNext result; a trailing rest element drains the remainder with
// IterCollect; the iterator is always released before falling through.
func (fb *FunctionBuilder) lowerArrayPattern(p *ast.ArrayPattern, srcReg bytecode.Register, kind ast.DeclKind, declare bool) error {
	fb.emit(bytecode.OpPrepareForOf, bytecode.IterSourceImm{Source: srcReg, Result: bytecode.R1})
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: bytecode.R1}) // preserve the iterator across nested translateExpr calls

	for _, el := range p.Elements {
		if rest, ok := el.(*ast.RestElement); ok {
			fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
			fb.emit(bytecode.OpIterCollect, bytecode.IterCollectImm{Iter: bytecode.R1, Result: bytecode.R2})
			if err := fb.lowerPattern(rest.Target, bytecode.R2, kind, declare); err != nil {
				return err
			}
			continue
		}
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		fb.emit(bytecode.OpIterNext, bytecode.IterNextImm{Iter: bytecode.R1, Result: bytecode.R2, Done: bytecode.R1})
		if el == nil {
			continue // elision hole: value is discarded
		}
		if err := fb.lowerPattern(el, bytecode.R2, kind, declare); err != nil {
			return err
		}
	}

	fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
	fb.emit(bytecode.OpIterDrop, bytecode.IterDropImm{Iter: bytecode.R1})
	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	return nil
}

// lowerObjectPattern destructures srcReg's value property by property
// (§4.1 Pattern assignment: object pattern). A trailing rest collects the
// source's own enumerable properties minus the keys already consumed.
func (fb *FunctionBuilder) lowerObjectPattern(p *ast.ObjectPattern, srcReg bytecode.Register, kind ast.DeclKind, declare bool) error {
	fb.emit(bytecode.OpStoreTemp, bytecode.RegImm{Src: srcReg})
	var consumed []ident.ID

	for _, prop := range p.Properties {
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		if prop.Computed {
			if err := fb.translateExpr(prop.Key); err != nil {
				return err
			}
			fb.emit(bytecode.OpReadField, bytecode.FieldRegImm{Obj: bytecode.R1, Key: bytecode.R0, Result: bytecode.R2})
		} else {
			name, err := staticKeyName(prop.Key)
			if err != nil {
				return err
			}
			id := fb.rt.Fields().Intern(name)
			consumed = append(consumed, id)
			fb.emit(bytecode.OpReadFieldStatic, bytecode.FieldImm{Obj: bytecode.R1, Result: bytecode.R2, Field: id})
		}
		if err := fb.lowerPattern(prop.Value, bytecode.R2, kind, declare); err != nil {
			return err
		}
	}

	if p.Rest != nil {
		fb.emit(bytecode.OpReadTemp, bytecode.RegImm{Dst: bytecode.R1})
		fb.emit(bytecode.OpCollectRestObject, bytecode.RestObjectImm{Source: bytecode.R1, Result: bytecode.R2, Excluded: consumed})
		if err := fb.lowerPattern(p.Rest, bytecode.R2, kind, declare); err != nil {
			return err
		}
	}

	fb.emit(bytecode.OpReleaseTemp, bytecode.RegImm{})
	return nil
}

// staticKeyName extracts the literal name of a non-computed property key
// (an Identifier or a string literal).
func staticKeyName(key ast.Expr) (string, error) {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name, nil
	case *ast.StringLiteral:
		return k.Value, nil
	default:
		return "", jserrors.Unimplemented("non-computed property key")
	}
}
