package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/runtime"
)

// translateFunctionExpr builds n as a nested FunctionBuilder, finishes it
// into a registered FunctionDescriptor, and emits the closure-creation
// opcode (OpCreateArrow for arrow functions, which bind `this`/
// `arguments`/`new.target` from the enclosing call rather than their
// own — OpCreateFunction otherwise).
func (fb *FunctionBuilder) translateFunctionExpr(n *ast.FunctionExpr) error {
	child := newFunctionBuilder(fb.rt, fb, n.Name, uint32(len(n.Params)), n.IsAsync, n.IsGenerator)
	if err := child.declareParams(n.Params); err != nil {
		return err
	}
	if n.ExprBody != nil {
		if err := child.translateExpr(n.ExprBody); err != nil {
			return err
		}
		child.emit(bytecode.OpReturn, bytecode.RegImm{Src: bytecode.R0})
	} else {
		if err := child.translateBody(n.Body); err != nil {
			return err
		}
	}
	funcID, captures, err := child.Finish()
	if err != nil {
		return err
	}
	op := bytecode.OpCreateFunction
	if n.IsArrow {
		op = bytecode.OpCreateArrow
	}
	fb.emit(op, bytecode.FuncImm{Result: bytecode.R0, FuncID: uint32(funcID), Captures: captures})
	return nil
}

// superClassID resolves an `extends` clause to a previously built class.
// This engine only supports extending another class literal built by this
// same compiler pass, referenced by name — not an arbitrary runtime
// expression.
func (fb *FunctionBuilder) superClassID(e ast.Expr) (runtime.ClassID, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return 0, false
	}
	return fb.lookupClassID(id.Name)
}

func bindMemberOp(m ast.ClassMember) bytecode.Op {
	switch {
	case m.IsPrivate:
		return bytecode.OpBindPrivate
	case m.Kind == ast.PropGetter:
		return bytecode.OpBindGetter
	case m.Kind == ast.PropSetter:
		return bytecode.OpBindSetter
	case m.Kind == ast.PropInit:
		return bytecode.OpBindField
	default:
		return bytecode.OpBindMethod
	}
}

// translateClassExpr builds a class's constructor and every member as
// separate FunctionBuilders, registers the static blueprint with the
// runtime's class table, and emits the instantiation opcodes (§4.1
// Classes). A missing constructor is synthesized: an empty body for a
// base class, or one that forwards all arguments to `super(...)` for a
// derived class.
func (fb *FunctionBuilder) translateClassExpr(n *ast.ClassExpr) error {
	var superID runtime.ClassID
	hasSuper := n.SuperExpr != nil
	if hasSuper {
		id, ok := fb.superClassID(n.SuperExpr)
		if !ok {
			return jserrors.Unimplemented("class extends a non-identifier or unregistered superclass")
		}
		superID = id
	}

	ctorIdx := -1
	for i, m := range n.Members {
		if !m.IsStatic && !m.Computed && m.Kind == ast.PropMethod {
			if name, err := staticKeyName(m.Key); err == nil && name == "constructor" {
				ctorIdx = i
				break
			}
		}
	}

	var ctorExpr *ast.FunctionExpr
	if ctorIdx >= 0 {
		ctorExpr = n.Members[ctorIdx].Value.(*ast.FunctionExpr)
	} else if hasSuper {
		ctorExpr = &ast.FunctionExpr{
			Params: []ast.Param{{Target: &ast.Identifier{Name: "$rest"}, Rest: true}},
			Body: []ast.Stmt{&ast.ExprStmt{Expr: &ast.CallExpr{
				Callee: &ast.SuperExpr{},
				Args:   []ast.Argument{{Value: &ast.Identifier{Name: "$rest"}, Spread: true}},
			}}},
		}
	} else {
		ctorExpr = &ast.FunctionExpr{}
	}

	ctorBuilder := newFunctionBuilder(fb.rt, fb, n.Name, uint32(len(ctorExpr.Params)), false, false)
	if err := ctorBuilder.declareParams(ctorExpr.Params); err != nil {
		return err
	}
	if err := ctorBuilder.translateBody(ctorExpr.Body); err != nil {
		return err
	}
	ctorFuncID, ctorCaptures, err := ctorBuilder.Finish()
	if err != nil {
		return err
	}

	classID := fb.rt.NewClass(&runtime.ClassDef{
		Name:        n.Name,
		Constructor: ctorFuncID,
		HasSuper:    hasSuper,
		Super:       superID,
	})
	if n.Name != "" {
		fb.registerClassID(n.Name, classID)
	}

	fb.emit(bytecode.OpCreateClass, bytecode.ClassImm{Result: bytecode.R0, ClassID: uint32(classID), Captures: ctorCaptures})

	for i, m := range n.Members {
		if i == ctorIdx {
			continue
		}
		if m.Computed {
			return jserrors.Unimplemented("class member with a computed name")
		}
		name, err := staticKeyName(m.Key)
		if err != nil {
			return err
		}
		fieldID := fb.rt.Fields().Intern(name)

		var memberFuncID runtime.FuncID
		var captures []bytecode.CaptureSource
		isField := m.Kind == ast.PropInit

		if isField {
			if m.Value != nil {
				initBuilder := newFunctionBuilder(fb.rt, fb, name, 0, false, false)
				if err := initBuilder.translateExpr(m.Value); err != nil {
					return err
				}
				initBuilder.emit(bytecode.OpReturn, bytecode.RegImm{Src: bytecode.R0})
				memberFuncID, captures, err = initBuilder.Finish()
				if err != nil {
					return err
				}
			}
		} else {
			fnExpr, ok := m.Value.(*ast.FunctionExpr)
			if !ok {
				return jserrors.Unimplemented("class method without a function body")
			}
			methodBuilder := newFunctionBuilder(fb.rt, fb, name, uint32(len(fnExpr.Params)), fnExpr.IsAsync, fnExpr.IsGenerator)
			if err := methodBuilder.declareParams(fnExpr.Params); err != nil {
				return err
			}
			if err := methodBuilder.translateBody(fnExpr.Body); err != nil {
				return err
			}
			memberFuncID, captures, err = methodBuilder.Finish()
			if err != nil {
				return err
			}
		}

		fb.rt.BindMember(classID, runtime.Member{
			Field:     fieldID,
			FuncID:    memberFuncID,
			IsField:   isField,
			IsGetter:  m.Kind == ast.PropGetter,
			IsSetter:  m.Kind == ast.PropSetter,
			IsStatic:  m.IsStatic,
			IsPrivate: m.IsPrivate,
		})
		fb.emit(bindMemberOp(m), bytecode.MemberImm{
			ClassID:  uint32(classID),
			Field:    fieldID,
			FuncID:   uint32(memberFuncID),
			Static:   m.IsStatic,
			Captures: captures,
		})
	}

	return nil
}
