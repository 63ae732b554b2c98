package builder

import (
	"github.com/wippyai/jsvm/ast"
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/runtime"
)

// StorageClass is the storage a declared name resolves to (§4.1 Scope
// resolution).
type StorageClass uint8

const (
	ClassStack StorageClass = iota
	ClassCapture
	ClassDynamic
)

// binding is one declared name's resolution record, owned by the
// FunctionBuilder that declared it.
type binding struct {
	name  ident.ID
	kind  ast.DeclKind // DeclLet for parameters and catch params, DeclVar for hoisted function names
	class StorageClass
	slot  uint32 // stack slot, or own-capture cell index once promoted
}

// scope is one lexical block within a function. isFunctionTop marks the
// scope `var` declarations hoist to.
type scope struct {
	bindings      map[ident.ID]*binding
	isFunctionTop bool
}

func newScope(isFunctionTop bool) *scope {
	return &scope{bindings: make(map[ident.ID]*binding), isFunctionTop: isFunctionTop}
}

// pushScope opens a new block scope.
func (fb *FunctionBuilder) pushScope() {
	fb.scopes = append(fb.scopes, newScope(false))
}

// pushFunctionScope opens the function's top-level scope (parameters and
// top-level var/let/const of the body all hoist/declare into or under it).
func (fb *FunctionBuilder) pushFunctionScope() {
	fb.scopes = append(fb.scopes, newScope(true))
}

// popScope closes the innermost scope.
func (fb *FunctionBuilder) popScope() {
	fb.scopes = fb.scopes[:len(fb.scopes)-1]
}

func (fb *FunctionBuilder) currentScope() *scope { return fb.scopes[len(fb.scopes)-1] }

// functionScope returns the nearest enclosing function-top scope, the
// target of `var` hoisting.
func (fb *FunctionBuilder) functionScope() *scope {
	for i := len(fb.scopes) - 1; i >= 0; i-- {
		if fb.scopes[i].isFunctionTop {
			return fb.scopes[i]
		}
	}
	return fb.scopes[0]
}

// declare introduces a new binding of the given name and kind, allocating it
// a fresh stack slot. `var` hoists to the function-top scope (and is a
// no-op if already declared there); `let`/`const`/parameters/catch bindings
// go in the current block scope.
func (fb *FunctionBuilder) declare(name string, kind ast.DeclKind) *binding {
	id := fb.rt.Fields().Intern(name)
	target := fb.currentScope()
	if kind == ast.DeclVar {
		target = fb.functionScope()
		if b, ok := target.bindings[id]; ok {
			return b
		}
	}
	b := &binding{name: id, kind: kind, class: ClassStack, slot: fb.allocStackSlot()}
	target.bindings[id] = b
	return b
}

func (fb *FunctionBuilder) allocStackSlot() uint32 {
	slot := fb.nextStackSlot
	fb.nextStackSlot++
	if fb.nextStackSlot > fb.maxStackOffset {
		fb.maxStackOffset = fb.nextStackSlot
	}
	return slot
}

// lookupLocal searches fb's own scope chain only (no parent traversal).
func (fb *FunctionBuilder) lookupLocal(id ident.ID) (*binding, bool) {
	for i := len(fb.scopes) - 1; i >= 0; i-- {
		if b, ok := fb.scopes[i].bindings[id]; ok {
			return b, true
		}
	}
	return nil, false
}

// resolution describes where reading/writing a name should go.
type resolution struct {
	class StorageClass
	slot  uint32 // for ClassStack: local slot; for ClassCapture: inherited-capture slot
}

// resolve finds the storage for a name, searching this function's own
// scopes first, then retroactively establishing a capture chain through any
// number of enclosing functions (§4.1: "promoted to capture slots
// retroactively, emitting promotion opcodes into the enclosing bytecode").
func (fb *FunctionBuilder) resolve(name string) resolution {
	id := fb.rt.Fields().Intern(name)
	if b, ok := fb.lookupLocal(id); ok {
		switch b.class {
		case ClassCapture:
			return resolution{class: ClassCapture, slot: b.slot} // own-cell slot, own function
		default:
			return resolution{class: ClassStack, slot: b.slot}
		}
	}
	if fb.parent == nil {
		return resolution{class: ClassDynamic}
	}
	if idx, ok := fb.captureIndex[id]; ok {
		return resolution{class: ClassCapture, slot: idx} // inherited slot, already threaded
	}
	src, ok := fb.parent.exposeCapture(id)
	if !ok {
		return resolution{class: ClassDynamic}
	}
	idx := uint32(len(fb.captures))
	fb.captures = append(fb.captures, src)
	fb.captureIndex[id] = idx
	return resolution{class: ClassCapture, slot: idx}
}

// exposeCapture ensures fb can hand a capture source for id to a direct
// child closure, promoting a local to a cell if necessary, or recursing
// through fb's own parent if id is not fb's own declaration. Returns false
// if id resolves to no declaration anywhere in the enclosing chain (a
// dynamic/global binding).
func (fb *FunctionBuilder) exposeCapture(id ident.ID) (bytecode.CaptureSource, bool) {
	if b, ok := fb.lookupLocal(id); ok {
		cellSlot := fb.promote(b)
		return bytecode.CaptureSource{FromInherited: false, Index: cellSlot}, true
	}
	if fb.parent == nil {
		return bytecode.CaptureSource{}, false
	}
	if idx, ok := fb.captureIndex[id]; ok {
		return bytecode.CaptureSource{FromInherited: true, Index: idx}, true
	}
	src, ok := fb.parent.exposeCapture(id)
	if !ok {
		return bytecode.CaptureSource{}, false
	}
	idx := uint32(len(fb.captures))
	fb.captures = append(fb.captures, src)
	fb.captureIndex[id] = idx
	return bytecode.CaptureSource{FromInherited: true, Index: idx}, true
}

// registerClassID makes name resolvable as a superclass reference by
// lexically nested class expressions (an `extends` clause may only name a
// class built by this same compiler pass, not an arbitrary runtime
// expression).
func (fb *FunctionBuilder) registerClassID(name string, id runtime.ClassID) {
	if fb.classIDs == nil {
		fb.classIDs = make(map[string]runtime.ClassID)
	}
	fb.classIDs[name] = id
}

// lookupClassID searches this function and its enclosing chain for a
// class registered under name.
func (fb *FunctionBuilder) lookupClassID(name string) (runtime.ClassID, bool) {
	for b := fb; b != nil; b = b.parent {
		if id, ok := b.classIDs[name]; ok {
			return id, true
		}
	}
	return 0, false
}

// promote converts a binding from a plain stack slot to an own-capture
// cell, emitting OpPromoteToCapture at the current point of fb's bytecode
// stream — syntactically, the point at which the nested closure that
// captures it is being built, which always lexically follows the
// binding's declaration.
func (fb *FunctionBuilder) promote(b *binding) uint32 {
	if b.class == ClassCapture {
		return b.slot
	}
	cellSlot := fb.nextOwnCell
	fb.nextOwnCell++
	fb.emit(bytecode.OpPromoteToCapture, bytecode.PromoteImm{LocalSlot: b.slot, CellSlot: cellSlot})
	b.class = ClassCapture
	b.slot = cellSlot
	return cellSlot
}
