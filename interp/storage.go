package interp

import (
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// getLocal/setLocal address a function's own value-stack slots, one per
// allocStackSlot call the builder made against it.
func (fr *Frame) getLocal(slot uint32) value.Value { return fr.stack[slot] }

func (fr *Frame) setLocal(slot uint32, v value.Value) { fr.stack[slot] = v }

// getCapture/setCapture address this function's OWN promoted-local cells,
// lazily allocated the first time a closure is found to capture them.
func (fr *Frame) getCapture(slot uint32) value.Value { return fr.cell(slot).V }

func (fr *Frame) setCapture(slot uint32, v value.Value) { fr.cell(slot).V = v }

// getInherited/setInherited address the capture frame this function
// instance received from its creator at CreateFunction/CreateArrow/
// CreateClass time.
func (fr *Frame) getInherited(slot uint32) value.Value { return fr.inherited[slot].V }

func (fr *Frame) setInherited(slot uint32, v value.Value) { fr.inherited[slot].V = v }

// getDynamic resolves an undeclared or var-hoisted binding against the
// frame-local "SUPER CONSTRUCTOR" override (inside a derived class's
// constructor) or the interpreter's global object, matching
// Runtime.StrictMode's documented gating: a missing binding throws
// ReferenceError in strict mode and reads as undefined otherwise (no
// binding is created; setDynamic creates one on assignment).
func (ip *Interp) getDynamic(fr *Frame, imm bytecode.DynImm) (value.Value, error) {
	if fr.hasSuperCtor && imm.Name == ip.rt.WellKnown().SuperConstructor {
		return fr.superCtor, nil
	}
	key := object.FieldKey(imm.Name)
	if d, _, ok := ip.global.Get(key); ok {
		if d.IsAccessor {
			return ip.rt.GetProperty(ip.rt.NewObject(ip.global), key, ip.rt.Fields().Name(imm.Name))
		}
		return d.Value, nil
	}
	if ip.rt.StrictMode() {
		return value.Undefined, jserrors.ReferenceErrorf(jserrors.PhaseRun, "%s is not defined", ip.rt.Fields().Name(imm.Name))
	}
	return value.Undefined, nil
}

func (ip *Interp) setDynamic(imm bytecode.DynImm, v value.Value) error {
	key := object.FieldKey(imm.Name)
	if d, _, ok := ip.global.Get(key); ok && d.IsAccessor {
		return ip.rt.SetProperty(ip.rt.NewObject(ip.global), key, v)
	}
	ip.global.DefineOwn(key, object.DataProperty(v))
	return nil
}

// declareDynamic implements OpDeclareDynamic: a binding materialized as an
// own property of the interpreter's global object. The builder in this
// module does not emit the opcode; its hoisted var/function and top-level
// let/const declarations are locals of the enclosing frame. Redeclaration simply
// overwrites the existing binding's value, matching sloppy-mode var
// semantics; Kind is otherwise informational (this engine enforces no
// temporal-dead-zone distinction for dynamic bindings).
func (ip *Interp) declareDynamic(imm bytecode.DynImm, v value.Value) {
	key := object.FieldKey(imm.Name)
	if _, ok := ip.global.GetOwn(key); ok {
		existing, _ := ip.global.GetOwn(key)
		existing.Value = v
		return
	}
	ip.global.DefineOwn(key, object.DataProperty(v))
}
