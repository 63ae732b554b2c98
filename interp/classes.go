package interp

import (
	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// resolveCaptures builds a closure's capture frame from the instantiating
// frame's point of view: each source is either one of that frame's own
// promoted-local cells, or a pass-through from its own inherited frame
// (§3 Capture Frame).
func resolveCaptures(fr *Frame, sources []bytecode.CaptureSource) []*value.Cell {
	if len(sources) == 0 {
		return nil
	}
	out := make([]*value.Cell, len(sources))
	for i, s := range sources {
		if s.FromInherited {
			out[i] = fr.inherited[s.Index]
		} else {
			out[i] = fr.cell(s.Index)
		}
	}
	return out
}

// makeClosure builds a plain function object for funcID over the capture
// frame resolveCaptures derives from fr. Arrows snapshot the creating
// frame's `this` into BoundThis, the same field Function.prototype.bind
// uses, so callValue's arrow branch needs no separate mechanism.
func (ip *Interp) makeClosure(fr *Frame, funcID uint32, captures []bytecode.CaptureSource, isArrow bool) value.Value {
	desc, _ := ip.rt.GetFunction(runtime.FuncID(funcID))
	o := object.New(ip.rt.Prototypes().Function)
	o.Kind = object.KindFunction
	c := &object.Callable{
		FuncID:       funcID,
		IsArrow:      isArrow,
		CaptureFrame: resolveCaptures(fr, captures),
	}
	if desc != nil {
		c.IsAsync = desc.IsAsync
		c.IsGenerator = desc.IsGenerator
		c.Arity = desc.Arity
	}
	if isArrow {
		this := fr.this
		c.BoundThis = &this
	}
	o.Callable = c
	fn := ip.rt.NewObject(o)

	if desc != nil {
		proto := object.New(ip.rt.Prototypes().Object)
		protoVal := ip.rt.NewObject(proto)
		proto.DefineOwn(object.FieldKey(ip.rt.WellKnown().Constructor), object.Descriptor{Value: fn, Writable: true, Configurable: true})
		o.DefineOwn(object.FieldKey(ip.rt.WellKnown().Prototype), object.Descriptor{Value: protoVal, Writable: true})
	}
	return fn
}

// fieldInit is one deferred instance field initializer registered by
// OpBindField/OpBindPrivate for a non-static member (§4.1 Classes).
type fieldInit struct {
	field      ident.ID
	funcID     uint32
	captures   []bytecode.CaptureSource
	definingFr *Frame
}

// runFieldInit evaluates one deferred field initializer against a freshly
// constructed instance, right after allocation and before the constructor
// body runs — a documented simplification of ECMAScript's precise field
// initialization order relative to `super()` (§9 Design Notes).
func (ip *Interp) runFieldInit(fi fieldInit, instance value.Value) error {
	val := value.Undefined
	if fi.funcID != 0 {
		closure := ip.makeClosure(fi.definingFr, fi.funcID, fi.captures, false)
		v, err := ip.callValue(closure, instance, nil)
		if err != nil {
			return err
		}
		val = v
	}
	ip.rt.Object(instance).DefineOwn(object.FieldKey(fi.field), object.DataProperty(val))
	return nil
}

// createClass implements OpCreateClass: materialize the constructor object
// and its .prototype, linking the superclass's prototype in for a derived
// class (§4.1 Classes). The superclass's own constructor object is looked
// up in the interpreter-wide classCtor table, since it may have been
// created in a wholly different frame at an earlier point in execution.
func (ip *Interp) createClass(fr *Frame, imm bytecode.ClassImm) (value.Value, error) {
	classID := runtime.ClassID(imm.ClassID)
	def, ok := ip.rt.GetClass(classID)
	if !ok {
		return value.Undefined, jserrors.Newf(jserrors.PhaseClass, jserrors.KindInternal, "unregistered class id %d", imm.ClassID)
	}

	ctorObj := object.New(ip.rt.Prototypes().Function)
	ctorObj.Kind = object.KindClass
	ctorObj.Callable = &object.Callable{
		FuncID:       uint32(def.Constructor),
		IsClass:      true,
		CaptureFrame: resolveCaptures(fr, imm.Captures),
	}
	ctorVal := ip.rt.NewObject(ctorObj)

	var protoParent *object.Object = ip.rt.Prototypes().Object
	if def.HasSuper {
		ip.classMu.Lock()
		superCtor := ip.classCtor[def.Super]
		ip.classMu.Unlock()
		if superCtor != nil {
			if protoD, ok := superCtor.GetOwn(object.FieldKey(ip.rt.WellKnown().Prototype)); ok && protoD.Value.IsObject() {
				protoParent = ip.rt.Object(protoD.Value)
			}
			ctorObj.Proto = superCtor
		}
	}
	proto := object.New(protoParent)
	protoVal := ip.rt.NewObject(proto)
	proto.DefineOwn(object.FieldKey(ip.rt.WellKnown().Constructor), object.Descriptor{Value: ctorVal, Writable: true, Configurable: true})
	ctorObj.DefineOwn(object.FieldKey(ip.rt.WellKnown().Prototype), object.Descriptor{Value: protoVal, Writable: false, Configurable: false})

	ip.classMu.Lock()
	ip.classCtor[classID] = ctorObj
	ip.ctorFuncClass[def.Constructor] = classID
	ip.classMu.Unlock()

	if fr.pendingClass == nil {
		fr.pendingClass = make(map[uint32]*object.Object)
	}
	fr.pendingClass[imm.ClassID] = ctorObj

	return ctorVal, nil
}

func (ip *Interp) classTarget(fr *Frame, classID uint32, static bool) *object.Object {
	ctorObj := fr.pendingClass[classID]
	if static {
		return ctorObj
	}
	protoD, _ := ctorObj.GetOwn(object.FieldKey(ip.rt.WellKnown().Prototype))
	return ip.rt.Object(protoD.Value)
}

func (ip *Interp) bindMethod(fr *Frame, imm bytecode.MemberImm) {
	target := ip.classTarget(fr, imm.ClassID, imm.Static)
	closure := ip.makeClosure(fr, imm.FuncID, imm.Captures, false)
	target.DefineOwn(object.FieldKey(imm.Field), object.Descriptor{Value: closure, Writable: true, Configurable: true})
}

func (ip *Interp) bindAccessor(fr *Frame, imm bytecode.MemberImm, isGetter bool) {
	target := ip.classTarget(fr, imm.ClassID, imm.Static)
	closure := ip.makeClosure(fr, imm.FuncID, imm.Captures, false)
	key := object.FieldKey(imm.Field)
	d := object.Descriptor{IsAccessor: true, Configurable: true}
	if existing, ok := target.GetOwn(key); ok && existing.IsAccessor {
		d = *existing
	}
	if isGetter {
		d.Get = closure
	} else {
		d.Set = closure
	}
	target.DefineOwn(key, d)
}

// bindField implements OpBindField: a static field's initializer runs
// immediately with `this` bound to the constructor object; an instance
// field is deferred to construct() time (§4.1 Classes).
func (ip *Interp) bindField(fr *Frame, imm bytecode.MemberImm) error {
	ctorObj := fr.pendingClass[imm.ClassID]
	if imm.Static {
		val := value.Undefined
		if imm.FuncID != 0 {
			closure := ip.makeClosure(fr, imm.FuncID, imm.Captures, false)
			ctorVal := ip.rt.NewObject(ctorObj)
			v, err := ip.callValue(closure, ctorVal, nil)
			if err != nil {
				return err
			}
			val = v
		}
		ctorObj.DefineOwn(object.FieldKey(imm.Field), object.DataProperty(val))
		return nil
	}
	ip.instanceFields[ctorObj] = append(ip.instanceFields[ctorObj], fieldInit{
		field: imm.Field, funcID: imm.FuncID, captures: imm.Captures, definingFr: fr,
	})
	return nil
}

// bindPrivate implements OpBindPrivate: every private member (field,
// method, getter, or setter) collapses to this single opcode in the
// bytecode the builder emits, with no further Kind distinction preserved
// (see builder/closure.go's bindMemberOp) — FuncID == 0 is treated as a
// private field (deferred exactly like a public one), otherwise as a
// private method attached directly to the target object. Private
// getters/setters-with-bodies are indistinguishable from private methods
// at this opcode; this is an accepted limitation of the existing builder
// output, not a choice made in the interpreter (see DESIGN.md).
func (ip *Interp) bindPrivate(fr *Frame, imm bytecode.MemberImm) error {
	if imm.FuncID == 0 {
		return ip.bindField(fr, imm)
	}
	ip.bindMethod(fr, imm)
	return nil
}
