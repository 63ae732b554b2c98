// Package object implements the engine's dynamic object representation: a
// property-descriptor map plus a prototype back-reference and an optional
// wrapped primitive, per §3's Object data model.
package object

import (
	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/value"
)

// Key is a property key: either an interned field name or a symbol id.
// Exactly one of the two is meaningful, discriminated by IsSymbol.
type Key struct {
	Field    ident.ID
	Symbol   uint32
	IsSymbol bool
}

// FieldKey constructs a Key from an interned field name id.
func FieldKey(id ident.ID) Key { return Key{Field: id} }

// SymbolKey constructs a Key from a symbol id.
func SymbolKey(id uint32) Key { return Key{Symbol: id, IsSymbol: true} }

// Descriptor is a property descriptor. A data property has Value set and
// IsAccessor false; an accessor property has IsAccessor set, Get/Set
// (either may be the zero Value, Undefined or Null, meaning absent) and
// Value unused.
type Descriptor struct {
	Value        value.Value
	Get          value.Value
	Set          value.Value
	Writable     bool
	Enumerable   bool
	Configurable bool
	IsAccessor   bool
}

// DataProperty builds a writable+enumerable+configurable data descriptor,
// the shape produced by ordinary `obj.x = v` and object-literal properties.
func DataProperty(v value.Value) Descriptor {
	return Descriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Kind distinguishes what primitive (if any) an Object boxes, so that
// runtime.ToPrimitive and friends know how to unwrap it without a type
// switch over dozens of built-in classes.
type Kind uint8

const (
	KindPlain Kind = iota
	KindArray
	KindFunction
	KindBoundFunction
	KindClass
	KindBoxedBoolean
	KindBoxedNumber
	KindBoxedString
	KindBoxedBigInt
	KindBoxedSymbol
	KindRegExp
	KindPromise
	KindError
	KindArguments
	KindGenerator
	KindMap
	KindSet
)

// Object is the engine's dynamic object. Identity is the address of this
// struct (objects are always referred to through a Handle into the
// runtime's object table, never copied).
type Object struct {
	Kind       Kind
	Proto      *Object // nil means "no prototype" (the ordinary prototype root)
	props      map[Key]*Descriptor
	keyOrder   []Key // insertion order, for for-in / Object.keys
	Extensible bool

	// Primitive is the wrapped primitive for boxed-primitive and regexp
	// kinds; Elements backs array-kind fast storage; Callable backs
	// function/class kinds. These are populated by the runtime/interp
	// layer, not by this package, which only owns the property map and
	// prototype chain.
	Primitive value.Value
	Elements  []value.Value
	Callable  *Callable

	// Host is opaque interpreter-owned state this package never reads or
	// writes — currently the generator coroutine driver behind a
	// KindGenerator object (see package interp's generator.go).
	Host any
}

// Callable is attached to function/class/bound-function objects. The
// interpreter (which owns FuncID resolution) is the only consumer.
type Callable struct {
	FuncID      uint32
	IsClass     bool
	IsArrow     bool
	IsAsync     bool
	IsGenerator bool
	Arity       uint32
	// CaptureFrame is snapshotted at CreateFunction/CreateArrow time
	// (§3 Capture Frame / §4.1 Function construction). Each entry is a
	// shared pointer, not a value copy, so that a mutation made through one
	// closure's capture slot is visible through every other closure (and
	// the declaring function itself) that captured the same variable.
	CaptureFrame []*value.Cell
	// BoundThis/BoundArgs are set for Function.prototype.bind results.
	BoundThis *value.Value
	BoundArgs []value.Value
	Target    *Object // the bound target, for BoundFunction kind
}

// New constructs a plain, extensible object with the given prototype.
func New(proto *Object) *Object {
	return &Object{Proto: proto, Extensible: true, props: make(map[Key]*Descriptor)}
}

// GetOwn returns the object's own property descriptor, not walking Proto.
func (o *Object) GetOwn(k Key) (*Descriptor, bool) {
	d, ok := o.props[k]
	return d, ok
}

// Get walks the prototype chain and returns the first matching descriptor
// plus the object it was found on (needed so the interpreter can invoke an
// accessor's Get function with the correct receiver distinct from the
// holder).
func (o *Object) Get(k Key) (desc *Descriptor, holder *Object, ok bool) {
	for cur := o; cur != nil; cur = cur.Proto {
		if d, found := cur.props[k]; found {
			return d, cur, true
		}
	}
	return nil, nil, false
}

// DefineOwn installs or replaces an own property descriptor, recording
// first-seen insertion order for enumeration.
func (o *Object) DefineOwn(k Key, d Descriptor) {
	if _, existed := o.props[k]; !existed {
		o.keyOrder = append(o.keyOrder, k)
	}
	cp := d
	o.props[k] = &cp
}

// DeleteOwn removes an own property, reporting whether it existed. A
// non-configurable property is not removed and DeleteOwn reports false
// without error — callers needing strict-mode TypeError semantics check
// Configurable themselves before calling this.
func (o *Object) DeleteOwn(k Key) bool {
	d, ok := o.props[k]
	if !ok {
		return true // deleting an absent property always "succeeds"
	}
	if !d.Configurable {
		return false
	}
	delete(o.props, k)
	for i, kk := range o.keyOrder {
		if kk == k {
			o.keyOrder = append(o.keyOrder[:i], o.keyOrder[i+1:]...)
			break
		}
	}
	return true
}

// OwnKeys returns own property keys in insertion order (integer-index
// ordering for arrays is the caller's responsibility via Elements).
func (o *Object) OwnKeys() []Key {
	out := make([]Key, len(o.keyOrder))
	copy(out, o.keyOrder)
	return out
}

// HasProperty reports whether k resolves anywhere on the prototype chain
// (the `in` operator, per §4.2).
func (o *Object) HasProperty(k Key) bool {
	_, _, ok := o.Get(k)
	return ok
}

// IsCallable reports whether this object can be invoked (§4.2 Instanceof,
// §4.3 Call convention).
func (o *Object) IsCallable() bool {
	return o.Callable != nil
}

// IsConstructor reports whether `new` may target this object.
func (o *Object) IsConstructor() bool {
	return o.Callable != nil && (o.Kind == KindFunction || o.Kind == KindClass || o.Kind == KindBoundFunction) && !o.Callable.IsArrow
}
