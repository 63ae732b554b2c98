package runtime

import "github.com/wippyai/jsvm/object"

// prototypeRoots holds the built-in prototype objects ToObject boxes a
// primitive against, per §4.2: "ToObject on primitives... allocates a
// boxed wrapper whose prototype is the corresponding built-in prototype."
//
// This engine's core does not implement the built-in method tables
// themselves (Array.prototype.map and friends are out of scope, §1); it
// only owns the prototype objects as anchors so that property lookup on a
// boxed primitive terminates correctly and `instanceof` against a built-in
// constructor is well-defined once the host installs one.
type prototypeRoots struct {
	Object    *object.Object
	Function  *object.Object
	Array     *object.Object
	String    *object.Object
	Number    *object.Object
	Boolean   *object.Object
	Symbol    *object.Object
	BigInt    *object.Object
	RegExp    *object.Object
	Error     *object.Object
	Promise   *object.Object
	Iterator  *object.Object
	Generator *object.Object
}

func (rt *Runtime) initPrototypes() {
	root := object.New(nil)
	rt.protos = prototypeRoots{
		Object:    root,
		Function:  object.New(root),
		Array:     object.New(root),
		String:    object.New(root),
		Number:    object.New(root),
		Boolean:   object.New(root),
		Symbol:    object.New(root),
		BigInt:    object.New(root),
		RegExp:    object.New(root),
		Error:     object.New(root),
		Promise:   object.New(root),
		Iterator:  object.New(root),
		Generator: object.New(root),
	}
}

// Prototypes exposes the built-in prototype roots so an embedder can
// install method tables (Array.prototype.push, etc.) before executing any
// script.
func (rt *Runtime) Prototypes() *prototypeRoots { return &rt.protos }

// PrototypeFor returns the built-in prototype object for a primitive kind,
// used by ToObject (package runtime's coerce.go).
func (rt *Runtime) PrototypeFor(k object.Kind) *object.Object {
	switch k {
	case object.KindBoxedString:
		return rt.protos.String
	case object.KindBoxedNumber:
		return rt.protos.Number
	case object.KindBoxedBoolean:
		return rt.protos.Boolean
	case object.KindBoxedBigInt:
		return rt.protos.BigInt
	case object.KindBoxedSymbol:
		return rt.protos.Symbol
	case object.KindArray:
		return rt.protos.Array
	case object.KindFunction, object.KindBoundFunction, object.KindClass:
		return rt.protos.Function
	case object.KindRegExp:
		return rt.protos.RegExp
	case object.KindError:
		return rt.protos.Error
	case object.KindPromise:
		return rt.protos.Promise
	case object.KindGenerator:
		return rt.protos.Generator
	default:
		return rt.protos.Object
	}
}
