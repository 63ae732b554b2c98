package interp

import (
	"context"
	"sync"

	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// Interp executes bytecode.Program against a Runtime. It owns every piece
// of execution-local state a Runtime deliberately does not hold: the
// global (dynamic-scope) object undeclared bindings resolve against,
// in-flight iterator state, and the class-instantiation bookkeeping
// described in classes.go.
//
// A Interp wires itself into its Runtime's Invoker on construction, so
// coerce.go's ToPrimitive/callMethod can run user bytecode (valueOf,
// toString, @@toPrimitive, @@hasInstance) without package runtime ever
// importing package interp (§5).
type Interp struct {
	rt *runtime.Runtime

	global *object.Object

	iterMu    sync.Mutex
	iterators map[value.Handle]*iterState

	classMu sync.Mutex
	// classCtor is the most recently created constructor object per
	// ClassID, process-wide — a derived class's `extends` target may have
	// been instantiated in a completely different frame, possibly long
	// before the subclass itself runs (§4.1 Classes: "extends restricted
	// to statically-known classes").
	classCtor map[runtime.ClassID]*object.Object
	// ctorFuncClass maps a class's constructor FuncID back to its ClassID,
	// so that invoking a constructor (directly via `new`, or indirectly
	// through a derived class's `super(...)` call) can find the class's
	// HasSuper/Super fields without threading ClassID through every call
	// site.
	ctorFuncClass map[runtime.FuncID]runtime.ClassID
	// instanceFields holds the deferred (non-static) field initializers a
	// class's Bind opcodes registered, run once per `new` against the
	// freshly allocated instance (§4.1 Classes, see classes.go).
	instanceFields map[*object.Object][]fieldInit

	// tier2Host lazily holds the shared wazero runtime and per-descriptor
	// compiled/instantiated modules backing the §4.8 native-codegen seam
	// (see tier2.go). Left nil until the first Tier2Descriptor is invoked,
	// so a script that never registers one never touches wazero at all.
	tier2Mu   sync.Mutex
	tier2Host *tier2Host
}

// New wraps rt with a fresh, empty execution context and wires this
// Interp as rt's Invoker.
func New(rt *runtime.Runtime) *Interp {
	ip := &Interp{
		rt:             rt,
		global:         object.New(rt.Prototypes().Object),
		iterators:      make(map[value.Handle]*iterState),
		classCtor:      make(map[runtime.ClassID]*object.Object),
		ctorFuncClass:  make(map[runtime.FuncID]runtime.ClassID),
		instanceFields: make(map[*object.Object][]fieldInit),
	}
	rt.SetInvoker(ip.invoke)
	return ip
}

// Runtime returns the Runtime this Interp executes against.
func (ip *Interp) Runtime() *runtime.Runtime { return ip.rt }

// Global returns the plain object backing every undeclared dynamic-scope
// binding (OpGetDynamic/OpSetDynamic/OpDeclareDynamic), letting a host
// install globals (e.g. `console`, `globalThis` itself) before running a
// script.
func (ip *Interp) Global() *object.Object { return ip.global }

// RunScript executes a top-level FunctionDescriptor (built from New(rt),
// never from a nested function/class builder) as a script: `this` and
// `new.target` are undefined, and there is no inherited capture frame.
func (ip *Interp) RunScript(desc *runtime.FunctionDescriptor) (value.Value, error) {
	fr := newFrame(desc, value.Undefined, value.Undefined, nil)
	v, err := ip.runFrame(fr)
	if err != nil {
		return value.Undefined, unwrapThrown(ip.rt, err)
	}
	return v, nil
}

// invoke is installed as the Runtime's Invoker: it calls fn(this,
// args...), the entry point coercion needs to run valueOf/toString/
// @@toPrimitive/@@hasInstance against a user-defined object.
func (ip *Interp) invoke(fn, this value.Value, args []value.Value) (value.Value, error) {
	v, err := ip.callValue(fn, this, args)
	if err != nil {
		return value.Undefined, unwrapThrown(ip.rt, err)
	}
	return v, nil
}

// Call invokes a callable value from host code (e.g. a REPL evaluating a
// call expression's result, or a test harness), returning an ordinary Go
// error — any thrown JS value is reported via its message, matching
// ErrorFromThrown's contract for host-facing callers that don't need the
// raw thrown value back.
func (ip *Interp) Call(fn, this value.Value, args []value.Value) (value.Value, error) {
	v, err := ip.callValue(fn, this, args)
	if err != nil {
		return value.Undefined, unwrapThrown(ip.rt, err)
	}
	return v, nil
}

// callValue is the shared call entry point: it dispatches on the
// callable's kind (plain function, arrow, bound function, class
// constructor) and always returns a *thrown error on a JS-level exception,
// so nested calls compose through the same try/catch machinery as any
// other opcode (see dispatch.go's raise).
func (ip *Interp) callValue(fn, this value.Value, args []value.Value) (value.Value, error) {
	if !fn.IsObject() {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.TypeErrorf(jserrors.PhaseCall, "value is not a function"))}
	}
	fo := ip.rt.Object(fn)
	if !fo.IsCallable() {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.TypeErrorf(jserrors.PhaseCall, "value is not a function"))}
	}
	c := fo.Callable

	if c.Target != nil {
		// Bound function: prepend BoundArgs, ignore the caller's `this`.
		boundArgs := append(append([]value.Value{}, c.BoundArgs...), args...)
		boundThis := this
		if c.BoundThis != nil {
			boundThis = *c.BoundThis
		}
		return ip.callValue(ip.rt.NewObject(c.Target), boundThis, boundArgs)
	}

	desc, ok := ip.rt.GetFunction(runtime.FuncID(c.FuncID))
	if !ok {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.Newf(jserrors.PhaseCall, jserrors.KindInternal, "unregistered function id %d", c.FuncID))}
	}

	callThis := this
	if c.IsArrow {
		// Arrows never rebind `this`; they inherit it from wherever they
		// were created. The interpreter does not re-derive that here —
		// see classes.go's makeClosure, which snapshots the
		// creating frame's `this` into the arrow's own Callable via
		// BoundThis, the same field a bind() result uses.
		if c.BoundThis != nil {
			callThis = *c.BoundThis
		}
	}

	newTarget := value.Undefined
	fr := newFrame(desc, callThis, newTarget, c.CaptureFrame)

	if classID, ok := ip.ctorFuncClass[runtime.FuncID(c.FuncID)]; ok {
		if def, ok := ip.rt.GetClass(classID); ok && def.HasSuper {
			ip.classMu.Lock()
			superCtor := ip.classCtor[def.Super]
			ip.classMu.Unlock()
			if superCtor != nil {
				fr.hasSuperCtor = true
				fr.superCtor = ip.rt.NewObject(superCtor)
			}
		}
	}

	if desc.IsGenerator {
		// A generator function call never runs the body: it returns a
		// Generator object wrapping the bound frame, and the body only
		// starts executing on the first next() (see generator.go).
		bindCallArgs(ip, fr, args)
		return ip.newGenerator(fr), nil
	}

	if desc.Tier2 != nil {
		if v, ok, err := ip.callTier2(context.Background(), desc, callThis, args); ok {
			return v, err
		}
	}

	v, err := ip.runFrame2(fr, args)
	return v, err
}

// construct implements the `new` operator: allocate a fresh instance
// object whose prototype is the callee's `.prototype`, run any deferred
// instance field initializers, invoke the constructor with `this` bound
// to the new instance, and return the constructor's result if it is an
// object, otherwise the instance itself (§4.2 ECMAScript's ordinary
// [[Construct]]).
func (ip *Interp) construct(calleeVal value.Value, args []value.Value) (value.Value, error) {
	if !calleeVal.IsObject() {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.TypeErrorf(jserrors.PhaseCall, "value is not a constructor"))}
	}
	fo := ip.rt.Object(calleeVal)
	if !fo.IsConstructor() {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.TypeErrorf(jserrors.PhaseCall, "value is not a constructor"))}
	}

	protoVal, err := ip.rt.GetProperty(calleeVal, object.FieldKey(ip.rt.WellKnown().Prototype), "prototype")
	if err != nil {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(err)}
	}
	var proto *object.Object
	if protoVal.IsObject() {
		proto = ip.rt.Object(protoVal)
	} else {
		proto = ip.rt.Prototypes().Object
	}

	instance := object.New(proto)
	instanceVal := ip.rt.NewObject(instance)

	if inits, ok := ip.instanceFields[fo]; ok {
		for _, fi := range inits {
			if err := ip.runFieldInit(fi, instanceVal); err != nil {
				return value.Undefined, err
			}
		}
	}

	c := fo.Callable
	desc, ok := ip.rt.GetFunction(runtime.FuncID(c.FuncID))
	if !ok {
		return value.Undefined, &thrown{V: ip.rt.ToThrown(jserrors.Newf(jserrors.PhaseCall, jserrors.KindInternal, "unregistered function id %d", c.FuncID))}
	}
	fr := newFrame(desc, instanceVal, instanceVal, c.CaptureFrame)
	if classID, ok := ip.ctorFuncClass[runtime.FuncID(c.FuncID)]; ok {
		if def, ok := ip.rt.GetClass(classID); ok && def.HasSuper {
			ip.classMu.Lock()
			superCtor := ip.classCtor[def.Super]
			ip.classMu.Unlock()
			if superCtor != nil {
				fr.hasSuperCtor = true
				fr.superCtor = ip.rt.NewObject(superCtor)
			}
		}
	}

	ret, err := ip.runFrame2(fr, args)
	if err != nil {
		return value.Undefined, err
	}
	if ret.IsObject() {
		return ret, nil
	}
	return instanceVal, nil
}

// unwrapThrown recovers the carried JS value from a *thrown error, or
// boxes any other error (a build-time-shaped *jserrors.Error that reached
// here unconverted, or a host panic recovered elsewhere) the same way
// ToThrown always does, so callers outside the dispatch loop never need to
// know about the internal thrown type.
func unwrapThrown(rt *runtime.Runtime, err error) error {
	if err == nil {
		return nil
	}
	if t, ok := err.(*thrown); ok {
		return &hostError{rt: rt, v: t.V}
	}
	return err
}

// hostError adapts a thrown JS value into a plain Go error for host code
// that only wants a message, while still exposing the original value
// through Value() for a host that wants ErrorFromThrown-style detail.
type hostError struct {
	rt *runtime.Runtime
	v  value.Value
}

func (e *hostError) Error() string {
	if kind, msg, ok := e.rt.ErrorFromThrown(e.v); ok {
		return string(kind) + ": " + msg
	}
	s, err := e.rt.ToString(e.v)
	if err != nil {
		return "uncaught JavaScript exception"
	}
	return s
}

// Value returns the raw thrown JS value.
func (e *hostError) Value() value.Value { return e.v }
