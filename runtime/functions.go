package runtime

import (
	"sync"

	"github.com/wippyai/jsvm/bytecode"
)

// FuncID is an opaque, runtime-assigned handle to a FunctionDescriptor
// (§3, §6).
type FuncID uint32

// Tier2Descriptor is the optional native-codegen seam of §4.8: when a host
// compiler has lowered a function's bytecode to WebAssembly ahead of time,
// it registers the compiled module's bytes and export name here. The core
// never produces one itself — it only hosts whichever tier-2 engine is
// wired in (see package interp's tier2 seam, built on wazero).
type Tier2Descriptor struct {
	// Wasm is a complete, already-compiled WebAssembly binary module
	// whose single relevant export is named by Export.
	Wasm []byte
	// Export takes the function's flattened NaN-boxed arguments as i64
	// words (plus the boxed `this`) and returns a single NaN-boxed i64
	// result, or traps.
	Export string
}

// FunctionDescriptor is immutable after Finish (§3 Function Descriptor):
// arity, async/generator flags, the maximum value-stack offset the
// function's bytecode reaches, its capture-frame size, and the linearized
// bytecode itself.
type FunctionDescriptor struct {
	IsAsync        bool
	IsGenerator    bool
	Arity          uint32
	// HasRestParam reports whether the last declared parameter is a rest
	// parameter. The bytecode itself addresses a rest parameter exactly
	// like any other (a plain OpGetLocal of its positional slot before
	// pattern-binding it), so the interpreter needs this flag to know it
	// must place a freshly built array of the overflow actual arguments
	// into slot Arity-1 at call entry, rather than a single value.
	HasRestParam   bool
	MaxStackOffset uint32
	// CaptureSize is the size of the capture frame this function receives
	// from its parent at closure-creation time (the array backing its
	// OpGetInherited/OpSetInherited reads for variables it captured from an
	// enclosing scope).
	CaptureSize uint32
	// OwnCaptureSlots is the number of this function's own locals that
	// some nested closure captures by reference; each is promoted from a
	// value-stack slot to a *value.Cell by an OpPromoteToCapture at the
	// point of first capture (§4.1).
	OwnCaptureSlots uint32
	Bytecode        bytecode.Program
	Name            string // for diagnostics/Function.prototype.name only
	Tier2           *Tier2Descriptor
}

type functionTable struct {
	mu    sync.RWMutex
	descs []*FunctionDescriptor
}

func (t *functionTable) init() { t.descs = make([]*FunctionDescriptor, 0, 16) }

// NewFunction registers a built FunctionDescriptor and returns its FuncID,
// per the §6 external interface `new_function(descriptor) -> FuncID`.
func (rt *Runtime) NewFunction(desc *FunctionDescriptor) FuncID {
	rt.functions.mu.Lock()
	defer rt.functions.mu.Unlock()
	rt.functions.descs = append(rt.functions.descs, desc)
	return FuncID(len(rt.functions.descs) - 1)
}

// GetFunction retrieves a previously registered FunctionDescriptor.
func (rt *Runtime) GetFunction(id FuncID) (*FunctionDescriptor, bool) {
	rt.functions.mu.RLock()
	defer rt.functions.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(rt.functions.descs) {
		return nil, false
	}
	return rt.functions.descs[id], true
}
