package interp

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/jsvm/internal/jslog"
	"github.com/wippyai/jsvm/runtime"
	"github.com/wippyai/jsvm/value"
)

// tier2Host owns the single wazero.Runtime an Interp lazily creates the
// first time it calls a Tier2Descriptor, plus the instantiated export
// functions it has already resolved, keyed by the descriptor that produced
// them (stable for the FunctionDescriptor's lifetime, unlike its bytes).
//
// A tier2 module is always a single core WASM binary with one numeric
// export — none of the WIT/component-model machinery this codebase's
// engine package builds on raw wazero for is needed here, since the
// seam's calling convention (flattened NaN-boxed i64 words in, one
// NaN-boxed i64 word out) is fixed by Tier2Descriptor itself rather than
// negotiated from a WIT interface.
type tier2Host struct {
	rt wazero.Runtime

	mu      sync.Mutex
	modules map[*runtime.Tier2Descriptor]api.Function
}

func (ip *Interp) tier2() *tier2Host {
	ip.tier2Mu.Lock()
	defer ip.tier2Mu.Unlock()
	if ip.tier2Host == nil {
		ip.tier2Host = &tier2Host{
			rt:      wazero.NewRuntime(context.Background()),
			modules: make(map[*runtime.Tier2Descriptor]api.Function),
		}
	}
	return ip.tier2Host
}

// Close tears down the tier2 host's wazero runtime, if one was ever
// created. A host that never ran a Tier2Descriptor never allocated one, so
// Close is a no-op for it. Safe to call unconditionally from a long-lived
// embedder's own shutdown path (e.g. cmd/jsrun's).
func (ip *Interp) Close(ctx context.Context) error {
	ip.tier2Mu.Lock()
	h := ip.tier2Host
	ip.tier2Host = nil
	ip.tier2Mu.Unlock()
	if h == nil {
		return nil
	}
	return h.rt.Close(ctx)
}

// resolve compiles and instantiates desc.Wasm the first time it is seen,
// caching the resulting export for every subsequent call.
func (h *tier2Host) resolve(ctx context.Context, desc *runtime.Tier2Descriptor) (api.Function, error) {
	h.mu.Lock()
	fn, ok := h.modules[desc]
	h.mu.Unlock()
	if ok {
		return fn, nil
	}

	compiled, err := h.rt.CompileModule(ctx, desc.Wasm)
	if err != nil {
		return nil, err
	}
	modConfig := wazero.NewModuleConfig().WithName("")
	instance, err := h.rt.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, err
	}
	fn = instance.ExportedFunction(desc.Export)
	if fn == nil {
		return nil, errTier2ExportNotFound{export: desc.Export}
	}

	h.mu.Lock()
	h.modules[desc] = fn
	h.mu.Unlock()
	return fn, nil
}

type errTier2ExportNotFound struct{ export string }

func (e errTier2ExportNotFound) Error() string {
	return "tier2: export " + e.export + " not found"
}

// callTier2 is the §4.8 native-codegen seam: if desc carries a
// Tier2Descriptor, try running it through wazero instead of walking
// desc.Bytecode. The bool result reports whether tier2 actually ran —
// on any wazero-side failure (bad module, missing export, trap) it
// returns false so callValue falls back to the ordinary interpreted
// path, logging each failure at Warn level rather than surfacing it as a thrown
// exception, since a tier-2 failure is a host-compiler defect, not a
// guest-level error.
func (ip *Interp) callTier2(ctx context.Context, desc *runtime.FunctionDescriptor, this value.Value, args []value.Value) (value.Value, bool, error) {
	fn, err := ip.tier2().resolve(ctx, desc.Tier2)
	if err != nil {
		jslog.Logger().Warn("tier2: falling back to interpreted bytecode",
			zap.String("function", desc.Name),
			zap.Error(err))
		return value.Undefined, false, nil
	}

	words := make([]uint64, 0, len(args)+1)
	words = append(words, uint64(this))
	for _, a := range args {
		words = append(words, uint64(a))
	}

	results, err := fn.Call(ctx, words...)
	if err != nil {
		jslog.Logger().Warn("tier2: export trapped, falling back to interpreted bytecode",
			zap.String("function", desc.Name),
			zap.String("export", desc.Tier2.Export),
			zap.Error(err))
		return value.Undefined, false, nil
	}
	if len(results) == 0 {
		return value.Undefined, true, nil
	}
	return value.Value(results[0]), true, nil
}
