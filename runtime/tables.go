package runtime

import (
	"math/big"
	"sync"

	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// These tables stand in for the external allocator of §3's Lifecycle
// section: "objects, strings, bigints are allocated via the external
// allocator. Values hold no ownership." In Go there is no such external
// allocator to call into — the collector is the Go runtime's GC, and a
// Value's Handle payload is simply a stable index into one of these
// process-wide tables, which themselves are ordinary GC roots (they hold
// Go pointers/strings directly, so nothing referenced from a live Value
// can be collected out from under it).

type objectTable struct {
	mu    sync.RWMutex
	items []*object.Object
}

func (t *objectTable) init() { t.items = make([]*object.Object, 0, 64) }

func (t *objectTable) alloc(o *object.Object) value.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, o)
	return value.Handle(len(t.items) - 1)
}

func (t *objectTable) get(h value.Handle) *object.Object {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.items[h]
}

// NewObject allocates o in the runtime's object table and returns the
// Object-tagged Value referring to it.
func (rt *Runtime) NewObject(o *object.Object) value.Value {
	return value.Object(rt.objects.alloc(o))
}

// Object dereferences an Object-tagged Value. The caller must have already
// checked v.IsObject().
func (rt *Runtime) Object(v value.Value) *object.Object {
	return rt.objects.get(v.AsHandle())
}

type stringTable struct {
	mu     sync.RWMutex
	items  []string
	byText map[string]value.Handle
}

func (t *stringTable) init() {
	t.items = make([]string, 0, 64)
	t.byText = make(map[string]value.Handle)
}

// InternString returns the String-tagged Value for s, deduplicating by
// content so that two equal string literals share one table slot — a pure
// optimisation; String identity for === is defined by content (§3), not by
// table slot, so intern is also valid as the only construction path.
func (rt *Runtime) InternString(s string) value.Value {
	rt.strings.mu.RLock()
	if h, ok := rt.strings.byText[s]; ok {
		rt.strings.mu.RUnlock()
		return value.String(h)
	}
	rt.strings.mu.RUnlock()

	rt.strings.mu.Lock()
	defer rt.strings.mu.Unlock()
	if h, ok := rt.strings.byText[s]; ok {
		return value.String(h)
	}
	rt.strings.items = append(rt.strings.items, s)
	h := value.Handle(len(rt.strings.items) - 1)
	rt.strings.byText[s] = h
	return value.String(h)
}

// String dereferences a String-tagged Value. The caller must have already
// checked v.IsString().
func (rt *Runtime) String(v value.Value) string {
	rt.strings.mu.RLock()
	defer rt.strings.mu.RUnlock()
	return rt.strings.items[v.AsHandle()]
}

type bigintTable struct {
	mu    sync.RWMutex
	items []*big.Int
}

func (t *bigintTable) init() { t.items = make([]*big.Int, 0, 16) }

// NewBigInt allocates n in the runtime's bigint table.
func (rt *Runtime) NewBigInt(n *big.Int) value.Value {
	rt.bigints.mu.Lock()
	defer rt.bigints.mu.Unlock()
	rt.bigints.items = append(rt.bigints.items, n)
	return value.BigInt(value.Handle(len(rt.bigints.items) - 1))
}

// BigInt dereferences a BigInt-tagged Value. The caller must have already
// checked v.IsBigInt().
func (rt *Runtime) BigInt(v value.Value) *big.Int {
	rt.bigints.mu.RLock()
	defer rt.bigints.mu.RUnlock()
	return rt.bigints.items[v.AsHandle()]
}

type regexTable struct {
	mu    sync.RWMutex
	items []RegexHandle
}

func (t *regexTable) init() { t.items = make([]RegexHandle, 0, 8) }

// NewRegex allocates a compiled regex handle and returns its table index,
// used as the ConstID of an OpLoadRegex instruction.
func (rt *Runtime) NewRegex(h RegexHandle) uint32 {
	rt.regexes.mu.Lock()
	defer rt.regexes.mu.Unlock()
	rt.regexes.items = append(rt.regexes.items, h)
	return uint32(len(rt.regexes.items) - 1)
}

// Regex retrieves a previously registered compiled regex handle.
func (rt *Runtime) Regex(id uint32) RegexHandle {
	rt.regexes.mu.RLock()
	defer rt.regexes.mu.RUnlock()
	return rt.regexes.items[id]
}

// constPool is the per-runtime id<->Value table behind OpLoadNumber and
// OpLoadString (§3 Constant Pool). The builder puts every number literal,
// bigint literal and string literal here, including ones that would fit
// an inline immediate; it does not load number literals through
// OpLoadInt32.
type constPool struct {
	mu    sync.RWMutex
	items []value.Value
}

func (t *constPool) init() { t.items = make([]value.Value, 0, 32) }

// InternConst adds v to the constant pool unconditionally and returns its
// id. Unlike strings, constants are not deduplicated by value — the
// builder is responsible for reusing a ConstID within one function where
// it already knows two literals are identical.
func (rt *Runtime) InternConst(v value.Value) uint32 {
	rt.consts.mu.Lock()
	defer rt.consts.mu.Unlock()
	rt.consts.items = append(rt.consts.items, v)
	return uint32(len(rt.consts.items) - 1)
}

// Const retrieves a constant by id.
func (rt *Runtime) Const(id uint32) value.Value {
	rt.consts.mu.RLock()
	defer rt.consts.mu.RUnlock()
	return rt.consts.items[id]
}
