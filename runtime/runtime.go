// Package runtime is the engine's process-wide shared state: interning
// tables (field names, strings, bigints, regexes, constants), prototype
// roots, and the function/class descriptor registries that the builder
// populates and the interpreter consults (§2, §3, §5).
//
// Runtime is safe for concurrent use: each interning table is guarded by
// its own sync.RWMutex (many concurrent readers; a waiting writer blocks
// new readers, so these locks are not reader-preferring), while the value stack,
// temp stack, capture frame, and registers of any one execution context
// remain exclusively owned by that context (see package interp).
package runtime

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/internal/jslog"
	"github.com/wippyai/jsvm/value"
)

// errNoRegexCompiler is returned by CompileRegex when no regex engine has
// been wired via WithRegexCompiler.
var errNoRegexCompiler = errors.New("runtime: no regex compiler configured")

// RegexHandle is an opaque compiled-regex handle. The regex engine itself
// is an external collaborator (§1); the runtime only stores and retrieves
// whatever the host's compiler returns.
type RegexHandle any

// Option configures a Runtime at construction time, mirroring the
// functional-options constructor used elsewhere in this codebase.
type Option func(*Runtime)

// WithLogger installs a logger for this Runtime's diagnostic output.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// WithStrictMode controls whether a dynamic-scope read of an undeclared
// name throws ReferenceError (true) or yields undefined (false,
// sloppy-mode default). A read creates no binding in either mode;
// assigning to an undeclared name creates a global in both.
func WithStrictMode(strict bool) Option {
	return func(rt *Runtime) { rt.strict = strict }
}

// WithMaxArguments overrides the builder's positional-argument overflow
// threshold (default 65535, §4.1's FunctionCallArgumentsOverflow).
func WithMaxArguments(n uint32) Option {
	return func(rt *Runtime) { rt.maxArgs = n }
}

// WithRegexCompiler installs the host's regex engine. Without one,
// building a regex literal fails with Unimplemented.
func WithRegexCompiler(compile func(pattern, flags string) (RegexHandle, error)) Option {
	return func(rt *Runtime) { rt.regexCompile = compile }
}

// Runtime is the engine's shared, process-wide state.
type Runtime struct {
	mu sync.RWMutex

	logger       *zap.Logger
	strict       bool
	maxArgs      uint32
	regexCompile func(pattern, flags string) (RegexHandle, error)

	fields    *ident.Table
	wellKnown ident.WellKnown

	objects objectTable
	strings stringTable
	bigints bigintTable
	regexes regexTable
	consts  constPool

	functions functionTable
	classes   classTable

	nextSymbolID uint32

	protos prototypeRoots

	invoke Invoker
}

// Invoker calls a value as a function, the hook coerce.go's ToPrimitive and
// ApplyStringOrNumericBinaryOperator use to run user-defined @@toPrimitive/
// valueOf/toString methods. Package runtime cannot execute bytecode itself
// (that would make it depend on package interp, which depends on runtime);
// the interpreter installs this hook on itself via SetInvoker once it has
// wrapped a Runtime, closing the loop without an import cycle.
type Invoker func(callee, this value.Value, args []value.Value) (value.Value, error)

// SetInvoker wires the interpreter's call entry point into this Runtime.
// Coercions that need to run user code (ToPrimitive, valueOf/toString,
// @@hasInstance) fail with Unimplemented until this is called.
func (rt *Runtime) SetInvoker(inv Invoker) { rt.invoke = inv }

// New constructs a Runtime with its interning tables and prototype roots
// initialized, ready to register functions/classes built against it.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		maxArgs: 65535,
		fields:  ident.NewTable(),
	}
	rt.wellKnown = ident.NewWellKnown(rt.fields)
	rt.objects.init()
	rt.strings.init()
	rt.bigints.init()
	rt.regexes.init()
	rt.consts.init()
	rt.functions.init()
	rt.classes.init()
	for _, o := range opts {
		o(rt)
	}
	if rt.logger == nil {
		rt.logger = jslog.Logger()
	}
	rt.initPrototypes()
	return rt
}

// Fields returns the runtime's field-name interning table.
func (rt *Runtime) Fields() *ident.Table { return rt.fields }

// WellKnown returns the interned ids of structurally-significant names.
func (rt *Runtime) WellKnown() ident.WellKnown { return rt.wellKnown }

// Logger returns this runtime's logger (never nil).
func (rt *Runtime) Logger() *zap.Logger { return rt.logger }

// StrictMode reports whether undeclared dynamic reads throw
// ReferenceError.
func (rt *Runtime) StrictMode() bool { return rt.strict }

// MaxArguments returns the positional-argument overflow threshold.
func (rt *Runtime) MaxArguments() uint32 { return rt.maxArgs }

// NextSymbolID allocates a fresh 32-bit symbol id.
func (rt *Runtime) NextSymbolID() uint32 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.nextSymbolID++
	return rt.nextSymbolID
}

// CompileRegex invokes the host-supplied regex compiler, if any.
func (rt *Runtime) CompileRegex(pattern, flags string) (RegexHandle, error) {
	if rt.regexCompile == nil {
		return nil, errNoRegexCompiler
	}
	return rt.regexCompile(pattern, flags)
}
