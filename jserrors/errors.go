// Package jserrors is the structured error type shared by the builder,
// value-coercion, and interpreter packages, mirroring the Phase/Kind
// structured error this codebase uses for its own SDK-facing errors.
package jserrors

import (
	"fmt"
	"strings"
)

// Phase indicates which subsystem raised the error.
type Phase string

const (
	PhaseBuild   Phase = "build"   // bytecode builder (AST lowering)
	PhaseCoerce  Phase = "coerce"  // ToNumber/ToPrimitive/ToString/etc.
	PhaseCall    Phase = "call"    // function invocation
	PhaseIterate Phase = "iterate" // iterator protocol
	PhaseClass   Phase = "class"   // class construction/member binding
	PhaseProp    Phase = "prop"    // property get/set
	PhaseRun     Phase = "run"     // dispatch loop: dynamic scope, try/catch
)

// Kind categorizes the error, matching §7 of the specification plus the
// builder-specific failure kinds of §4.1.
type Kind string

const (
	KindTypeError         Kind = "type_error"
	KindRangeError        Kind = "range_error"
	KindSyntaxError       Kind = "syntax_error"
	KindReferenceError    Kind = "reference_error"
	KindInternal          Kind = "internal"
	KindLabelUndefined    Kind = "label_undefined"
	KindIllegalBreak      Kind = "illegal_break"
	KindIllegalContinue   Kind = "illegal_continue"
	KindInvalidExpression Kind = "invalid_expression"
	KindArgumentsOverflow Kind = "arguments_overflow"
	KindUnimplemented     Kind = "unimplemented"
)

// Error is the structured error type this engine raises at both build time
// and run time. Build-time errors travel as an ordinary Go error; run-time
// errors are additionally convertible to a thrown value (see ToThrown in
// the runtime package, which knows how to box an Error as a JS Error
// object).
type Error struct {
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string // e.g. declaration/identifier name chain
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// New constructs an Error with an optional detail message.
func New(phase Phase, kind Kind, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// Newf constructs an Error with a formatted detail message.
func Newf(phase Phase, kind Kind, format string, args ...any) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error around a causing error.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail, Cause: cause}
}

// WithPath returns a copy of e with Path set, used to annotate a coercion
// or property-access failure with the identifier/field chain it occurred
// under.
func (e *Error) WithPath(path ...string) *Error {
	c := *e
	c.Path = path
	return &c
}

// Builder-specific convenience constructors (§4.1's Failure model).

func LabelUndefined(label string) *Error {
	return Newf(PhaseBuild, KindLabelUndefined, "label %q is not bound by any enclosing loop or labelled statement", label).WithPath(label)
}

func IllegalBreak() *Error {
	return New(PhaseBuild, KindIllegalBreak, "break outside of a loop or switch")
}

func IllegalContinue() *Error {
	return New(PhaseBuild, KindIllegalContinue, "continue outside of a loop")
}

func ArgumentsOverflow(n int) *Error {
	return Newf(PhaseBuild, KindArgumentsOverflow, "call has %d positional arguments, limit is 65535", n)
}

func Unimplemented(construct string) *Error {
	return Newf(PhaseBuild, KindUnimplemented, "unsupported construct: %s", construct)
}

func TypeErrorf(phase Phase, format string, args ...any) *Error {
	return Newf(phase, KindTypeError, format, args...)
}

func RangeErrorf(phase Phase, format string, args ...any) *Error {
	return Newf(phase, KindRangeError, format, args...)
}

func ReferenceErrorf(phase Phase, format string, args ...any) *Error {
	return Newf(phase, KindReferenceError, format, args...)
}

func SyntaxErrorf(phase Phase, format string, args ...any) *Error {
	return Newf(phase, KindSyntaxError, format, args...)
}

// AwaitOnForeverPendingPromise is the §7 Internal error raised when
// `await` observes a value this core cannot resolve without a promise
// resolution machinery it does not implement (§1, §4.3).
func AwaitOnForeverPendingPromise() *Error {
	return New(PhaseRun, KindInternal, "await on a promise this core has no resolution machinery for")
}
