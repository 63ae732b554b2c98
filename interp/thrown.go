package interp

import "github.com/wippyai/jsvm/value"

// thrown wraps a JS value already known to be a valid thrown exception
// (the argument of a `throw` statement, or a value a catch clause
// re-threw) so it can travel as an ordinary Go error through nested
// runFrame/invoke calls without re-boxing. A plain error reaching the
// dispatch loop from elsewhere (a *jserrors.Error from a coercion/property
// call, or any other Go error a host callback returned) is boxed via
// rt.ToThrown only once, at the point it is first raised — see raise in
// dispatch.go.
type thrown struct {
	V value.Value
}

func (t *thrown) Error() string { return "uncaught JavaScript exception" }
