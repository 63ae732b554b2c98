package runtime

import (
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// ToThrown boxes a *jserrors.Error as an ordinary JS Error object value, per
// §7: "All are represented as ordinary object values with a kind tag; they
// travel through the same channel as user throws." A plain Go error that is
// not a *jserrors.Error is wrapped as an Internal kind with that error as
// its Cause, so any unexpected error from a host callback still surfaces as a
// catchable thrown value rather than aborting the interpreter loop.
func (rt *Runtime) ToThrown(err error) value.Value {
	je, ok := err.(*jserrors.Error)
	if !ok {
		je = jserrors.Wrap(jserrors.PhaseCall, jserrors.KindInternal, err, "unexpected host error")
	}

	o := object.New(rt.protos.Error)
	o.Kind = object.KindError
	o.DefineOwn(object.FieldKey(rt.fields.Intern("name")), object.DataProperty(rt.InternString(string(je.Kind))))
	o.DefineOwn(object.FieldKey(rt.fields.Intern("message")), object.DataProperty(rt.InternString(je.Error())))
	o.DefineOwn(object.FieldKey(rt.fields.Intern("stack")), object.DataProperty(rt.InternString(je.Error())))
	return rt.NewObject(o)
}

// ErrorFromThrown recovers the jserrors.Kind of a previously thrown value,
// if it is an Error object this runtime produced, for host code that wants
// to branch on error kind (e.g. a REPL reporting ReferenceError specially).
func (rt *Runtime) ErrorFromThrown(v value.Value) (kind jserrors.Kind, message string, ok bool) {
	if !v.IsObject() {
		return "", "", false
	}
	o := rt.Object(v)
	if o.Kind != object.KindError {
		return "", "", false
	}
	nameDesc, _, hasName := o.Get(object.FieldKey(rt.fields.Intern("name")))
	msgDesc, _, hasMsg := o.Get(object.FieldKey(rt.fields.Intern("message")))
	if !hasName || !hasMsg {
		return "", "", false
	}
	return jserrors.Kind(rt.String(nameDesc.Value)), rt.String(msgDesc.Value), true
}
