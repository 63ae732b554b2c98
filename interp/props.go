package interp

import (
	"strconv"

	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// parseArrayIndex reports whether name is a canonical array index string
// (no leading zero unless "0" itself, no sign, fits in an int) — the
// subset of ToPropertyKey's string keys that getProp/setProp route through
// an array object's dense Elements storage instead of its property map.
func parseArrayIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	if name == "0" {
		return 0, true
	}
	if name[0] == '0' {
		return 0, false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// getProp/setProp are the interp-level wrappers around runtime.GetProperty/
// SetProperty, special-casing array "length" and dense-index keys before
// falling through to the generic property path — object.Object.Elements
// is invisible to package runtime's own GetProperty/SetProperty, which only
// ever walk the props map (§3 Object data model: array fast storage is an
// interpreter-level optimization).
func (ip *Interp) getProp(v value.Value, key object.Key, keyName string) (value.Value, error) {
	if v.IsObject() {
		o := ip.rt.Object(v)
		if o.Kind == object.KindArray && !key.IsSymbol {
			name := ip.rt.Fields().Name(key.Field)
			if name == "length" {
				return value.NarrowNumeric(value.Number(float64(len(o.Elements)))), nil
			}
			if idx, ok := parseArrayIndex(name); ok {
				if idx < len(o.Elements) {
					return o.Elements[idx], nil
				}
				return value.Undefined, nil
			}
		}
	}
	return ip.rt.GetProperty(v, key, keyName)
}

func (ip *Interp) setProp(v value.Value, key object.Key, val value.Value) error {
	if v.IsObject() {
		o := ip.rt.Object(v)
		if o.Kind == object.KindArray && !key.IsSymbol {
			name := ip.rt.Fields().Name(key.Field)
			if name == "length" {
				n, err := ip.rt.ToLength(val)
				if err != nil {
					return err
				}
				o.Elements = resizeElements(o.Elements, int(n))
				return nil
			}
			if idx, ok := parseArrayIndex(name); ok {
				if idx >= len(o.Elements) {
					o.Elements = resizeElements(o.Elements, idx+1)
				}
				o.Elements[idx] = val
				return nil
			}
		}
	}
	return ip.rt.SetProperty(v, key, val)
}

func resizeElements(els []value.Value, n int) []value.Value {
	if n <= len(els) {
		return els[:n]
	}
	grown := make([]value.Value, n)
	copy(grown, els)
	for i := len(els); i < n; i++ {
		grown[i] = value.Undefined
	}
	return grown
}

// deleteProp implements OpDeleteOp, including the array dense-index case
// (deleting an array element leaves a hole, represented as Undefined —
// this engine does not model sparse "holes" distinctly from undefined
// elements, an accepted simplification).
func (ip *Interp) deleteProp(v value.Value, key object.Key) (bool, error) {
	if !v.IsObject() {
		return true, nil
	}
	o := ip.rt.Object(v)
	if o.Kind == object.KindArray && !key.IsSymbol {
		name := ip.rt.Fields().Name(key.Field)
		if idx, ok := parseArrayIndex(name); ok {
			if idx < len(o.Elements) {
				o.Elements[idx] = value.Undefined
			}
			return true, nil
		}
	}
	if d, ok := o.GetOwn(key); ok && !d.Configurable {
		return false, jserrors.TypeErrorf(jserrors.PhaseProp, "property is not configurable")
	}
	return o.DeleteOwn(key), nil
}

// resolveKey turns a register-held value or a FieldImm's static ident into
// an object.Key, the shared path for OpReadField/OpWriteField/OpDeleteOp's
// dynamic-key forms and `in`'s right-hand key.
func (ip *Interp) resolveKey(v value.Value) (object.Key, string, error) {
	key, err := ip.rt.ToPropertyKey(v)
	if err != nil {
		return object.Key{}, "", err
	}
	name := ""
	if !key.IsSymbol {
		name = ip.rt.Fields().Name(key.Field)
	}
	return key, name, nil
}
