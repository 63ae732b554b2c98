package interp

import (
	"strconv"

	"github.com/wippyai/jsvm/ident"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// newArray allocates a fresh, empty array-kind object (OpCreateArray).
func (ip *Interp) newArray() value.Value {
	o := object.New(ip.rt.Prototypes().Array)
	o.Kind = object.KindArray
	return ip.rt.NewObject(o)
}

func (ip *Interp) arrayPush(arr, v value.Value) {
	o := ip.rt.Object(arr)
	o.Elements = append(o.Elements, v)
}

// arraySpread implements OpArraySpread: iterate src via the iterator
// protocol and append each yielded value (§4.1 array literal spread).
func (ip *Interp) arraySpread(arr, src value.Value) error {
	items, err := ip.iterateToSlice(src)
	if err != nil {
		return err
	}
	o := ip.rt.Object(arr)
	o.Elements = append(o.Elements, items...)
	return nil
}

func (ip *Interp) newObject() value.Value {
	return ip.rt.NewObject(object.New(ip.rt.Prototypes().Object))
}

func (ip *Interp) objectSetStatic(objV, val value.Value, field ident.ID) {
	ip.rt.Object(objV).DefineOwn(object.FieldKey(field), object.DataProperty(val))
}

func (ip *Interp) objectSetComputed(objV, keyV, val value.Value) error {
	key, _, err := ip.resolveKey(keyV)
	if err != nil {
		return err
	}
	ip.rt.Object(objV).DefineOwn(key, object.DataProperty(val))
	return nil
}

func (ip *Interp) objectDefineGetter(objV, fn value.Value, field ident.ID) {
	ip.defineAccessor(objV, object.FieldKey(field), fn, true)
}

func (ip *Interp) objectDefineSetter(objV, fn value.Value, field ident.ID) {
	ip.defineAccessor(objV, object.FieldKey(field), fn, false)
}

func (ip *Interp) objectDefineGetterComputed(objV, keyV, fn value.Value) error {
	key, _, err := ip.resolveKey(keyV)
	if err != nil {
		return err
	}
	ip.defineAccessor(objV, key, fn, true)
	return nil
}

func (ip *Interp) objectDefineSetterComputed(objV, keyV, fn value.Value) error {
	key, _, err := ip.resolveKey(keyV)
	if err != nil {
		return err
	}
	ip.defineAccessor(objV, key, fn, false)
	return nil
}

// defineAccessor merges a getter/setter into an existing accessor pair on
// the same key, so `{get x(){}, set x(v){}}` ends up as one descriptor
// rather than two accessor properties that shadow each other.
func (ip *Interp) defineAccessor(objV value.Value, key object.Key, fn value.Value, isGetter bool) {
	o := ip.rt.Object(objV)
	d := object.Descriptor{IsAccessor: true, Enumerable: true, Configurable: true}
	if existing, ok := o.GetOwn(key); ok && existing.IsAccessor {
		d = *existing
	}
	if isGetter {
		d.Get = fn
	} else {
		d.Set = fn
	}
	o.DefineOwn(key, d)
}

// objectSpread copies src's own enumerable properties (and, for an array
// source, its dense elements by index) into objV (§4.1 object literal
// spread).
func (ip *Interp) objectSpread(objV, src value.Value) error {
	if !src.IsObject() {
		return nil
	}
	o := ip.rt.Object(objV)
	so := ip.rt.Object(src)
	for _, k := range so.OwnKeys() {
		d, ok := so.GetOwn(k)
		if !ok || !d.Enumerable {
			continue
		}
		name := ""
		if !k.IsSymbol {
			name = ip.rt.Fields().Name(k.Field)
		}
		v, err := ip.getProp(src, k, name)
		if err != nil {
			return err
		}
		o.DefineOwn(k, object.DataProperty(v))
	}
	if so.Kind == object.KindArray {
		for i, el := range so.Elements {
			idxKey := object.FieldKey(ip.rt.Fields().Intern(strconv.Itoa(i)))
			o.DefineOwn(idxKey, object.DataProperty(el))
		}
	}
	return nil
}

// collectRestObject builds the plain object a trailing `...rest` in an
// object pattern binds to: every own enumerable property of src not named
// in excluded (§4.1 Pattern assignment: rest element, object form).
func (ip *Interp) collectRestObject(src value.Value, excluded []ident.ID) (value.Value, error) {
	out := ip.newObject()
	if !src.IsObject() {
		return out, nil
	}
	skip := make(map[ident.ID]bool, len(excluded))
	for _, f := range excluded {
		skip[f] = true
	}
	so := ip.rt.Object(src)
	oo := ip.rt.Object(out)
	for _, k := range so.OwnKeys() {
		if !k.IsSymbol && skip[k.Field] {
			continue
		}
		d, ok := so.GetOwn(k)
		if !ok || !d.Enumerable {
			continue
		}
		v, err := ip.getProp(src, k, "")
		if err != nil {
			return value.Undefined, err
		}
		oo.DefineOwn(k, object.DataProperty(v))
	}
	return out, nil
}
