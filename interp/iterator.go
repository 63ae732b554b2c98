package interp

import (
	"strconv"

	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// iterState is the Go-side cursor behind one placeholder iterator object
// (§4.3 Iterator protocol). IterSourceImm.Result must be representable as
// an ordinary value.Value so it can live in a register or on the temp
// stack across nested pattern-element translations (see
// builder/pattern.go's lowerArrayPattern), so the actual cursor state
// lives here, keyed by the placeholder object's handle.
type iterState struct {
	// arr/strRunes/idx back the fast paths for iterating a native array or
	// string without going through the generic @@iterator protocol.
	arr      *object.Object
	strRunes []rune
	idx      int
	isString bool
	isArray  bool

	// generic holds the user-level iterator object (the result of calling
	// source[@@iterator]()) when neither fast path applies; each IterNext
	// calls its "next" method through the ordinary call path.
	generic value.Value

	// generator is the third fast path: a generator object is its own
	// iterator (§9), so IterNext drives it directly through
	// Interp.GeneratorNext rather than round-tripping through a
	// @@iterator/"next" property lookup that was never installed.
	generator *object.Object
}

// newIterator allocates the placeholder object + Go-side cursor pair for
// source, choosing the array/string fast path when possible and falling
// back to the @@iterator protocol otherwise.
func (ip *Interp) newIterator(source value.Value) (value.Value, error) {
	placeholder := ip.rt.NewObject(object.New(ip.rt.Prototypes().Iterator))
	st := &iterState{}

	switch {
	case source.IsString():
		st.isString = true
		st.strRunes = []rune(ip.rt.String(source))
	case source.IsObject() && ip.rt.Object(source).Kind == object.KindArray:
		st.isArray = true
		st.arr = ip.rt.Object(source)
	case source.IsObject() && ip.rt.Object(source).Kind == object.KindGenerator:
		st.generator = ip.rt.Object(source)
	default:
		iterFn, err := ip.getProp(source, object.FieldKey(ip.rt.WellKnown().Iterator), "@@iterator")
		if err != nil {
			return value.Undefined, err
		}
		if !iterFn.IsObject() || !ip.rt.Object(iterFn).IsCallable() {
			return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseIterate, "value is not iterable")
		}
		iterObj, err := ip.callValue(iterFn, source, nil)
		if err != nil {
			return value.Undefined, err
		}
		st.generic = iterObj
	}

	ip.iterMu.Lock()
	ip.iterators[placeholder.AsHandle()] = st
	ip.iterMu.Unlock()
	return placeholder, nil
}

func (ip *Interp) iterState(iter value.Value) *iterState {
	ip.iterMu.Lock()
	defer ip.iterMu.Unlock()
	return ip.iterators[iter.AsHandle()]
}

// iterNext advances iter, returning the next value and a done flag.
func (ip *Interp) iterNext(iter value.Value) (value.Value, bool, error) {
	st := ip.iterState(iter)
	if st == nil {
		return value.Undefined, true, jserrors.Newf(jserrors.PhaseIterate, jserrors.KindInternal, "iterator not found")
	}
	switch {
	case st.generator != nil:
		return ip.GeneratorNext(st.generator, value.Undefined)
	case st.isArray:
		if st.idx >= len(st.arr.Elements) {
			return value.Undefined, true, nil
		}
		v := st.arr.Elements[st.idx]
		st.idx++
		return v, false, nil
	case st.isString:
		if st.idx >= len(st.strRunes) {
			return value.Undefined, true, nil
		}
		v := ip.rt.InternString(string(st.strRunes[st.idx]))
		st.idx++
		return v, false, nil
	default:
		nextFn, err := ip.getProp(st.generic, object.FieldKey(ip.rt.Fields().Intern("next")), "next")
		if err != nil {
			return value.Undefined, true, err
		}
		res, err := ip.callValue(nextFn, st.generic, nil)
		if err != nil {
			return value.Undefined, true, err
		}
		done, err := ip.getProp(res, object.FieldKey(ip.rt.Fields().Intern("done")), "done")
		if err != nil {
			return value.Undefined, true, err
		}
		if ip.rt.ToBoolean(done) {
			return value.Undefined, true, nil
		}
		val, err := ip.getProp(res, object.FieldKey(ip.rt.Fields().Intern("value")), "value")
		if err != nil {
			return value.Undefined, true, err
		}
		return val, false, nil
	}
}

// iterDrop releases the Go-side cursor behind iter (OpIterDrop). For a
// generator source this also closes it (as `return()` would), matching
// ECMAScript's IteratorClose on early for-of exit — otherwise a `break`
// out of `for (const x of gen())` would leave the generator's goroutine
// parked forever waiting on a resume that never comes.
func (ip *Interp) iterDrop(iter value.Value) {
	ip.iterMu.Lock()
	st := ip.iterators[iter.AsHandle()]
	delete(ip.iterators, iter.AsHandle())
	ip.iterMu.Unlock()
	if st != nil && st.generator != nil {
		_, _, _ = ip.GeneratorReturn(st.generator, value.Undefined)
	}
}

// iterCollect drains the remaining items of iter into a fresh array
// (OpIterCollect, a rest element in array destructuring).
func (ip *Interp) iterCollect(iter value.Value) (value.Value, error) {
	arr := ip.newArray()
	o := ip.rt.Object(arr)
	for {
		v, done, err := ip.iterNext(iter)
		if err != nil {
			return value.Undefined, err
		}
		if done {
			break
		}
		o.Elements = append(o.Elements, v)
	}
	return arr, nil
}

// iterateToSlice is a one-shot helper for array-literal/call-argument
// spread: create an iterator over source, drain it fully, and release it.
func (ip *Interp) iterateToSlice(source value.Value) ([]value.Value, error) {
	iter, err := ip.newIterator(source)
	if err != nil {
		return nil, err
	}
	defer ip.iterDrop(iter)
	var out []value.Value
	for {
		v, done, err := ip.iterNext(iter)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// prepareForIn implements OpPrepareForIn: a placeholder iterator yielding
// each of source's own enumerable, non-symbol property keys as an interned
// string value, own-properties-only (no prototype-chain walk) — a
// documented simplification of for-in's full semantics (§9 Design Notes).
func (ip *Interp) prepareForIn(source value.Value) (value.Value, error) {
	var keys []value.Value
	if source.IsObject() {
		o := ip.rt.Object(source)
		if o.Kind == object.KindArray {
			for i := range o.Elements {
				keys = append(keys, ip.rt.InternString(strconv.Itoa(i)))
			}
		}
		for _, k := range o.OwnKeys() {
			if k.IsSymbol {
				continue
			}
			d, ok := o.GetOwn(k)
			if !ok || !d.Enumerable {
				continue
			}
			keys = append(keys, ip.rt.InternString(ip.rt.Fields().Name(k.Field)))
		}
	}
	placeholder := ip.rt.NewObject(object.New(ip.rt.Prototypes().Iterator))
	st := &iterState{isArray: true, arr: &object.Object{Elements: keys}}
	ip.iterMu.Lock()
	ip.iterators[placeholder.AsHandle()] = st
	ip.iterMu.Unlock()
	return placeholder, nil
}
