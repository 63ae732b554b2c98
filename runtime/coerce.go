package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// This file implements §4.2's Value and Coercion abstract operations:
// ToPrimitive, ToNumber/ToNumeric/ToString/ToBoolean/ToInt32/ToUint32/
// ToLength/ToIndex/ToPropertyKey/ToObject, ApplyStringOrNumericBinaryOperator,
// loose (==) and strict (===) equality, get_property/set_property, and
// instanceof. Every operation here that may need to run user code
// (valueOf/toString/@@toPrimitive/@@hasInstance) does so through rt.invoke,
// since this package cannot import the interpreter that executes bytecode.

// ToPrimitive implements ToPrimitive(v, hint) for hint in {"default",
// "number", "string"}.
func (rt *Runtime) ToPrimitive(v value.Value, hint string) (value.Value, error) {
	if !v.IsObject() {
		return v, nil
	}
	o := rt.Object(v)

	if d, _, ok := o.Get(object.FieldKey(rt.wellKnown.ToPrimitive)); ok && d.Value.IsObject() {
		res, err := rt.callMethod(d.Value, v, []value.Value{rt.InternString(hint)})
		if err != nil {
			return value.Undefined, err
		}
		if res.IsObject() {
			return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "@@toPrimitive returned an object")
		}
		return res, nil
	}

	order := []string{"valueOf", "toString"}
	if hint == "string" {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		d, _, ok := o.Get(object.FieldKey(rt.fields.Intern(name)))
		if !ok || !d.Value.IsObject() || !rt.Object(d.Value).IsCallable() {
			continue
		}
		res, err := rt.callMethod(d.Value, v, nil)
		if err != nil {
			return value.Undefined, err
		}
		if !res.IsObject() {
			return res, nil
		}
	}
	return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert object to primitive value")
}

// callMethod invokes fn(this, args...) through the interpreter's Invoker, or
// fails with Unimplemented when none has been wired (e.g. a runtime used
// standalone for Value-layer unit tests).
func (rt *Runtime) callMethod(fn, this value.Value, args []value.Value) (value.Value, error) {
	if rt.invoke == nil {
		return value.Undefined, jserrors.Newf(jserrors.PhaseCall, jserrors.KindUnimplemented, "no interpreter wired: cannot invoke user code during coercion")
	}
	return rt.invoke(fn, this, args)
}

// ToNumber implements ToNumber(v), returning a Number/Int32-tagged Value.
func (rt *Runtime) ToNumber(v value.Value) (value.Value, error) {
	switch {
	case v.IsNumber(), v.IsInt32():
		return v, nil
	case v.IsUndefined():
		return value.NaN, nil
	case v.IsNull():
		return value.Zero, nil
	case v.IsBoolean():
		if v.AsBool() {
			return value.Int32(1), nil
		}
		return value.Zero, nil
	case v.IsString():
		return rt.stringToNumber(rt.String(v)), nil
	case v.IsSymbol():
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert a Symbol value to a number")
	case v.IsBigInt():
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert a BigInt value to a number")
	case v.IsObject():
		prim, err := rt.ToPrimitive(v, "number")
		if err != nil {
			return value.Undefined, err
		}
		return rt.ToNumber(prim)
	default:
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert value to a number")
	}
}

// stringToNumber is a fast-float parse of the ECMAScript StringToNumber
// grammar: surrounding whitespace is stripped, the empty string is 0,
// Infinity/-Infinity/+Infinity are recognized, 0x/0o/0b integer literals are
// supported, and anything else falls to strconv.ParseFloat.
func (rt *Runtime) stringToNumber(s string) value.Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return value.Zero
	}
	switch t {
	case "Infinity", "+Infinity":
		return value.Number(math.Inf(1))
	case "-Infinity":
		return value.Number(math.Inf(-1))
	}
	if len(t) > 2 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X' || t[1] == 'o' || t[1] == 'O' || t[1] == 'b' || t[1] == 'B') {
		base := 16
		switch t[1] {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		n, err := strconv.ParseUint(t[2:], base, 64)
		if err != nil {
			return value.NaN
		}
		return value.NarrowNumeric(value.Number(float64(n)))
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return value.NaN
	}
	return value.NarrowNumeric(value.Number(f))
}

// ToNumeric implements ToNumeric(v): ToNumber, except BigInt passes through
// unchanged.
func (rt *Runtime) ToNumeric(v value.Value) (value.Value, error) {
	if v.IsBigInt() {
		return v, nil
	}
	if v.IsObject() {
		prim, err := rt.ToPrimitive(v, "default")
		if err != nil {
			return value.Undefined, err
		}
		if prim.IsBigInt() {
			return prim, nil
		}
		return rt.ToNumber(prim)
	}
	return rt.ToNumber(v)
}

// ToFloat64 is a convenience wrapper around ToNumber for call sites that
// need a float64 rather than a re-boxed Value.
func (rt *Runtime) ToFloat64(v value.Value) (float64, error) {
	n, err := rt.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return n.ToFloat64(), nil
}

// ToString implements ToString(v).
func (rt *Runtime) ToString(v value.Value) (string, error) {
	switch {
	case v.IsString():
		return rt.String(v), nil
	case v.IsUndefined():
		return "undefined", nil
	case v.IsNull():
		return "null", nil
	case v.IsBoolean():
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case v.IsNumber(), v.IsInt32():
		return formatNumber(v.ToFloat64()), nil
	case v.IsBigInt():
		return rt.BigInt(v).String(), nil
	case v.IsSymbol():
		return "", jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert a Symbol value to a string")
	case v.IsObject():
		prim, err := rt.ToPrimitive(v, "string")
		if err != nil {
			return "", err
		}
		return rt.ToString(prim)
	default:
		return "", jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert value to a string")
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// ToBoolean implements ToBoolean(v), extending value.Value.ToBoolean with
// the two cases that require table lookups: the empty string and 0n.
func (rt *Runtime) ToBoolean(v value.Value) bool {
	if v.IsString() {
		return rt.String(v) != ""
	}
	if v.IsBigInt() {
		return rt.BigInt(v).Sign() != 0
	}
	return v.ToBoolean()
}

// ToInt32/ToUint32 delegate to ToNumber then the value package's modulo
// arithmetic.
func (rt *Runtime) ToInt32(v value.Value) (int32, error) {
	n, err := rt.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return n.ToInt32(), nil
}

func (rt *Runtime) ToUint32(v value.Value) (uint32, error) {
	n, err := rt.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return n.ToUint32(), nil
}

// ToLength implements ToLength(v): clamp ToInteger(v) into [0, 2^53-1].
func (rt *Runtime) ToLength(v value.Value) (int64, error) {
	f, err := rt.ToFloat64(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f <= 0 {
		return 0, nil
	}
	const maxLength = 1<<53 - 1
	if f > maxLength {
		return maxLength, nil
	}
	return int64(math.Trunc(f)), nil
}

// ToIndex implements ToIndex(v): like ToLength it truncates toward zero,
// but a negative result, or one above 2^53-1, is a RangeError rather than
// clamped.
func (rt *Runtime) ToIndex(v value.Value) (int64, error) {
	f, err := rt.ToFloat64(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	i := int64(math.Trunc(f))
	if float64(i) != math.Trunc(f) || i < 0 {
		return 0, jserrors.RangeErrorf(jserrors.PhaseCoerce, "invalid index %v", f)
	}
	const maxIndex = 1<<53 - 1
	if i > maxIndex {
		return 0, jserrors.RangeErrorf(jserrors.PhaseCoerce, "index %v out of range", f)
	}
	return i, nil
}

// ToPropertyKey implements ToPropertyKey(v): symbols pass through as symbol
// keys, everything else becomes a string key.
func (rt *Runtime) ToPropertyKey(v value.Value) (object.Key, error) {
	if v.IsSymbol() {
		return object.SymbolKey(v.AsSymbolID()), nil
	}
	s, err := rt.ToString(v)
	if err != nil {
		return object.Key{}, err
	}
	return object.FieldKey(rt.fields.Intern(s)), nil
}

// ToObject implements ToObject(v): null/undefined throw, objects pass
// through, primitives are boxed against the matching built-in prototype.
func (rt *Runtime) ToObject(v value.Value) (value.Value, error) {
	if v.IsObject() {
		return v, nil
	}
	if v.IsUndefined() || v.IsNull() {
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot convert undefined or null to object")
	}
	var kind object.Kind
	switch {
	case v.IsBoolean():
		kind = object.KindBoxedBoolean
	case v.IsNumber(), v.IsInt32():
		kind = object.KindBoxedNumber
	case v.IsString():
		kind = object.KindBoxedString
	case v.IsBigInt():
		kind = object.KindBoxedBigInt
	case v.IsSymbol():
		kind = object.KindBoxedSymbol
	}
	o := object.New(rt.PrototypeFor(kind))
	o.Kind = kind
	o.Primitive = v
	return rt.NewObject(o), nil
}

// ApplyStringOrNumericBinaryOperator implements §4.2's core arithmetic
// routine for op in {Add,Sub,Mul,Div,Mod,Pow,Shl,Shr,UShr,BitAnd,BitOr,
// BitXor}.
func (rt *Runtime) ApplyStringOrNumericBinaryOperator(l, r value.Value, op bytecode.Op) (value.Value, error) {
	lprim, err := rt.ToPrimitive(l, "default")
	if err != nil {
		return value.Undefined, err
	}
	rprim, err := rt.ToPrimitive(r, "default")
	if err != nil {
		return value.Undefined, err
	}

	if op == bytecode.OpAdd && (lprim.IsString() || rprim.IsString()) {
		ls, err := rt.ToString(lprim)
		if err != nil {
			return value.Undefined, err
		}
		rs, err := rt.ToString(rprim)
		if err != nil {
			return value.Undefined, err
		}
		return rt.InternString(ls + rs), nil
	}

	lnum, err := rt.ToNumeric(lprim)
	if err != nil {
		return value.Undefined, err
	}
	rnum, err := rt.ToNumeric(rprim)
	if err != nil {
		return value.Undefined, err
	}

	if lnum.IsBigInt() != rnum.IsBigInt() {
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot mix BigInt and other types, use explicit conversions")
	}
	if lnum.IsBigInt() {
		return rt.applyBigIntOp(lnum, rnum, op)
	}
	return rt.applyNumberOp(lnum, rnum, op)
}

func (rt *Runtime) applyNumberOp(l, r value.Value, op bytecode.Op) (value.Value, error) {
	lf, rf := l.ToFloat64(), r.ToFloat64()
	switch op {
	case bytecode.OpAdd:
		return value.NarrowNumeric(value.Number(lf + rf)), nil
	case bytecode.OpSub:
		return value.NarrowNumeric(value.Number(lf - rf)), nil
	case bytecode.OpMul:
		return value.NarrowNumeric(value.Number(lf * rf)), nil
	case bytecode.OpDiv:
		return value.Number(lf / rf), nil
	case bytecode.OpMod:
		return value.Number(math.Mod(lf, rf)), nil
	case bytecode.OpPow:
		return value.Number(math.Pow(lf, rf)), nil
	case bytecode.OpShl:
		return value.Int32(l.ToInt32() << (r.ToUint32() & 31)), nil
	case bytecode.OpShr:
		return value.Int32(l.ToInt32() >> (r.ToUint32() & 31)), nil
	case bytecode.OpUShr:
		return value.NarrowNumeric(value.Number(float64(l.ToUint32() >> (r.ToUint32() & 31)))), nil
	case bytecode.OpBitAnd:
		return value.Int32(l.ToInt32() & r.ToInt32()), nil
	case bytecode.OpBitOr:
		return value.Int32(l.ToInt32() | r.ToInt32()), nil
	case bytecode.OpBitXor:
		return value.Int32(l.ToInt32() ^ r.ToInt32()), nil
	default:
		return value.Undefined, jserrors.Newf(jserrors.PhaseCoerce, jserrors.KindUnimplemented, "unsupported numeric operator %v", op)
	}
}

func (rt *Runtime) applyBigIntOp(l, r value.Value, op bytecode.Op) (value.Value, error) {
	lb, rb := rt.BigInt(l), rt.BigInt(r)
	result := new(big.Int)
	switch op {
	case bytecode.OpAdd:
		result.Add(lb, rb)
	case bytecode.OpSub:
		result.Sub(lb, rb)
	case bytecode.OpMul:
		result.Mul(lb, rb)
	case bytecode.OpDiv:
		if rb.Sign() == 0 {
			return value.Undefined, jserrors.RangeErrorf(jserrors.PhaseCoerce, "division by zero")
		}
		result.Quo(lb, rb)
	case bytecode.OpMod:
		if rb.Sign() == 0 {
			return value.Undefined, jserrors.RangeErrorf(jserrors.PhaseCoerce, "division by zero")
		}
		result.Rem(lb, rb)
	case bytecode.OpPow:
		if rb.Sign() < 0 {
			return value.Undefined, jserrors.RangeErrorf(jserrors.PhaseCoerce, "exponent must be non-negative")
		}
		result.Exp(lb, rb, nil)
	case bytecode.OpBitAnd:
		result.And(lb, rb)
	case bytecode.OpBitOr:
		result.Or(lb, rb)
	case bytecode.OpBitXor:
		result.Xor(lb, rb)
	case bytecode.OpShl:
		result.Lsh(lb, uint(rb.Int64()))
	case bytecode.OpShr:
		result.Rsh(lb, uint(rb.Int64()))
	default:
		return value.Undefined, jserrors.Newf(jserrors.PhaseCoerce, jserrors.KindUnimplemented, "unsupported bigint operator %v", op)
	}
	return rt.NewBigInt(result), nil
}

// LooseEquals implements ECMAScript Abstract Equality (==).
func (rt *Runtime) LooseEquals(l, r value.Value) (bool, error) {
	if sameEqualityType(l, r) {
		return rt.StrictEquals(l, r)
	}
	switch {
	case (l.IsNull() || l.IsUndefined()) && (r.IsNull() || r.IsUndefined()):
		return true, nil
	case l.IsNull() || l.IsUndefined() || r.IsNull() || r.IsUndefined():
		return false, nil
	case (l.IsNumber() || l.IsInt32()) && r.IsString():
		rn, err := rt.ToNumber(r)
		if err != nil {
			return false, err
		}
		return l.ToFloat64() == rn.ToFloat64(), nil
	case l.IsString() && (r.IsNumber() || r.IsInt32()):
		ln, err := rt.ToNumber(l)
		if err != nil {
			return false, err
		}
		return ln.ToFloat64() == r.ToFloat64(), nil
	case l.IsBigInt() && r.IsString():
		return rt.bigIntEqualsString(l, r)
	case l.IsString() && r.IsBigInt():
		return rt.bigIntEqualsString(r, l)
	case l.IsBoolean():
		ln, _ := rt.ToNumber(l)
		return rt.LooseEquals(ln, r)
	case r.IsBoolean():
		rn, _ := rt.ToNumber(r)
		return rt.LooseEquals(l, rn)
	case l.IsBigInt() && (r.IsNumber() || r.IsInt32()):
		return rt.bigIntEqualsNumber(l, r)
	case (l.IsNumber() || l.IsInt32()) && r.IsBigInt():
		return rt.bigIntEqualsNumber(r, l)
	case (l.IsObject()) && !r.IsObject() && !r.IsNull() && !r.IsUndefined():
		lp, err := rt.ToPrimitive(l, "default")
		if err != nil {
			return false, err
		}
		return rt.LooseEquals(lp, r)
	case r.IsObject() && !l.IsObject() && !l.IsNull() && !l.IsUndefined():
		rp, err := rt.ToPrimitive(r, "default")
		if err != nil {
			return false, err
		}
		return rt.LooseEquals(l, rp)
	default:
		return false, nil
	}
}

// sameEqualityType reports whether l and r share a type for the purposes of
// Abstract Equality's same-type fast path. TypeOf() alone is not enough
// here: it reports Null as "object" (the typeof quirk), which would wrongly
// let a Null/Object pair fall into the strict-equality branch instead of
// the null/undefined-interchangeable branch below.
func sameEqualityType(l, r value.Value) bool {
	if l.IsNull() || r.IsNull() {
		return l.IsNull() && r.IsNull()
	}
	return l.TypeOf() == r.TypeOf()
}

func (rt *Runtime) bigIntEqualsNumber(b, n value.Value) (bool, error) {
	f := n.ToFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false, nil
	}
	bi := rt.BigInt(b)
	return bi.IsInt64() && float64(bi.Int64()) == f, nil
}

func (rt *Runtime) bigIntEqualsString(b, s value.Value) (bool, error) {
	n := rt.stringToNumber(rt.String(s))
	if n.IsNaN() {
		return false, nil
	}
	return rt.bigIntEqualsNumber(b, n)
}

// StrictEquals implements ===; delegates to the bitwise-plus-table-lookup
// rule of value.Value.StrictEquals, extending it for heap-backed string/
// bigint content equality (those are already handled inside value.Value via
// handle identity when interning is in effect — see tables.go's
// deduplicating InternString — but ToNumeric results and dynamically
// constructed bigints are not interned, so content equality still matters).
func (rt *Runtime) StrictEquals(l, r value.Value) bool {
	if l.StrictEquals(r) {
		return true
	}
	if l.IsString() && r.IsString() {
		return rt.String(l) == rt.String(r)
	}
	if l.IsBigInt() && r.IsBigInt() {
		return rt.BigInt(l).Cmp(rt.BigInt(r)) == 0
	}
	return false
}

// GetProperty implements get_property(v, key): objects resolve through the
// prototype chain (invoking accessor getters); non-object primitives box
// then read via the matching built-in prototype; null/undefined throw.
func (rt *Runtime) GetProperty(v value.Value, key object.Key, keyName string) (value.Value, error) {
	if v.IsNull() || v.IsUndefined() {
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseProp, "cannot read properties of %s (reading %q)", v.TypeOf(), keyName)
	}
	var o *object.Object
	if v.IsObject() {
		o = rt.Object(v)
	} else {
		boxed, err := rt.ToObject(v)
		if err != nil {
			return value.Undefined, err
		}
		o = rt.Object(boxed)
	}
	d, holder, ok := o.Get(key)
	if !ok {
		return value.Undefined, nil
	}
	if d.IsAccessor {
		if d.Get == 0 || d.Get.IsUndefined() || d.Get.IsNull() {
			return value.Undefined, nil
		}
		return rt.callMethod(d.Get, v, nil)
	}
	_ = holder
	return d.Value, nil
}

// SetProperty implements set_property(v, key, val): a no-op on primitives
// (the reference sloppy-mode behaviour), TypeError on null/undefined, and
// ordinary own-property definition (or accessor invocation) on objects.
func (rt *Runtime) SetProperty(v value.Value, key object.Key, val value.Value) error {
	if v.IsNull() || v.IsUndefined() {
		return jserrors.TypeErrorf(jserrors.PhaseProp, "cannot set properties of %s", v.TypeOf())
	}
	if !v.IsObject() {
		return nil
	}
	o := rt.Object(v)
	if d, _, ok := o.Get(key); ok && d.IsAccessor {
		if d.Set == 0 || d.Set.IsUndefined() || d.Set.IsNull() {
			return nil
		}
		_, err := rt.callMethod(d.Set, v, []value.Value{val})
		return err
	}
	if existing, ok := o.GetOwn(key); ok {
		if !existing.Writable {
			return nil
		}
		existing.Value = val
		return nil
	}
	o.DefineOwn(key, object.DataProperty(val))
	return nil
}

// CompareLessThan implements the Abstract Relational Comparison x < y. It
// returns (result, true, nil) when the comparison is well-defined, and
// (_, false, nil) when either operand is NaN (the ECMAScript "undefined"
// outcome, which every relational operator treats as false).
func (rt *Runtime) CompareLessThan(l, r value.Value) (bool, bool, error) {
	lprim, err := rt.ToPrimitive(l, "number")
	if err != nil {
		return false, false, err
	}
	rprim, err := rt.ToPrimitive(r, "number")
	if err != nil {
		return false, false, err
	}

	if lprim.IsString() && rprim.IsString() {
		return rt.String(lprim) < rt.String(rprim), true, nil
	}

	lnum, err := rt.ToNumeric(lprim)
	if err != nil {
		return false, false, err
	}
	rnum, err := rt.ToNumeric(rprim)
	if err != nil {
		return false, false, err
	}

	if lnum.IsBigInt() || rnum.IsBigInt() {
		if lnum.IsBigInt() && rnum.IsBigInt() {
			return rt.BigInt(lnum).Cmp(rt.BigInt(rnum)) < 0, true, nil
		}
		bi, n, swap := lnum, rnum, false
		if rnum.IsBigInt() {
			bi, n, swap = rnum, lnum, true
		}
		f := n.ToFloat64()
		if math.IsNaN(f) {
			return false, false, nil
		}
		bf := new(big.Float).SetInt(rt.BigInt(bi))
		cmp := bf.Cmp(big.NewFloat(f))
		if swap {
			return cmp > 0, true, nil
		}
		return cmp < 0, true, nil
	}

	lf, rf := lnum.ToFloat64(), rnum.ToFloat64()
	if math.IsNaN(lf) || math.IsNaN(rf) {
		return false, false, nil
	}
	return lf < rf, true, nil
}

// InstanceOf implements the `instanceof` operator.
func (rt *Runtime) InstanceOf(l, r value.Value) (bool, error) {
	if !r.IsObject() {
		return false, jserrors.TypeErrorf(jserrors.PhaseCoerce, "right-hand side of 'instanceof' is not an object")
	}
	ro := rt.Object(r)
	if d, _, ok := ro.Get(object.FieldKey(rt.wellKnown.HasInstance)); ok && d.Value.IsObject() && rt.Object(d.Value).IsCallable() {
		res, err := rt.callMethod(d.Value, r, []value.Value{l})
		if err != nil {
			return false, err
		}
		return rt.ToBoolean(res), nil
	}
	if !ro.IsCallable() {
		return false, jserrors.TypeErrorf(jserrors.PhaseCoerce, "right-hand side of 'instanceof' is not callable")
	}
	if !l.IsObject() {
		return false, nil
	}
	protoDesc, _, ok := ro.Get(object.FieldKey(rt.wellKnown.Prototype))
	if !ok || !protoDesc.Value.IsObject() {
		return false, jserrors.TypeErrorf(jserrors.PhaseCoerce, "function has non-object prototype in instanceof check")
	}
	target := rt.Object(protoDesc.Value)
	for cur := rt.Object(l).Proto; cur != nil; cur = cur.Proto {
		if cur == target {
			return true, nil
		}
	}
	return false, nil
}
