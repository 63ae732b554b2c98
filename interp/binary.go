package interp

import (
	"math/big"

	"github.com/wippyai/jsvm/bytecode"
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// binaryOp dispatches the generic two-register binary operators (§4.1
// Operator lowering) onto the matching runtime coercion routine. Every
// relational operator is NaN-aware per CompareLessThan's contract: an
// undefined comparison result means the operator itself is false, not its
// complement.
func (ip *Interp) binaryOp(op bytecode.Op, l, r value.Value) (value.Value, error) {
	rt := ip.rt
	switch op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr, bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor:
		return rt.ApplyStringOrNumericBinaryOperator(l, r, op)
	case bytecode.OpLt:
		res, ok, err := rt.CompareLessThan(l, r)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(ok && res), nil
	case bytecode.OpGt:
		res, ok, err := rt.CompareLessThan(r, l)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(ok && res), nil
	case bytecode.OpLtEq:
		res, ok, err := rt.CompareLessThan(r, l)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(ok && !res), nil
	case bytecode.OpGtEq:
		res, ok, err := rt.CompareLessThan(l, r)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(ok && !res), nil
	case bytecode.OpEqEq:
		res, err := rt.LooseEquals(l, r)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(res), nil
	case bytecode.OpNotEq:
		res, err := rt.LooseEquals(l, r)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(!res), nil
	case bytecode.OpEqEqEq:
		return value.Bool(rt.StrictEquals(l, r)), nil
	case bytecode.OpNotEqEq:
		return value.Bool(!rt.StrictEquals(l, r)), nil
	case bytecode.OpIn:
		return ip.opIn(l, r)
	case bytecode.OpInstanceOf:
		res, err := rt.InstanceOf(l, r)
		if err != nil {
			return value.Undefined, err
		}
		return value.Bool(res), nil
	default:
		return value.Undefined, jserrors.Newf(jserrors.PhaseRun, jserrors.KindInternal, "unhandled binary opcode %v", op)
	}
}

// opIn implements the `in` operator, including an array object's dense
// index range and "length" in addition to its ordinary property map (§4.2).
func (ip *Interp) opIn(l, r value.Value) (value.Value, error) {
	if !r.IsObject() {
		return value.Undefined, jserrors.TypeErrorf(jserrors.PhaseCoerce, "cannot use 'in' operator on a non-object")
	}
	key, err := ip.rt.ToPropertyKey(l)
	if err != nil {
		return value.Undefined, err
	}
	o := ip.rt.Object(r)
	if o.Kind == object.KindArray && !key.IsSymbol {
		name := ip.rt.Fields().Name(key.Field)
		if name == "length" {
			return value.Bool(true), nil
		}
		if idx, ok := parseArrayIndex(name); ok {
			return value.Bool(idx < len(o.Elements)), nil
		}
	}
	return value.Bool(o.HasProperty(key)), nil
}

// unaryOp implements the single-operand opcodes that are not already
// expressed as a RegImm transform in the dispatch loop (neg/pos/not/typeof/
// void all reduce to a runtime coercion call).
func (ip *Interp) unaryOp(op bytecode.Op, v value.Value) (value.Value, error) {
	rt := ip.rt
	switch op {
	case bytecode.OpNeg:
		n, err := rt.ToNumeric(v)
		if err != nil {
			return value.Undefined, err
		}
		if n.IsBigInt() {
			return rt.NewBigInt(new(big.Int).Neg(rt.BigInt(n))), nil
		}
		return value.NarrowNumeric(value.Number(-n.ToFloat64())), nil
	case bytecode.OpPos:
		return rt.ToNumber(v)
	case bytecode.OpLogicalNot:
		return value.Bool(!rt.ToBoolean(v)), nil
	case bytecode.OpBitNotOp:
		i, err := rt.ToInt32(v)
		if err != nil {
			return value.Undefined, err
		}
		return value.Int32(^i), nil
	case bytecode.OpTypeOf:
		if v.IsObject() && rt.Object(v).IsCallable() {
			return rt.InternString("function"), nil
		}
		return rt.InternString(string(v.TypeOf())), nil
	case bytecode.OpVoidOp:
		return value.Undefined, nil
	default:
		return value.Undefined, jserrors.Newf(jserrors.PhaseRun, jserrors.KindInternal, "unhandled unary opcode %v", op)
	}
}
