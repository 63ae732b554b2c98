package value

// Type is the result of the abstract `typeof` operation.
type Type string

const (
	TypeUndefined Type = "undefined"
	TypeObject    Type = "object" // also reported for Null
	TypeBoolean   Type = "boolean"
	TypeNumber    Type = "number"
	TypeBigInt    Type = "bigint"
	TypeSymbol    Type = "symbol"
	TypeString    Type = "string"
	// TypeFunction is reported by the caller (runtime/object package) once
	// it knows an Object value wraps a callable; this package has no
	// notion of callability.
)

// TypeOf implements the ECMAScript `typeof` table, with the well-known
// adjustment that Null reports as "object".
func (v Value) TypeOf() Type {
	switch {
	case v.IsNumber():
		return TypeNumber
	case v.IsUndefined():
		return TypeUndefined
	case v.IsNull(), v.IsObject():
		return TypeObject
	case v.IsBoolean():
		return TypeBoolean
	case v.IsInt32():
		return TypeNumber
	case v.IsBigInt():
		return TypeBigInt
	case v.IsSymbol():
		return TypeSymbol
	case v.IsString():
		return TypeString
	default:
		return TypeUndefined
	}
}

// ToBoolean implements ToBoolean for primitives that do not require a
// runtime/object lookup. Objects are always truthy regardless of any
// wrapped primitive, per ECMAScript; the caller never needs to consult the
// object table to know that.
//
// ToBoolean(x) is false iff x is one of: undefined, null, false, NaN, +0,
// -0, the empty string (strings are opaque table handles here, so the
// caller — runtime, which owns the string table — special-cases the empty
// string; everything reachable from this package alone is decided here).
func (v Value) ToBoolean() bool {
	switch {
	case v.IsUndefined(), v.IsNull():
		return false
	case v.IsBoolean():
		return v.AsBool()
	case v.IsNumber():
		n := v.numberBits()
		return n != 0 && !isNaNFloat(n)
	case v.IsInt32():
		return v.AsInt32() != 0
	default:
		// Object, String, Symbol, BigInt: truthy unless the runtime layer
		// narrows further (empty string, 0n), see runtime.ToBoolean.
		return true
	}
}

func isNaNFloat(f float64) bool { return f != f }
