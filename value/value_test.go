package value

import (
	"math"
	"testing"
)

func TestSingletonPredicates(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want Type
	}{
		{"undefined", Undefined, TypeUndefined},
		{"null", Null, TypeObject},
		{"true", True, TypeBoolean},
		{"false", False, TypeBoolean},
		{"number", Number(3.5), TypeNumber},
		{"int32", Int32(7), TypeNumber},
		{"nan", NaN, TypeNumber},
		{"symbol", Symbol(1), TypeSymbol},
		{"string", String(1), TypeString},
		{"object", Object(1), TypeObject},
		{"bigint", BigInt(1), TypeBigInt},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.TypeOf(); got != c.want {
				t.Fatalf("TypeOf(%v) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestNegativeInfinityIsNumberNotTag0(t *testing.T) {
	negInf := Number(math.Inf(-1))
	if !negInf.IsNumber() {
		t.Fatalf("-Infinity must be a Number, bits=%#x", uint64(negInf))
	}
	if uint64(negInf) != nanBoxBase {
		t.Fatalf("expected -Infinity to sit exactly at nanBoxBase, got %#x want %#x", uint64(negInf), nanBoxBase)
	}
}

func TestNaNCanonicalization(t *testing.T) {
	weird := math.Float64frombits(0xFFF8000000000001) // negative, non-canonical NaN
	v := Number(weird)
	if uint64(v) != canonicalNaNBits {
		t.Fatalf("NaN not canonicalized: got %#x", uint64(v))
	}
	if !v.IsNumber() {
		t.Fatal("canonical NaN must report IsNumber")
	}
	if !v.IsNaN() {
		t.Fatal("canonical NaN must report IsNaN")
	}
}

func TestInt32RoundTrip(t *testing.T) {
	for _, i := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32, -12345} {
		v := Int32(i)
		if !v.IsInt32() || v.IsNumber() {
			t.Fatalf("Int32(%d) tag wrong", i)
		}
		if got := v.AsInt32(); got != i {
			t.Fatalf("AsInt32 round trip: got %d want %d", got, i)
		}
	}
}

func TestStrictEqualsNaNNotReflexive(t *testing.T) {
	if NaN.StrictEquals(NaN) {
		t.Fatal("NaN === NaN must be false")
	}
	if !NaN.SameValue(NaN) {
		t.Fatal("SameValue(NaN, NaN) must be true")
	}
}

func TestStrictEqualsInt32AndNumberAgree(t *testing.T) {
	if !Int32(5).StrictEquals(Number(5)) {
		t.Fatal("Int32(5) === Number(5) must hold — Int32 is a pure optimisation")
	}
}

func TestSignedZeroStrictEqualsVsSameValue(t *testing.T) {
	posZero := Number(0)
	negZero := Number(math.Copysign(0, -1))
	if posZero.StrictEquals(negZero) == false {
		t.Fatal("+0 === -0 must be true under strict equality")
	}
	if posZero.SameValue(negZero) {
		t.Fatal("SameValue(+0,-0) must be false")
	}
}

func TestToBooleanFalsySet(t *testing.T) {
	falsy := []Value{Undefined, Null, False, NaN, Number(0), Number(math.Copysign(0, -1)), Int32(0)}
	for _, v := range falsy {
		if v.ToBoolean() {
			t.Fatalf("%#x expected falsy", uint64(v))
		}
	}
	truthy := []Value{True, Number(1), Int32(-1), Object(1), String(1), Symbol(1), BigInt(1)}
	for _, v := range truthy {
		if !v.ToBoolean() {
			t.Fatalf("%#x expected truthy", uint64(v))
		}
	}
}

func TestToInt32Wrap(t *testing.T) {
	v := Number(4294967296 + 5) // 2^32 + 5
	if got := v.ToInt32(); got != 5 {
		t.Fatalf("ToInt32 wraparound: got %d want 5", got)
	}
}

func TestNarrowNumeric(t *testing.T) {
	v := NarrowNumeric(Number(42))
	if !v.IsInt32() {
		t.Fatal("42.0 should narrow to Int32")
	}
	v2 := NarrowNumeric(Number(42.5))
	if !v2.IsNumber() || v2.IsInt32() {
		t.Fatal("42.5 must not narrow to Int32")
	}
}

func TestHandlePayloadRoundTrip(t *testing.T) {
	h := Handle(0xDEADBEEF)
	v := Object(h)
	if v.AsHandle() != h {
		t.Fatalf("handle round trip failed: got %#x want %#x", v.AsHandle(), h)
	}
}
