package builder

import (
	"math/big"
	"strings"

	"github.com/wippyai/jsvm/value"
)

// asExactInt32 reports whether f is exactly representable as an int32, the
// condition the specialized immediate-operand opcodes require (§4.1
// Operator lowering).
func asExactInt32(f float64) (int32, bool) {
	if !value.CanNarrowToInt32(f) {
		return 0, false
	}
	return int32(f), true
}

// numberValue narrows f into the tightest Value representation, matching
// the interpreter's own post-arithmetic narrowing so a literal and a
// computed equal result agree under ===.
func numberValue(f float64) value.Value {
	return value.NarrowNumeric(value.Number(f))
}

// parseBigInt parses a BigIntLiteral's raw digits (no trailing 'n',
// possibly 0x/0o/0b prefixed) into a *big.Int.
func parseBigInt(raw string) (*big.Int, bool) {
	base := 10
	digits := raw
	switch {
	case strings.HasPrefix(raw, "0x"), strings.HasPrefix(raw, "0X"):
		base, digits = 16, raw[2:]
	case strings.HasPrefix(raw, "0o"), strings.HasPrefix(raw, "0O"):
		base, digits = 8, raw[2:]
	case strings.HasPrefix(raw, "0b"), strings.HasPrefix(raw, "0B"):
		base, digits = 2, raw[2:]
	}
	n, ok := new(big.Int).SetString(digits, base)
	return n, ok
}
