// Value bit layout (high bit first):
//
//	63        52 51        48 47                                    0
//	[sign|exp=0x7FF][ tag: 4b ][            payload: 48 bits          ]
//
// Numbers occupy the entire 64 bits as an ordinary IEEE-754 double; the tag
// field only comes into play once the bit pattern falls in the region above
// negative infinity (sign set, exponent all-ones). This package never
// produces tag 0 (reserved: it is bit-identical to -Infinity) or a negative/
// signaling NaN — every NaN-valued double is canonicalized to one fixed
// pattern before it is boxed, so tag extraction on any Value this package
// produced is unambiguous. See value.go for the constructors and
// value_test.go for the round-trip and collision-boundary tests.
package value
