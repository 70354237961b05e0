package types

import "math/bits"

// Checked u64 arithmetic. Balance and size fields are fixed-width unsigned
// integers; every mutation goes through these so an overflow or underflow
// surfaces as an error instead of wrapping.

// CheckedMul returns a*b, reporting false on overflow.
func CheckedMul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// CheckedAdd returns a+b, reporting false on overflow.
func CheckedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// CheckedSub returns a-b, reporting false when b exceeds a.
func CheckedSub(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}
