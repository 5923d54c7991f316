/*
Package bitint provides power-of-two helpers used for FFT frame sizing.

All operations are constant time, allocation free, and safe on both
32-bit and 64-bit platforms.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; zero and negative
// inputs return 1.
//
// The size-1 before bits.Len is what keeps exact powers stable:
// bits.Len64(8-1) = 3 so 1<<3 = 8, while bits.Len64(8) = 4 would
// incorrectly double it.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// 64-bit platforms (where int is 64-bit)
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len64(uint64(size - 1))))
	}

	// 32-bit platforms
	return int(1 << (bits.Len32(uint32(size - 1))))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it
// and leaves zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
