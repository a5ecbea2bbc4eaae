// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-two helpers for FFT and buffer sizing.

gonum's FFT accepts any length, but power-of-two sizes run on the fastest
radix path, so configuration checks use these to suggest a better bin count.

	bins := bitint.NextPowerOfTwo(1000) // 1024
	fast := bitint.IsPowerOfTwo(bins)   // true

NextPowerOfTwo works on size-1 so that exact powers of two map to
themselves: bits.Len64(7) is 3 and 1<<3 is 8, where bits.Len64(8) would
give 16.
*/
package bitint

import "math/bits"

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
// The result overflows to 0 when it does not fit in T.
func NextPowerOfTwo[T Integer](n T) T {
	if n <= 1 {
		return 1
	}
	return T(1) << bits.Len64(uint64(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise.
func Log2[T Integer](n T) int {
	if n <= 0 {
		return -1
	}
	return bits.Len64(uint64(n)) - 1
}
