package simd

import (
	"math/bits"
	"sync/atomic"
)

// laneMask emulates a 256-bit compare-with-zero followed by a move-mask:
// bit k is set when v[k] is zero. Each lane is loaded atomically.
func laneMask(v *[VectorWidth]uintptr) uint32 {
	var m uint32
	if atomic.LoadUintptr(&v[0]) == 0 {
		m |= 1
	}
	if atomic.LoadUintptr(&v[1]) == 0 {
		m |= 2
	}
	if atomic.LoadUintptr(&v[2]) == 0 {
		m |= 4
	}
	if atomic.LoadUintptr(&v[3]) == 0 {
		m |= 8
	}
	return m
}

func vectorGeneric(words []uintptr) int {
	i := 0
	for ; i+VectorWidth <= len(words); i += VectorWidth {
		if laneMask((*[VectorWidth]uintptr)(words[i:i+VectorWidth])) != 0 {
			return i
		}
	}
	return i
}

// unrolledGeneric folds four lane masks into one 16-bit block mask so each
// block costs a single branch. On a hit the lowest set bit names the lane;
// rounding it down to a vector boundary localizes the quarter of the block.
func unrolledGeneric(words []uintptr) int {
	n := len(words)
	i := 0
	for ; i+BlockWidth <= n; i += BlockWidth {
		m := laneMask((*[VectorWidth]uintptr)(words[i : i+VectorWidth])) |
			laneMask((*[VectorWidth]uintptr)(words[i+VectorWidth:i+2*VectorWidth]))<<4 |
			laneMask((*[VectorWidth]uintptr)(words[i+2*VectorWidth:i+3*VectorWidth]))<<8 |
			laneMask((*[VectorWidth]uintptr)(words[i+3*VectorWidth:i+BlockWidth]))<<12
		if m != 0 {
			return i + bits.TrailingZeros32(m)&^(VectorWidth-1)
		}
	}
	return i + vectorGeneric(words[i:])
}
