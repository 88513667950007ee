//go:build amd64

package simd

import "unsafe"

// AVX2 kernels. Each wrapper falls back to the portable kernel when the CPU
// lacks AVX2, so tests can flip features without re-running detection.

func vectorAVX2(words []uintptr) int {
	if !features.HasAVX2 {
		return vectorGeneric(words)
	}
	if len(words) < VectorWidth {
		return 0
	}
	return scanZeroAVX2(unsafe.Pointer(&words[0]), len(words))
}

func alignedAVX2(words []uintptr) int {
	if !features.HasAVX2 {
		return vectorGeneric(words)
	}
	if len(words) < VectorWidth {
		return 0
	}
	return scanZeroAlignedAVX2(unsafe.Pointer(&words[0]), len(words))
}

func nonTemporalAVX2(words []uintptr) int {
	if !features.HasAVX2 {
		return vectorGeneric(words)
	}
	if len(words) < VectorWidth {
		return 0
	}
	return scanZeroNTAVX2(unsafe.Pointer(&words[0]), len(words))
}

func unrolledAVX2(words []uintptr) int {
	if !features.HasAVX2 {
		return unrolledGeneric(words)
	}
	if len(words) < VectorWidth {
		return 0
	}
	return scanZeroUnrolledAVX2(unsafe.Pointer(&words[0]), len(words))
}

// Kernel Declarations
//
// All kernels return the word index of the first 4-word chunk containing a
// zero, or the start of the sub-vector tail when none does. p must point at n
// readable words. The aligned, non-temporal and unrolled kernels require p to
// be 32-byte aligned.

//go:noescape
func scanZeroAVX2(p unsafe.Pointer, n int) int

//go:noescape
func scanZeroAlignedAVX2(p unsafe.Pointer, n int) int

//go:noescape
func scanZeroNTAVX2(p unsafe.Pointer, n int) int

//go:noescape
func scanZeroUnrolledAVX2(p unsafe.Pointer, n int) int
