//go:build !amd64

package simd

// Stubs for non-AMD64 architectures to satisfy the dispatch table

func vectorAVX2(words []uintptr) int      { return vectorGeneric(words) }
func alignedAVX2(words []uintptr) int     { return vectorGeneric(words) }
func nonTemporalAVX2(words []uintptr) int { return vectorGeneric(words) }
func unrolledAVX2(words []uintptr) int    { return unrolledGeneric(words) }
