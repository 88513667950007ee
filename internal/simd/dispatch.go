package simd

import (
	"github.com/23skdu/slotpool/internal/metrics"
)

// scanKernel returns the start of the first VectorWidth-word chunk of words
// containing a zero word, or the start of the sub-vector remainder when no
// full chunk does. Kernels never read past len(words).
type scanKernel func(words []uintptr) int

// ImplementationDispatch holds the chunk kernels for one implementation.
// Aligned, NonTemporal and Unrolled require words[0] to sit on a VectorBytes
// boundary; the callers in simd.go guarantee it.
type ImplementationDispatch struct {
	Vector      scanKernel
	Aligned     scanKernel
	NonTemporal scanKernel
	Unrolled    scanKernel
}

// Global dispatch table - one per implementation
var dispatchTable = map[string]ImplementationDispatch{
	"avx2": {
		Vector:      vectorAVX2,
		Aligned:     alignedAVX2,
		NonTemporal: nonTemporalAVX2,
		Unrolled:    unrolledAVX2,
	},
	"generic": {
		Vector:      vectorGeneric,
		Aligned:     vectorGeneric,
		NonTemporal: vectorGeneric,
		Unrolled:    unrolledGeneric,
	},
}

// Current dispatch - single pointer lookup instead of a switch per scan
var currentDispatch *ImplementationDispatch

func init() {
	detectCPU()
	initializeDispatch()
}

// initializeDispatch selects the kernels for the detected implementation.
// This is called once at startup, removing branch overhead from hot paths.
func initializeDispatch() {
	dispatch, exists := dispatchTable[implementation]
	if !exists {
		// Fallback to generic if implementation not found
		dispatch = dispatchTable["generic"]
		implementation = "generic"
	}
	currentDispatch = &dispatch
	metrics.ScanDispatchCount.WithLabelValues(implementation).Inc()
}
