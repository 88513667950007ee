package simd

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/slotpool/internal/metrics"
)

// TestInitializeDispatch verifies that kernels are selected from the
// implementation name, falling back to generic for unknown names.
func TestInitializeDispatch(t *testing.T) {
	// Save original state
	originalFeatures := features
	originalImplementation := implementation
	originalDispatch := currentDispatch
	defer func() {
		features = originalFeatures
		implementation = originalImplementation
		currentDispatch = originalDispatch
	}()

	tests := []struct {
		name         string
		impl         string
		expectedImpl string
	}{
		{name: "AVX2 selected", impl: "avx2", expectedImpl: "avx2"},
		{name: "Generic selected", impl: "generic", expectedImpl: "generic"},
		{name: "Unknown falls back", impl: "avx512", expectedImpl: "generic"},
		{name: "NEON falls back", impl: "neon", expectedImpl: "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			implementation = tt.impl
			before := testutil.ToFloat64(metrics.ScanDispatchCount.WithLabelValues(tt.expectedImpl))

			initializeDispatch()

			require.NotNil(t, currentDispatch)
			assert.Equal(t, tt.expectedImpl, implementation)
			assert.NotNil(t, currentDispatch.Vector)
			assert.NotNil(t, currentDispatch.Aligned)
			assert.NotNil(t, currentDispatch.NonTemporal)
			assert.NotNil(t, currentDispatch.Unrolled)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.ScanDispatchCount.WithLabelValues(tt.expectedImpl)))
		})
	}
}

// TestAVX2WrappersFallBack verifies the AVX2 entry points answer correctly
// with AVX2 reported absent, which is how they run on older CPUs.
func TestAVX2WrappersFallBack(t *testing.T) {
	orig := features
	defer func() { features = orig }()
	features.HasAVX2 = false

	words := []uintptr{7, 7, 7, 7, 7, 0, 7, 7, 7}
	assert.Equal(t, 4, vectorAVX2(words))
	assert.Equal(t, 4, unrolledAVX2(words))
	assert.Equal(t, 4, alignedAVX2(words))
	assert.Equal(t, 4, nonTemporalAVX2(words))
}
