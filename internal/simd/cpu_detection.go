package simd

import (
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

// CPUFeatures contains detected CPU SIMD capabilities
type CPUFeatures struct {
	Vendor    string
	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool
}

// Global CPU detection state
var (
	features       CPUFeatures
	implementation string
)

// detectCPU detects CPU capabilities and selects the scan implementation
func detectCPU() {
	// cpuid reports what the silicon supports; x/sys/cpu additionally checks
	// that the OS saves the YMM state. Both must agree before AVX2 is used.
	hasAVX2 := cpuid.CPU.Supports(cpuid.AVX2) && cpu.X86.HasAVX2

	features = CPUFeatures{
		Vendor:    cpuid.CPU.VendorString,
		HasAVX2:   hasAVX2,
		HasAVX512: cpuid.CPU.Supports(cpuid.AVX512F) && cpuid.CPU.Supports(cpuid.AVX512VL),
		HasNEON:   cpuid.CPU.Supports(cpuid.ASIMD), // ARM NEON
	}

	// Scan kernels only exist for 256-bit registers; AVX-512 machines run the
	// AVX2 kernels and NEON machines run the portable ones.
	switch {
	case features.HasAVX2:
		implementation = "avx2"
	default:
		implementation = "generic"
	}
}

// GetCPUFeatures returns the detected CPU capabilities
func GetCPUFeatures() CPUFeatures {
	return features
}

// GetImplementation returns the selected scan implementation name
func GetImplementation() string {
	return implementation
}
