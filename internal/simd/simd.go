// Package simd finds the first zero word in a slice of machine words.
//
// The words are the raw view of a slot array, so a zero word is an empty
// slot. Other goroutines may store into the slots while a scan runs, so every
// Go-side read is an atomic load. A scan returns the index of the first word
// it observed as zero; the caller still confirms that slot through its typed
// accessor, since the word may have been refilled in between.
package simd

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"
)

const (
	// VectorWidth is the number of words compared by one 256-bit operation.
	VectorWidth = 4
	// VectorBytes is the alignment required by the aligned kernels.
	VectorBytes = VectorWidth * int(unsafe.Sizeof(uintptr(0)))
	// BlockWidth is the number of words consumed per unrolled iteration.
	BlockWidth = 4 * VectorWidth
)

// Strategy selects how a scan walks the words.
type Strategy uint8

const (
	// Scalar tests one word at a time. It is the reference every other
	// strategy must agree with.
	Scalar Strategy = iota
	// Vector loads VectorWidth words at a time from index 0, ignoring alignment.
	Vector
	// Aligned scalar-scans up to the first VectorBytes boundary, then uses
	// aligned vector loads, then scalar-scans the remainder.
	Aligned
	// NonTemporal is Aligned with loads that hint the data should not be
	// kept in cache. Useful for arrays much larger than L2.
	NonTemporal
	// Unrolled is NonTemporal consuming four vectors per iteration with a
	// single branch per block.
	Unrolled
)

var strategyNames = [...]string{
	Scalar:      "scalar",
	Vector:      "vector",
	Aligned:     "aligned",
	NonTemporal: "nontemporal",
	Unrolled:    "unrolled",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return int(s) < len(strategyNames)
}

// Strategies returns every known strategy, Scalar first.
func Strategies() []Strategy {
	return []Strategy{Scalar, Vector, Aligned, NonTemporal, Unrolled}
}

// ParseStrategy maps a case-insensitive name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return Strategy(s), nil
		}
	}
	// Accept the hyphenated spelling used in flags.
	if name == "non-temporal" {
		return NonTemporal, nil
	}
	return Scalar, fmt.Errorf("simd: unknown strategy %q", name)
}

// SkipOccupied returns the index of the first word observed as zero: every
// word in words[:i] was observed non-zero. It returns len(words) when every
// word was observed non-zero. Unknown strategies scan scalar.
func SkipOccupied(words []uintptr, s Strategy) int {
	d := currentDispatch
	var r int
	switch s {
	case Vector:
		r = d.Vector(words)
	case Aligned:
		r = alignedScan(words, d.Aligned)
	case NonTemporal:
		r = alignedScan(words, d.NonTemporal)
	case Unrolled:
		r = alignedScan(words, d.Unrolled)
	default:
		return scalarScan(words)
	}
	// Kernels stop at the chunk holding a hit or at the sub-vector tail.
	return r + scalarScan(words[r:])
}

// FirstZero returns the index of the first zero word, or -1.
func FirstZero(words []uintptr, s Strategy) int {
	for i := SkipOccupied(words, s); i < len(words); i++ {
		if atomic.LoadUintptr(&words[i]) == 0 {
			return i
		}
	}
	return -1
}

func scalarScan(words []uintptr) int {
	for i := range words {
		if atomic.LoadUintptr(&words[i]) == 0 {
			return i
		}
	}
	return len(words)
}

// alignedScan handles the prefix before the first VectorBytes boundary with
// scalar tests and hands the aligned remainder to kernel.
func alignedScan(words []uintptr, kernel scanKernel) int {
	pos, ok := alignPrefix(words)
	if !ok {
		return currentDispatch.Vector(words)
	}
	for i := 0; i < pos; i++ {
		if atomic.LoadUintptr(&words[i]) == 0 {
			return i
		}
	}
	if pos == len(words) {
		return pos
	}
	return pos + kernel(words[pos:])
}

// alignPrefix returns the number of words before the first VectorBytes
// aligned word, capped at len(words). ok is false when the base address is
// not word aligned, in which case no word index is ever vector aligned.
func alignPrefix(words []uintptr) (int, bool) {
	if len(words) == 0 {
		return 0, true
	}
	const wordBytes = uintptr(unsafe.Sizeof(uintptr(0)))
	addr := uintptr(unsafe.Pointer(&words[0]))
	if addr%wordBytes != 0 {
		return 0, false
	}
	pos := int((-addr)&uintptr(VectorBytes-1)) / int(wordBytes)
	if pos > len(words) {
		pos = len(words)
	}
	return pos, true
}
