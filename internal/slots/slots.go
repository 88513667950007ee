// Package slots implements the fixed-length slot array that backs a pool and
// the raw word view aliasing it.
//
// A slot is an atomic.Pointer[T]: one machine word, nil when empty. Words
// returns the same storage reinterpreted as []uintptr so that scan kernels can
// compare many slots against zero at once. This is the only place in the
// module that reinterprets slot memory; everything else goes through the typed
// accessors.
package slots

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// ErrRepresentation is returned when an empty slot is not stored as a single
// all-zero machine word on the running platform.
var ErrRepresentation = errors.New("slots: empty slot is not an all-zero machine word")

// WordSize is the width of one slot in bytes.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// A slot must be exactly one word. Either array length underflows and fails
// to compile if that ever stops being true.
var (
	_ [unsafe.Sizeof(atomic.Pointer[struct{}]{}) - unsafe.Sizeof(uintptr(0))]struct{}
	_ [unsafe.Sizeof(uintptr(0)) - unsafe.Sizeof(atomic.Pointer[struct{}]{})]struct{}
)

var representationErr error

func init() {
	representationErr = probeRepresentation()
}

// probeRepresentation checks through a live array that an empty slot reads as
// zero through the view and that a stored reference reads back as its address.
func probeRepresentation() error {
	type marker struct{ _ int }
	a := New[marker](2)
	w := a.Words()
	if len(w) != a.Len() || w[0] != 0 || w[1] != 0 {
		return ErrRepresentation
	}
	m := &marker{}
	a.Store(1, m)
	if w[0] != 0 || w[1] != uintptr(unsafe.Pointer(m)) {
		return ErrRepresentation
	}
	a.Store(1, nil)
	if w[1] != 0 {
		return ErrRepresentation
	}
	return nil
}

// CheckRepresentation reports whether empty slots are all-zero words.
// Pools call it at construction and refuse to build when it fails.
func CheckRepresentation() error {
	return representationErr
}

// Array is a fixed-length sequence of slots. Its length never changes.
type Array[T any] struct {
	cells []atomic.Pointer[T]
	words []uintptr
}

// New allocates an array of n empty slots. n may be zero.
func New[T any](n int) *Array[T] {
	if n < 0 {
		n = 0
	}
	a := &Array[T]{cells: make([]atomic.Pointer[T], n)}
	if n > 0 {
		a.words = unsafe.Slice((*uintptr)(unsafe.Pointer(&a.cells[0])), n)
	}
	return a
}

// Len returns the number of slots.
func (a *Array[T]) Len() int {
	return len(a.cells)
}

// Words returns the raw view: one uintptr per slot, zero when the slot is
// empty. The view shares storage with the array. It must only be read;
// writing through it would bypass the write barrier for the stored pointers.
func (a *Array[T]) Words() []uintptr {
	return a.words
}

// Load returns the object in slot i, or nil.
func (a *Array[T]) Load(i int) *T {
	return a.cells[i].Load()
}

// IsEmpty reports whether slot i currently holds no object.
func (a *Array[T]) IsEmpty(i int) bool {
	return a.cells[i].Load() == nil
}

// Store unconditionally writes v into slot i.
func (a *Array[T]) Store(i int, v *T) {
	a.cells[i].Store(v)
}

// CompareAndSwap replaces slot i with next if it still holds old.
func (a *Array[T]) CompareAndSwap(i int, old, next *T) bool {
	return a.cells[i].CompareAndSwap(old, next)
}

// Occupied counts the non-empty slots. The result is a snapshot and may be
// stale by the time it returns under concurrent use.
func (a *Array[T]) Occupied() int {
	n := 0
	for i := range a.cells {
		if a.cells[i].Load() != nil {
			n++
		}
	}
	return n
}
