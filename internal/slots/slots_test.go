package slots

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id int }

func TestCheckRepresentation(t *testing.T) {
	require.NoError(t, CheckRepresentation())
	require.NoError(t, probeRepresentation())
}

func TestArray_NewIsEmpty(t *testing.T) {
	for _, n := range []int{1, 3, 4, 5, 16, 21} {
		a := New[item](n)
		require.Equal(t, n, a.Len())
		require.Len(t, a.Words(), n)
		for i := 0; i < n; i++ {
			assert.True(t, a.IsEmpty(i))
			assert.Nil(t, a.Load(i))
			assert.Zero(t, a.Words()[i])
		}
		assert.Equal(t, 0, a.Occupied())
	}
}

func TestArray_ZeroAndNegativeLength(t *testing.T) {
	assert.Equal(t, 0, New[item](0).Len())
	assert.Nil(t, New[item](0).Words())
	assert.Equal(t, 0, New[item](-3).Len())
}

func TestArray_ViewAliasesSlots(t *testing.T) {
	a := New[item](8)
	w := a.Words()

	// The view starts at the first slot's address.
	assert.Equal(t, unsafe.Pointer(&a.cells[0]), unsafe.Pointer(&w[0]))

	objs := make([]*item, 8)
	for i := range objs {
		objs[i] = &item{id: i}
	}

	a.Store(2, objs[2])
	a.Store(5, objs[5])
	for i := range w {
		if i == 2 || i == 5 {
			assert.Equal(t, uintptr(unsafe.Pointer(objs[i])), w[i], "slot %d", i)
		} else {
			assert.Zero(t, w[i], "slot %d", i)
		}
	}
	assert.Equal(t, 2, a.Occupied())

	require.True(t, a.CompareAndSwap(2, objs[2], nil))
	assert.Zero(t, w[2])
	assert.False(t, a.CompareAndSwap(2, objs[2], nil), "slot already emptied")
	assert.Equal(t, 1, a.Occupied())
}

func TestArray_ConcurrentClaimsAreExclusive(t *testing.T) {
	const n = 64
	a := New[item](n)
	for i := 0; i < n; i++ {
		a.Store(i, &item{id: i})
	}

	var (
		mu      sync.Mutex
		claimed = make(map[int]int)
		wg      sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				if v := a.Load(i); v != nil && a.CompareAndSwap(i, v, nil) {
					mu.Lock()
					claimed[v.id]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, n)
	for id, c := range claimed {
		assert.Equal(t, 1, c, "object %d claimed more than once", id)
	}
	assert.Equal(t, 0, a.Occupied())
}
