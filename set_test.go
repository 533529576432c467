// Copyright 2025 The MCU-sub012 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcutable

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// toBuiltinSet returns the elements as a map[K]struct{}. Useful for testing.
func (s *Set[K]) toBuiltinSet() map[K]struct{} {
	r := make(map[K]struct{})
	s.All(func(k K) bool {
		r[k] = struct{}{}
		return true
	})
	return r
}

func (s *Set[K]) randElement() (key K, ok bool) {
	s.All(func(k K) bool {
		key, ok = k, true
		return false
	})
	return
}

func TestSetBasic(t *testing.T) {
	s := NewSet[int](0)
	e := make(map[int]struct{})
	const count = 100

	for i := 0; i < count; i++ {
		require.False(t, s.Contains(i))
	}
	for i := 0; i < count; i++ {
		require.True(t, s.Insert(i))
		e[i] = struct{}{}
		require.True(t, s.Contains(i))
		require.Equal(t, i+1, s.Len())
		require.Equal(t, e, s.toBuiltinSet())
	}
	for i := 0; i < count; i++ {
		require.True(t, s.Erase(i))
		delete(e, i)
		require.False(t, s.Contains(i))
		require.Equal(t, count-i-1, s.Len())
		require.Equal(t, e, s.toBuiltinSet())
	}
	require.True(t, s.Empty())
}

func TestSetDuplicateInsert(t *testing.T) {
	s := NewSet[string](0)
	require.True(t, s.Insert("a"))
	require.False(t, s.Insert("a"))
	require.Equal(t, 1, s.Len())
}

func TestSetGrowth(t *testing.T) {
	// 4 raw slots at 92% fullness hold 3 elements; the 4th insert doubles
	// the raw capacity to 8 which holds 7.
	s := NewSet[int](4)
	require.Equal(t, 3, s.Capacity())
	for i := 0; i < 3; i++ {
		require.True(t, s.Insert(i))
	}
	require.Equal(t, 3, s.Capacity())
	require.True(t, s.Insert(3))
	require.Equal(t, 7, s.Capacity())
	require.Equal(t, 4, s.Len())
}

func TestSetTombstoneTriggersGrowth(t *testing.T) {
	// An erase leaves the slot dead, so insert-after-erase at the virtual
	// capacity rebuilds even though the live count has room.
	s := NewSet[int](4)
	for i := 0; i < 3; i++ {
		require.True(t, s.Insert(i))
	}
	require.True(t, s.Erase(1))
	require.Equal(t, 2, s.Len())
	require.Equal(t, 3, s.Capacity())

	require.True(t, s.Insert(7))
	require.Equal(t, 7, s.Capacity())
	require.Equal(t, 3, s.Len())
	for _, v := range []int{0, 2, 7} {
		require.True(t, s.Contains(v))
	}
	require.False(t, s.Contains(1))
}

func TestSetTombstoneRevival(t *testing.T) {
	// Reinserting an erased key revives its tombstone in place, so
	// erase/insert cycles of one key never accumulate dead slots.
	s := NewSet[int](8)
	require.Equal(t, 7, s.Capacity())
	for i := 0; i < 5; i++ {
		require.True(t, s.Insert(42))
		require.Equal(t, 1, s.Len())
		require.True(t, s.Erase(42))
	}
	require.True(t, s.Insert(42))
	require.Equal(t, 7, s.Capacity())
	require.EqualValues(t, 1, s.t.dead)
}

func TestSetEqual(t *testing.T) {
	// Equality is membership only: capacity, fullness and operation
	// history do not participate.
	a := NewSet[int](4)
	b := NewSet[int](64, WithFullness[int, struct{}](0.5))
	for i := 0; i < 20; i++ {
		a.Insert(i)
	}
	for i := 19; i >= 0; i-- {
		b.Insert(i)
	}
	b.Insert(99)
	b.Erase(99)
	require.True(t, a.Equal(b))
	require.True(t, b.Equal(a))

	b.Erase(10)
	require.False(t, a.Equal(b))
	b.Insert(11_000)
	require.False(t, a.Equal(b))
}

func TestSetFit(t *testing.T) {
	s := NewSet[int](64)
	for i := 0; i < 3; i++ {
		s.Insert(i)
	}
	freed := s.Fit()
	require.Positive(t, freed)
	// ceil(3*100/92) = 4 raw slots, virtual capacity 3.
	require.EqualValues(t, 4, s.t.capacity)
	require.Equal(t, 3, s.Capacity())
	for i := 0; i < 3; i++ {
		require.True(t, s.Contains(i))
	}
	require.Zero(t, s.Fit())
}

func TestSetResize(t *testing.T) {
	s := NewSet[int](4)
	require.True(t, s.Resize(200))
	// 200 virtual converts to 217 raw slots, whose virtual capacity
	// truncates back to 199.
	require.EqualValues(t, 217, s.t.capacity)
	require.Equal(t, 199, s.Capacity())

	// 240 virtual would need 260 raw slots.
	require.False(t, s.Resize(240))
	require.EqualValues(t, 217, s.t.capacity)

	for i := 0; i < 50; i++ {
		s.Insert(i)
	}
	require.True(t, s.Reserve(60))
	require.Equal(t, 50, s.Len())
	for i := 0; i < 50; i++ {
		require.True(t, s.Contains(i))
	}
}

func TestSetFullness(t *testing.T) {
	s := NewSet[int](20, WithFullness[int, struct{}](1.0))
	require.Equal(t, 1.0, s.Fullness())
	require.Equal(t, 20, s.Capacity())
	require.Equal(t, 255, s.Ability())

	for i := 0; i < 15; i++ {
		require.True(t, s.Insert(i))
	}
	// 50% of 20 slots cannot hold 15 elements.
	require.False(t, s.SetFullness(0.5))
	require.Equal(t, 1.0, s.Fullness())

	for i := 5; i < 15; i++ {
		s.Erase(i)
	}
	require.True(t, s.SetFullness(0.5))
	require.Equal(t, 0.5, s.Fullness())
	require.Equal(t, 10, s.Capacity())
	require.Equal(t, 127, s.Ability())
}

func TestSetFullnessNormalization(t *testing.T) {
	testCases := []struct {
		input    float64
		expected float64
	}{
		{0.92, 0.92},
		{92, 0.92},
		{0.05, 0.1},  // below the floor
		{5, 1.0},     // dead zone between 1 and 10 means 100%
		{150, 1.0},   // above the ceiling
		{0.465, 0.47}, // fraction rounds to nearest percent
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			s := NewSet[int](4)
			require.True(t, s.SetFullness(c.input))
			require.InDelta(t, c.expected, s.Fullness(), 0.001)
		})
	}
}

func TestSetSaturation(t *testing.T) {
	s := NewSet[int](255, WithFullness[int, struct{}](1.0))
	for i := 0; i < 255; i++ {
		require.True(t, s.Insert(i), "insert %d", i)
	}
	require.Equal(t, 255, s.Len())
	require.False(t, s.Insert(255))
	require.Equal(t, 255, s.Len())

	// Erasing makes room again via tombstone reclamation.
	require.True(t, s.Erase(0))
	require.True(t, s.Insert(255))
	require.False(t, s.Contains(0))
}

func TestSetClearSwapClone(t *testing.T) {
	a := NewSet[int](16)
	b := NewSet[int](4)
	for i := 0; i < 10; i++ {
		a.Insert(i)
	}
	b.Insert(100)

	c := a.Clone()
	require.True(t, c.Equal(a))
	c.Erase(5)
	require.True(t, a.Contains(5))
	require.Equal(t, 9, c.Len())

	a.Swap(b)
	require.Equal(t, 1, a.Len())
	require.True(t, a.Contains(100))
	require.Equal(t, 10, b.Len())
	require.True(t, b.Contains(5))

	b.Clear()
	require.True(t, b.Empty())
	require.Equal(t, 0, b.Len())
	// Clearing keeps the allocation.
	require.EqualValues(t, 16, b.t.capacity)
}

func TestSetMemoryUsage(t *testing.T) {
	s := NewSet[uint16](10)
	var sl slot[uint16, struct{}]
	expected := int(unsafe.Sizeof(s.t)) + 10*int(unsafe.Sizeof(sl)) + ledgerBytes(10)
	require.Equal(t, expected, s.MemoryUsage())

	before := s.MemoryUsage()
	for i := uint16(0); i < 100; i++ {
		s.Insert(i)
	}
	require.Greater(t, s.MemoryUsage(), before)
}

func TestSetCursor(t *testing.T) {
	s := NewSet[int](16)
	require.False(t, s.First().Valid())

	for i := 0; i < 10; i++ {
		s.Insert(i)
	}

	seen := make(map[int]struct{})
	for c := s.First(); c.Valid(); c = c.Next() {
		seen[c.Key()] = struct{}{}
	}
	require.Len(t, seen, 10)

	c := s.Find(7)
	require.True(t, c.Valid())
	require.Equal(t, 7, c.Key())
	require.False(t, s.Find(70).Valid())

	// Prev is the inverse of Next away from the first element.
	first := s.First()
	second := first.Next()
	require.Equal(t, first, second.Prev())
	require.Equal(t, first, first.Prev())
}

func TestSetRandom(t *testing.T) {
	s := NewSet[int](0)
	e := make(map[int]struct{})
	for i := 0; i < 10000; i++ {
		switch r := rand.Float64(); {
		case r < 0.5 && len(e) < 200: // inserts, bounded below saturation
			k := rand.Intn(1000)
			_, exists := e[k]
			require.Equal(t, !exists, s.Insert(k))
			e[k] = struct{}{}
		case r < 0.75: // erases
			if k, ok := s.randElement(); !ok {
				require.Equal(t, 0, s.Len())
			} else {
				require.True(t, s.Erase(k))
				delete(e, k)
			}
		case r < 0.95: // lookups
			k := rand.Intn(1000)
			_, exists := e[k]
			require.Equal(t, exists, s.Contains(k))
		default: // occasional shrink
			s.Fit()
			require.Equal(t, e, s.toBuiltinSet())
		}
		require.Equal(t, len(e), s.Len())
	}
}
