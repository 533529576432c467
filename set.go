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

// Set is a fixed-capacity hash set holding at most 234 elements at the
// default fullness (255 at fullness 100%). The zero value is not usable;
// construct with NewSet.
type Set[K comparable] struct {
	t table[K, struct{}]
}

// NewSet constructs a Set with the given raw slot capacity. A
// non-positive capacity selects the default of 4 slots.
func NewSet[K comparable](initialCapacity int, opts ...Option[K, struct{}]) *Set[K] {
	return &Set[K]{t: *newTable(initialCapacity, opts...)}
}

// Insert adds value to the set. It reports false if value is already
// present or the set is saturated.
func (s *Set[K]) Insert(value K) bool {
	return s.t.insert(value, struct{}{})
}

// Erase removes value from the set, reporting whether it was present.
func (s *Set[K]) Erase(value K) bool {
	return s.t.erase(value)
}

// Contains reports whether value is in the set.
func (s *Set[K]) Contains(value K) bool {
	_, ok := s.t.lookup(value)
	return ok
}

// Find returns a cursor at value, or an invalid cursor if absent.
func (s *Set[K]) Find(value K) Cursor[K, struct{}] {
	i, ok := s.t.lookup(value)
	if !ok {
		return s.t.end()
	}
	return Cursor[K, struct{}]{tab: &s.t, index: int(i)}
}

// First returns a cursor at the first element in slot order, or an invalid
// cursor if the set is empty.
func (s *Set[K]) First() Cursor[K, struct{}] {
	return s.t.cursorAt(0)
}

// Len returns the number of elements.
func (s *Set[K]) Len() int {
	return int(s.t.used)
}

// Capacity returns the virtual capacity: the number of elements the set
// holds before its next growth.
func (s *Set[K]) Capacity() int {
	return int(s.t.virtualCap)
}

// Ability returns the absolute element ceiling under the current fullness.
func (s *Set[K]) Ability() int {
	return int(s.t.ability())
}

// Empty reports whether the set has no elements.
func (s *Set[K]) Empty() bool {
	return s.t.used == 0
}

// Clear removes all elements, keeping the allocation.
func (s *Set[K]) Clear() {
	s.t.clear()
}

// Fit shrinks the set to the smallest capacity covering its elements and
// returns the bytes released.
func (s *Set[K]) Fit() int {
	return s.t.fit()
}

// Resize rebuilds the set at the given virtual capacity. It reports false
// when the implied raw capacity exceeds 255 slots.
func (s *Set[K]) Resize(newVirtualCap int) bool {
	return s.t.resize(newVirtualCap)
}

// Reserve is Resize under its conventional name: it prepares the set to
// hold newVirtualCap elements without further rehashing.
func (s *Set[K]) Reserve(newVirtualCap int) bool {
	return s.t.resize(newVirtualCap)
}

// Fullness returns the current fullness factor as a fraction.
func (s *Set[K]) Fullness() float64 {
	return s.t.getFullness()
}

// SetFullness updates the fullness factor, rejecting changes the current
// elements would overflow. See WithFullness for the accepted forms.
func (s *Set[K]) SetFullness(fullness float64) bool {
	return s.t.setFullness(fullness)
}

// MemoryUsage returns the exact resident byte count of the set.
func (s *Set[K]) MemoryUsage() int {
	return s.t.memoryUsage()
}

// Equal reports whether both sets hold the same elements, regardless of
// capacity, fullness or insertion history.
func (s *Set[K]) Equal(o *Set[K]) bool {
	return s.t.equal(&o.t)
}

// Swap exchanges the contents of two sets in O(1).
func (s *Set[K]) Swap(o *Set[K]) {
	s.t, o.t = o.t, s.t
}

// Clone returns a deep copy of the set.
func (s *Set[K]) Clone() *Set[K] {
	return &Set[K]{t: *s.t.clone()}
}

// All visits every element in slot order, suitable for use with range.
func (s *Set[K]) All(yield func(K) bool) {
	s.t.all(func(k K, _ struct{}) bool {
		return yield(k)
	})
}
