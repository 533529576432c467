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

// Map is a fixed-capacity hash map holding at most 234 entries at the
// default fullness (255 at fullness 100%). The zero value is not usable;
// construct with NewMap.
type Map[K comparable, V any] struct {
	t table[K, V]
}

// NewMap constructs a Map with the given raw slot capacity. A non-positive
// capacity selects the default of 4 slots.
func NewMap[K comparable, V any](initialCapacity int, opts ...Option[K, V]) *Map[K, V] {
	return &Map[K, V]{t: *newTable(initialCapacity, opts...)}
}

// Insert adds the entry if key is absent. It reports false if key is
// already present (the stored value is kept) or the map is saturated.
func (m *Map[K, V]) Insert(key K, value V) bool {
	return m.t.insert(key, value)
}

// Put inserts or overwrites the entry for key. It reports false only when
// key is absent and the map is saturated.
func (m *Map[K, V]) Put(key K, value V) bool {
	return m.t.put(key, value)
}

// Get returns the value mapped to key, reporting whether key was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if i, ok := m.t.lookup(key); ok {
		return m.t.slots[i].value, true
	}
	var zero V
	return zero, false
}

// Erase removes the entry for key, reporting whether it was present.
func (m *Map[K, V]) Erase(key K) bool {
	return m.t.erase(key)
}

// Contains reports whether key is in the map.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.t.lookup(key)
	return ok
}

// Find returns a cursor at key's entry, or an invalid cursor if absent.
func (m *Map[K, V]) Find(key K) Cursor[K, V] {
	i, ok := m.t.lookup(key)
	if !ok {
		return m.t.end()
	}
	return Cursor[K, V]{tab: &m.t, index: int(i)}
}

// First returns a cursor at the first entry in slot order, or an invalid
// cursor if the map is empty.
func (m *Map[K, V]) First() Cursor[K, V] {
	return m.t.cursorAt(0)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return int(m.t.used)
}

// Capacity returns the virtual capacity: the number of entries the map
// holds before its next growth.
func (m *Map[K, V]) Capacity() int {
	return int(m.t.virtualCap)
}

// Ability returns the absolute entry ceiling under the current fullness.
func (m *Map[K, V]) Ability() int {
	return int(m.t.ability())
}

// Empty reports whether the map has no entries.
func (m *Map[K, V]) Empty() bool {
	return m.t.used == 0
}

// Clear removes all entries, keeping the allocation.
func (m *Map[K, V]) Clear() {
	m.t.clear()
}

// Fit shrinks the map to the smallest capacity covering its entries and
// returns the bytes released.
func (m *Map[K, V]) Fit() int {
	return m.t.fit()
}

// Resize rebuilds the map at the given virtual capacity. It reports false
// when the implied raw capacity exceeds 255 slots.
func (m *Map[K, V]) Resize(newVirtualCap int) bool {
	return m.t.resize(newVirtualCap)
}

// Reserve prepares the map to hold newVirtualCap entries without further
// rehashing.
func (m *Map[K, V]) Reserve(newVirtualCap int) bool {
	return m.t.resize(newVirtualCap)
}

// Fullness returns the current fullness factor as a fraction.
func (m *Map[K, V]) Fullness() float64 {
	return m.t.getFullness()
}

// SetFullness updates the fullness factor, rejecting changes the current
// entries would overflow. See WithFullness for the accepted forms.
func (m *Map[K, V]) SetFullness(fullness float64) bool {
	return m.t.setFullness(fullness)
}

// MemoryUsage returns the exact resident byte count of the map.
func (m *Map[K, V]) MemoryUsage() int {
	return m.t.memoryUsage()
}

// Equal reports whether both maps hold the same key set. Values do not
// participate, matching set semantics.
func (m *Map[K, V]) Equal(o *Map[K, V]) bool {
	return m.t.equal(&o.t)
}

// Swap exchanges the contents of two maps in O(1).
func (m *Map[K, V]) Swap(o *Map[K, V]) {
	m.t, o.t = o.t, m.t
}

// Clone returns a deep copy of the map.
func (m *Map[K, V]) Clone() *Map[K, V] {
	return &Map[K, V]{t: *m.t.clone()}
}

// All visits every entry in slot order, suitable for use with range.
func (m *Map[K, V]) All(yield func(K, V) bool) {
	m.t.all(yield)
}
