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

// Package mcutable provides fixed-capacity open-addressing hash containers
// sized for memory-constrained targets. A table holds at most 255 slots,
// tracks slot occupancy in a packed 2-bit ledger, and probes with a stride
// coprime to the capacity so every probe cycle visits every slot. Capacity
// is split in two views: the raw slot count used internally and the virtual
// capacity reported to callers, which is the raw count scaled by a
// configurable fullness percentage. Keeping a margin of always-empty slots
// bounds probe lengths without the memory cost of a lower raw load factor.
//
// Set and Map are the single-table containers. ShardedSet and ShardedMap
// chain many tables behind a range-routing directory for element counts
// beyond a single table's ceiling.
//
// The layout in memory for a capacity-13 table:
//
//	slots:  |--------------------------------------------------| 13 entries
//	ledger: |0b10|0b00|0b01|...                                | 2 bits/slot
//	        |------ used ------|----- virtualCap -----|- cap_ -|
//
// None of the containers are safe for concurrent use.
package mcutable

import "unsafe"

const (
	// maxCapacity is the hard slot ceiling of a single table. Capacities,
	// counts and probe indices all fit in a uint8 because of it.
	maxCapacity = 255
	// initCapacity is the capacity a zero-capacity table grows to on its
	// first insert.
	initCapacity = 10
	// defaultCapacity matches the default-constructed table size.
	defaultCapacity = 4
	// defaultFullness is the percentage of slots allowed to be non-empty.
	defaultFullness = 92
)

type slot[K comparable, V any] struct {
	key   K
	value V
}

// table is the core fixed-capacity open-addressing hash table. Set and Map
// are thin exported wrappers around it, as are the shards of the chained
// containers.
//
// used counts live elements. dead counts non-empty slots, i.e. live
// elements plus tombstones left by erase. Growth triggers on dead rather
// than used so that a table churned by erase/insert cycles rebuilds before
// tombstones destroy probe performance.
type table[K comparable, V any] struct {
	slots      []slot[K, V]
	ledger     slotLedger
	hash       hashFn[K]
	capacity   uint8
	used       uint8
	dead       uint8
	fullness   uint8
	virtualCap uint8
	step       uint8
}

func newTable[K comparable, V any](initialCapacity int, opts ...Option[K, V]) *table[K, V] {
	t := &table[K, V]{
		hash:     makeHashFn[K](),
		fullness: defaultFullness,
	}
	for _, o := range opts {
		o.apply(t)
	}
	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	if initialCapacity > maxCapacity {
		initialCapacity = maxCapacity
	}
	t.rehash(uint8(initialCapacity))
	return t
}

func (t *table[K, V]) capToVirtual() uint8 {
	return uint8(uint16(t.capacity) * uint16(t.fullness) / 100)
}

// ability is the absolute element ceiling under the current fullness: the
// virtual capacity of a maximally grown table.
func (t *table[K, V]) ability() uint16 {
	return maxCapacity * uint16(t.fullness) / 100
}

// rehash rebuilds the table at newCap slots, clamped to hold the current
// elements, and reinserts every live element. Tombstones do not survive a
// rehash, so this is also the tombstone reclamation path.
func (t *table[K, V]) rehash(newCap uint8) {
	if newCap < t.used {
		newCap = t.used
	}
	oldSlots := t.slots
	oldLedger := t.ledger
	oldCap := t.capacity

	t.slots = make([]slot[K, V], newCap)
	t.ledger.init(newCap)
	t.capacity = newCap
	t.used = 0
	t.dead = 0
	t.virtualCap = t.capToVirtual()
	t.step = probeStep(newCap)

	for i := uint8(0); i < oldCap; i++ {
		if oldLedger.state(i) == slotUsed {
			t.insert(oldSlots[i].key, oldSlots[i].value)
		}
	}
}

// insert adds key if absent. It reports false when the key is already
// present or the table is saturated at the current fullness.
func (t *table[K, V]) insert(key K, value V) bool {
	if t.dead >= t.virtualCap {
		if uint16(t.used) >= t.ability() {
			return false
		}
		doubled := uint16(t.capacity) * 2
		if t.capacity == 0 {
			doubled = initCapacity
		}
		if doubled > maxCapacity {
			doubled = maxCapacity
		}
		// At the capacity ceiling this rebuilds in place, which still
		// reclaims the tombstones that tripped the trigger.
		t.rehash(uint8(doubled))
	}

	seq := makeProbeSeq(t.hash(key), t.capacity, t.step)
	for attempts := uint16(0); attempts <= uint16(t.capacity); attempts++ {
		switch st := t.ledger.state(seq.offset); {
		case st == slotEmpty:
			t.slots[seq.offset] = slot[K, V]{key: key, value: value}
			t.ledger.setState(seq.offset, slotUsed)
			t.used++
			t.dead++
			return true
		case t.slots[seq.offset].key == key:
			if st == slotUsed {
				return false
			}
			// The key's own tombstone: revive it in place. dead already
			// counts this slot.
			t.slots[seq.offset].value = value
			t.ledger.setState(seq.offset, slotUsed)
			t.used++
			return true
		}
		seq = seq.next()
	}
	return false
}

// lookup returns the slot index holding key. The probe stops at the first
// empty slot or at the key's own tombstone; either means absent.
func (t *table[K, V]) lookup(key K) (uint8, bool) {
	if t.used == 0 {
		return t.capacity, false
	}
	seq := makeProbeSeq(t.hash(key), t.capacity, t.step)
	for attempts := uint16(0); attempts <= uint16(t.capacity); attempts++ {
		st := t.ledger.state(seq.offset)
		if st == slotEmpty {
			break
		}
		if t.slots[seq.offset].key == key {
			if st == slotUsed {
				return seq.offset, true
			}
			break
		}
		seq = seq.next()
	}
	return t.capacity, false
}

// erase tombstones the slot holding key. The slot stays dead until the next
// rehash so probe chains passing through it remain intact.
func (t *table[K, V]) erase(key K) bool {
	i, ok := t.lookup(key)
	if !ok {
		return false
	}
	t.ledger.setState(i, slotDeleted)
	t.used--
	return true
}

// put is insert-or-assign. It reports false only when the key is absent and
// the table is saturated.
func (t *table[K, V]) put(key K, value V) bool {
	if i, ok := t.lookup(key); ok {
		t.slots[i].value = value
		return true
	}
	return t.insert(key, value)
}

// resize rebuilds the table so its virtual capacity is newVirtualCap,
// clamped to the current element count. It reports false when the implied
// raw capacity exceeds the 255-slot ceiling.
func (t *table[K, V]) resize(newVirtualCap int) bool {
	if newVirtualCap < 0 {
		return false
	}
	raw := uint32(newVirtualCap) * 100 / uint32(t.fullness)
	if raw > maxCapacity {
		return false
	}
	c := uint8(raw)
	if c < t.used {
		c = t.used
	}
	if c == t.capacity {
		return true
	}
	t.rehash(c)
	return true
}

// fit shrinks the table to the smallest capacity whose virtual capacity
// still covers the element count and returns the bytes released.
func (t *table[K, V]) fit() int {
	if t.used >= t.capacity {
		return 0
	}
	oldCap := t.capacity
	target := (uint16(t.used)*100 + uint16(t.fullness) - 1) / uint16(t.fullness)
	t.rehash(uint8(target))

	var s slot[K, V]
	freed := int(oldCap-t.capacity) * int(unsafe.Sizeof(s))
	freed += ledgerBytes(oldCap) - ledgerBytes(t.capacity)
	return freed
}

// setFullness updates the fullness percentage. Arguments at or below 1.0
// are fractions, larger arguments are percentages; both clamp to [10,100].
// The change is rejected when the current capacity could no longer cover
// the element count.
func (t *table[K, V]) setFullness(f float64) bool {
	if f < 0.1 {
		f = 0.1
	}
	if f > 1.0 && f < 10 {
		f = 1.0
	}
	if f > 100 {
		f = 100
	}
	pct := uint8(f)
	if f <= 1.0 {
		pct = uint8(f*100 + 0.5)
	}

	old := t.fullness
	t.fullness = pct
	if t.capToVirtual() < t.used {
		t.fullness = old
		return false
	}
	t.virtualCap = t.capToVirtual()
	return true
}

func (t *table[K, V]) getFullness() float64 {
	return float64(t.fullness) / 100
}

// clear drops every element but keeps the allocation.
func (t *table[K, V]) clear() {
	t.ledger.clear()
	t.used = 0
	t.dead = 0
}

// equal reports whether both tables hold the same key set. Capacity,
// fullness and slot placement do not participate.
func (t *table[K, V]) equal(o *table[K, V]) bool {
	if t.used != o.used {
		return false
	}
	for i := uint8(0); i < t.capacity; i++ {
		if t.ledger.state(i) != slotUsed {
			continue
		}
		if _, ok := o.lookup(t.slots[i].key); !ok {
			return false
		}
	}
	return true
}

// memoryUsage returns the exact resident byte count: the table header, the
// slot array and the packed ledger.
func (t *table[K, V]) memoryUsage() int {
	var s slot[K, V]
	return int(unsafe.Sizeof(*t)) + int(t.capacity)*int(unsafe.Sizeof(s)) + len(t.ledger.bits)
}

// clone deep-copies the table. Slots that are not live are left at the zero
// value so the copy does not retain erased elements.
func (t *table[K, V]) clone() *table[K, V] {
	n := &table[K, V]{
		ledger:     t.ledger.clone(),
		hash:       t.hash,
		capacity:   t.capacity,
		used:       t.used,
		dead:       t.dead,
		fullness:   t.fullness,
		virtualCap: t.virtualCap,
		step:       t.step,
	}
	n.slots = make([]slot[K, V], t.capacity)
	for i := uint8(0); i < t.capacity; i++ {
		if t.ledger.state(i) == slotUsed {
			n.slots[i] = t.slots[i]
		}
	}
	return n
}

// all visits every live element in slot order. Used by the wrappers'
// range-over-func iteration.
func (t *table[K, V]) all(yield func(K, V) bool) {
	for i := uint8(0); i < t.capacity; i++ {
		if t.ledger.state(i) == slotUsed && !yield(t.slots[i].key, t.slots[i].value) {
			return
		}
	}
}

// A Cursor addresses one live element of a Set or Map. The position past
// the last slot is the end sentinel, for which Valid reports false. Cursors
// are invalidated by any operation that rehashes the container.
type Cursor[K comparable, V any] struct {
	tab   *table[K, V]
	index int
}

func (t *table[K, V]) cursorAt(index int) Cursor[K, V] {
	c := Cursor[K, V]{tab: t, index: index}
	for c.index < int(t.capacity) && t.ledger.state(uint8(c.index)) != slotUsed {
		c.index++
	}
	return c
}

func (t *table[K, V]) end() Cursor[K, V] {
	return Cursor[K, V]{tab: t, index: int(t.capacity)}
}

// Valid reports whether the cursor addresses a live element.
func (c Cursor[K, V]) Valid() bool {
	return c.tab != nil && c.index < int(c.tab.capacity)
}

// Key returns the element's key. The cursor must be valid.
func (c Cursor[K, V]) Key() K {
	return c.tab.slots[c.index].key
}

// Value returns the element's value. The cursor must be valid.
func (c Cursor[K, V]) Value() V {
	return c.tab.slots[c.index].value
}

// Next returns a cursor at the following live element in slot order, or the
// end sentinel.
func (c Cursor[K, V]) Next() Cursor[K, V] {
	if c.tab == nil || c.index >= int(c.tab.capacity) {
		return c
	}
	return c.tab.cursorAt(c.index + 1)
}

// Prev returns a cursor at the preceding live element in slot order. A
// cursor at the first live element is returned unchanged.
func (c Cursor[K, V]) Prev() Cursor[K, V] {
	if c.tab == nil || c.index == 0 {
		return c
	}
	i := c.index - 1
	for i > 0 && c.tab.ledger.state(uint8(i)) != slotUsed {
		i--
	}
	if c.tab.ledger.state(uint8(i)) == slotUsed {
		c.index = i
	}
	return c
}
