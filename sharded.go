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
	"unsafe"

	"golang.org/x/exp/constraints"
)

// shardDirInitCap is the directory size of a default-constructed sharded
// set. A default-constructed sharded map starts at initCapacity instead.
const shardDirInitCap = 4

// sharded chains many fixed-capacity tables behind a routing directory so
// the element count can exceed a single table's ceiling. Keys are integers
// and are partitioned by value: key k belongs to range k/ability, and the
// range map assigns each live range to a directory slot on first insert.
//
// The directory reuses the slot ledger for its own bookkeeping. A Used slot
// holds a routed shard, a Deleted slot holds an emptied shard retired to
// the reserve pool, and an Empty slot is free (possibly with a pre-activated
// empty shard waiting for its first range).
type sharded[K constraints.Integer, V any] struct {
	shards   []*table[K, V]
	states   slotLedger
	ranges   Map[uint8, uint8]
	fullness uint8
	ability  uint8
	active   uint8
}

func newSharded[K constraints.Integer, V any](chainCapacity, dirCap, preActivate int) *sharded[K, V] {
	s := &sharded[K, V]{
		ranges:   *NewMap[uint8, uint8](defaultCapacity),
		fullness: defaultFullness,
	}
	s.recalculateAbility()

	if chainCapacity > 0 {
		required := chainCapacity/int(s.ability) + 1
		reserve := 3
		if required >= 3 && required < maxCapacity-6 {
			reserve = 6
		}
		dirCap = required + reserve
		preActivate = required
	}
	s.remap(dirCap)
	for i := 0; i < preActivate; i++ {
		s.activate(uint8(i))
	}
	return s
}

func (s *sharded[K, V]) recalculateAbility() {
	s.ability = uint8(maxCapacity * uint16(s.fullness) / 100)
}

func (s *sharded[K, V]) rangeOf(key K) uint8 {
	return uint8(uint64(key) / uint64(s.ability))
}

// remap grows the directory to n slots, carrying shards and their states
// over in place. The directory never shrinks here; only fit compacts it.
func (s *sharded[K, V]) remap(n int) {
	if n < len(s.shards) {
		n = len(s.shards)
	}
	if n > maxCapacity {
		n = maxCapacity
	}
	// Past 234 live ranges the range map must run at fullness 100% to
	// address all 255 directory slots.
	if s.active >= 234 {
		s.ranges.SetFullness(1.0)
	}

	old := s.states
	oldLen := len(s.shards)
	grown := make([]*table[K, V], n)
	copy(grown, s.shards)
	s.states.init(uint8(n))
	for i := 0; i < oldLen; i++ {
		s.states.setState(uint8(i), old.state(uint8(i)))
	}
	s.shards = grown
}

// activate allocates the shard at directory slot i, inheriting the chain's
// fullness. The slot state is left untouched: an activated shard is not
// routed until its first insert.
func (s *sharded[K, V]) activate(i uint8) {
	if int(i) >= len(s.shards) || s.shards[i] != nil {
		return
	}
	t := newTable[K, V](defaultCapacity)
	t.setFullness(float64(s.fullness))
	s.shards[i] = t
	s.active++
}

// adopt routes range r to directory slot i.
func (s *sharded[K, V]) adopt(r, i uint8) {
	s.ranges.Put(r, i)
	s.states.setState(i, slotUsed)
}

func (s *sharded[K, V]) place(t *table[K, V], key K, value V, overwrite bool) bool {
	if overwrite {
		return t.put(key, value)
	}
	return t.insert(key, value)
}

// insert routes key to its range's shard, assigning a shard to the range
// first if needed. Assignment prefers, in directory order, an activated
// empty shard, then a retired reserve shard, then a free slot; when the
// directory is exhausted it grows by 4 slots and retries.
func (s *sharded[K, V]) insert(key K, value V, overwrite bool) bool {
	r := s.rangeOf(key)
	if id, ok := s.ranges.Get(r); ok {
		return s.place(s.shards[id], key, value, overwrite)
	}

	free := -1
	for i := range s.shards {
		switch s.states.state(uint8(i)) {
		case slotEmpty:
			if s.shards[i] != nil {
				if s.shards[i].used == 0 {
					s.adopt(r, uint8(i))
					return s.place(s.shards[i], key, value, overwrite)
				}
			} else if free < 0 {
				free = i
			}
		case slotDeleted:
			s.adopt(r, uint8(i))
			return s.place(s.shards[i], key, value, overwrite)
		}
	}
	if free >= 0 {
		s.activate(uint8(free))
		s.adopt(r, uint8(free))
		return s.place(s.shards[free], key, value, overwrite)
	}
	if len(s.shards) < maxCapacity {
		s.remap(len(s.shards) + 4)
		return s.insert(key, value, overwrite)
	}
	return false
}

// erase removes key from its shard. A shard left empty is unrouted, marked
// as reserve and shrunk to its minimum footprint.
func (s *sharded[K, V]) erase(key K) bool {
	r := s.rangeOf(key)
	id, ok := s.ranges.Get(r)
	if !ok {
		return false
	}
	sh := s.shards[id]
	if !sh.erase(key) {
		return false
	}
	if sh.used == 0 {
		s.ranges.Erase(r)
		s.states.setState(id, slotDeleted)
		sh.fit()
	}
	return true
}

func (s *sharded[K, V]) lookup(key K) (*table[K, V], uint8, bool) {
	id, ok := s.ranges.Get(s.rangeOf(key))
	if !ok {
		return nil, 0, false
	}
	i, ok := s.shards[id].lookup(key)
	return s.shards[id], i, ok
}

func (s *sharded[K, V]) size() int {
	total := 0
	for _, sh := range s.shards {
		if sh != nil {
			total += int(sh.used)
		}
	}
	return total
}

func (s *sharded[K, V]) empty() bool {
	for i := range s.shards {
		if s.states.state(uint8(i)) == slotUsed {
			return false
		}
	}
	return true
}

// full reports whether every activated shard is at its growth trigger.
func (s *sharded[K, V]) full() bool {
	for _, sh := range s.shards {
		if sh != nil && sh.dead < sh.virtualCap {
			return false
		}
	}
	return true
}

// redirect rewrites the single range entry routed to directory slot src so
// it points at dest. Used by fit's compaction pass.
func (s *sharded[K, V]) redirect(src, dest uint8) {
	for c := s.ranges.First(); c.Valid(); c = c.Next() {
		if c.Value() == src {
			s.ranges.Put(c.Key(), dest)
			return
		}
	}
}

// fit releases reserve shards, shrinks routed shards to their element
// counts, compacts routed shards to the low directory slots and shrinks the
// directory when utilization drops below a third. Returns the bytes
// released.
func (s *sharded[K, V]) fit() int {
	freed := 0
	routed := 0
	for i := range s.shards {
		if s.shards[i] == nil {
			continue
		}
		switch s.states.state(uint8(i)) {
		case slotUsed:
			freed += s.shards[i].fit()
			routed++
		case slotDeleted:
			freed += s.shards[i].memoryUsage()
			s.shards[i] = nil
			s.states.setState(uint8(i), slotEmpty)
		}
	}
	if routed > 1 {
		dest := 0
		for src := 0; src < len(s.shards); src++ {
			if s.shards[src] == nil || s.states.state(uint8(src)) != slotUsed {
				continue
			}
			if dest != src {
				s.shards[dest] = s.shards[src]
				s.redirect(uint8(src), uint8(dest))
				s.states.setState(uint8(dest), slotUsed)
				s.shards[src] = nil
				s.states.setState(uint8(src), slotEmpty)
			}
			dest++
		}
		if routed < len(s.shards)/3 && len(s.shards) > shardDirInitCap {
			newCap := routed * 2
			if newCap < shardDirInitCap {
				newCap = shardDirInitCap
			}
			oldCap := len(s.shards)
			shrunk := make([]*table[K, V], newCap)
			copy(shrunk, s.shards[:newCap])
			s.shards = shrunk
			s.states.init(uint8(newCap))
			for i := 0; i < routed; i++ {
				s.states.setState(uint8(i), slotUsed)
			}
			var p *table[K, V]
			freed += (oldCap - newCap) * int(unsafe.Sizeof(p))
			freed += ledgerBytes(uint8(oldCap)) - ledgerBytes(uint8(newCap))
		}
	}
	s.active = 0
	for _, sh := range s.shards {
		if sh != nil {
			s.active++
		}
	}
	return freed
}

// reserve prepares the chain for n elements by growing the directory and
// pre-activating enough shards to hold them.
func (s *sharded[K, V]) reserve(n int) bool {
	if n < s.size() || n > int(s.ability)*maxCapacity {
		return false
	}
	required := (n + int(s.ability) - 1) / int(s.ability)
	extra := 3
	if required >= 3 {
		extra = 6
	}
	s.remap(required + extra)
	for i := 0; i < required; i++ {
		s.activate(uint8(i))
	}
	return true
}

// setFullness rebuilds every shard at the new fullness. Because routing
// divides keys by the per-shard ability, a fullness change moves elements
// between ranges, so the whole chain is collected and reinserted; on any
// failure the previous state is rebuilt and false returned.
func (s *sharded[K, V]) setFullness(f float64) bool {
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
	if pct == s.fullness {
		return true
	}
	if pct < s.fullness {
		newAbility := maxCapacity * uint16(pct) / 100
		if int(newAbility)*maxCapacity < s.size() {
			return false
		}
	}

	type entry struct {
		key   K
		value V
	}
	elems := make([]entry, 0, s.size())
	s.all(func(k K, v V) bool {
		elems = append(elems, entry{k, v})
		return true
	})

	rebuild := func(pct uint8) bool {
		for i := range s.shards {
			s.shards[i] = nil
		}
		s.states.clear()
		s.active = 0
		s.ranges.Clear()
		s.fullness = pct
		s.recalculateAbility()
		required := (len(elems) + int(s.ability) - 1) / int(s.ability)
		for i := 0; i < required && i < len(s.shards); i++ {
			s.activate(uint8(i))
		}
		for _, e := range elems {
			if !s.insert(e.key, e.value, false) {
				return false
			}
		}
		return true
	}

	old := s.fullness
	if rebuild(pct) {
		return true
	}
	rebuild(old)
	return false
}

func (s *sharded[K, V]) clear() {
	for i := range s.shards {
		s.shards[i] = nil
	}
	s.states.clear()
	s.active = 0
	s.ranges.Clear()
	s.ranges.Fit()
}

// equal compares by key membership, like the single-table containers.
func (s *sharded[K, V]) equal(o *sharded[K, V]) bool {
	if s.size() != o.size() {
		return false
	}
	same := true
	s.all(func(k K, _ V) bool {
		if _, _, ok := o.lookup(k); !ok {
			same = false
			return false
		}
		return true
	})
	return same
}

func (s *sharded[K, V]) memoryUsage() int {
	var p *table[K, V]
	total := int(unsafe.Sizeof(*s))
	total += len(s.shards) * int(unsafe.Sizeof(p))
	total += len(s.states.bits)
	total += s.ranges.MemoryUsage()
	for _, sh := range s.shards {
		if sh != nil {
			total += sh.memoryUsage()
		}
	}
	return total
}

func (s *sharded[K, V]) clone() *sharded[K, V] {
	n := &sharded[K, V]{
		states:   s.states.clone(),
		ranges:   *s.ranges.Clone(),
		fullness: s.fullness,
		ability:  s.ability,
		active:   s.active,
	}
	n.shards = make([]*table[K, V], len(s.shards))
	for i, sh := range s.shards {
		if sh != nil {
			n.shards[i] = sh.clone()
		}
	}
	return n
}

// all visits elements shard by shard in directory order, slot order within
// a shard.
func (s *sharded[K, V]) all(yield func(K, V) bool) {
	for i := range s.shards {
		if s.shards[i] == nil || s.states.state(uint8(i)) != slotUsed {
			continue
		}
		done := false
		s.shards[i].all(func(k K, v V) bool {
			if !yield(k, v) {
				done = true
				return false
			}
			return true
		})
		if done {
			return
		}
	}
}

// ShardedSet chains fixed-capacity sets behind a range-routing directory,
// raising the element ceiling from one table's 234 to 234*255 at the
// default fullness. Keys must be integers since routing partitions the key
// space by value. The zero value is not usable; construct with
// NewShardedSet.
type ShardedSet[K constraints.Integer] struct {
	s sharded[K, struct{}]
}

// NewShardedSet constructs a ShardedSet prepared for chainCapacity
// elements. A non-positive capacity selects the default of a 4-slot
// directory with one shard pre-activated.
func NewShardedSet[K constraints.Integer](chainCapacity int) *ShardedSet[K] {
	return &ShardedSet[K]{s: *newSharded[K, struct{}](chainCapacity, shardDirInitCap, 1)}
}

// Insert adds value, reporting false if it is already present or the chain
// is saturated.
func (s *ShardedSet[K]) Insert(value K) bool {
	return s.s.insert(value, struct{}{}, false)
}

// Erase removes value, reporting whether it was present.
func (s *ShardedSet[K]) Erase(value K) bool {
	return s.s.erase(value)
}

// Contains reports whether value is in the set.
func (s *ShardedSet[K]) Contains(value K) bool {
	_, _, ok := s.s.lookup(value)
	return ok
}

// Find returns a cursor at value, scoped to the shard holding it. An
// invalid cursor means absent.
func (s *ShardedSet[K]) Find(value K) Cursor[K, struct{}] {
	t, i, ok := s.s.lookup(value)
	if !ok {
		return Cursor[K, struct{}]{}
	}
	return Cursor[K, struct{}]{tab: t, index: int(i)}
}

// Len returns the total number of elements across all shards.
func (s *ShardedSet[K]) Len() int {
	return s.s.size()
}

// Capacity returns the element count the current directory can hold.
func (s *ShardedSet[K]) Capacity() int {
	return len(s.s.shards) * int(s.s.ability)
}

// Ability returns the absolute element ceiling under the current fullness.
func (s *ShardedSet[K]) Ability() int {
	return int(s.s.ability) * maxCapacity
}

// Empty reports whether no shard holds an element.
func (s *ShardedSet[K]) Empty() bool {
	return s.s.empty()
}

// Full reports whether every activated shard is at its growth trigger.
func (s *ShardedSet[K]) Full() bool {
	return s.s.full()
}

// Clear releases all shards and resets the routing state.
func (s *ShardedSet[K]) Clear() {
	s.s.clear()
}

// Fit compacts the chain and returns the bytes released.
func (s *ShardedSet[K]) Fit() int {
	return s.s.fit()
}

// Reserve prepares the chain to hold n elements.
func (s *ShardedSet[K]) Reserve(n int) bool {
	return s.s.reserve(n)
}

// Fullness returns the per-shard fullness factor as a fraction.
func (s *ShardedSet[K]) Fullness() float64 {
	return float64(s.s.fullness) / 100
}

// SetFullness rebuilds the chain at the new fullness, rolling back on
// failure.
func (s *ShardedSet[K]) SetFullness(fullness float64) bool {
	return s.s.setFullness(fullness)
}

// MemoryUsage returns the resident byte count of the chain, shards
// included.
func (s *ShardedSet[K]) MemoryUsage() int {
	return s.s.memoryUsage()
}

// Equal reports whether both chains hold the same elements.
func (s *ShardedSet[K]) Equal(o *ShardedSet[K]) bool {
	return s.s.equal(&o.s)
}

// Clone returns a deep copy of the chain.
func (s *ShardedSet[K]) Clone() *ShardedSet[K] {
	return &ShardedSet[K]{s: *s.s.clone()}
}

// All visits every element, shard by shard in directory order.
func (s *ShardedSet[K]) All(yield func(K) bool) {
	s.s.all(func(k K, _ struct{}) bool {
		return yield(k)
	})
}

// ShardedMap chains fixed-capacity maps behind a range-routing directory.
// See ShardedSet for the routing model. The zero value is not usable;
// construct with NewShardedMap.
type ShardedMap[K constraints.Integer, V any] struct {
	s sharded[K, V]
}

// NewShardedMap constructs a ShardedMap prepared for chainCapacity entries.
// A non-positive capacity selects the default of a 10-slot directory with
// three shards pre-activated.
func NewShardedMap[K constraints.Integer, V any](chainCapacity int) *ShardedMap[K, V] {
	return &ShardedMap[K, V]{s: *newSharded[K, V](chainCapacity, initCapacity, 3)}
}

// Insert adds the entry if key is absent. It reports false if key is
// already present or the chain is saturated.
func (m *ShardedMap[K, V]) Insert(key K, value V) bool {
	return m.s.insert(key, value, false)
}

// Put inserts or overwrites the entry for key.
func (m *ShardedMap[K, V]) Put(key K, value V) bool {
	return m.s.insert(key, value, true)
}

// Get returns the value mapped to key, reporting whether key was present.
func (m *ShardedMap[K, V]) Get(key K) (V, bool) {
	t, i, ok := m.s.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return t.slots[i].value, true
}

// Erase removes the entry for key, reporting whether it was present.
func (m *ShardedMap[K, V]) Erase(key K) bool {
	return m.s.erase(key)
}

// Contains reports whether key is in the map.
func (m *ShardedMap[K, V]) Contains(key K) bool {
	_, _, ok := m.s.lookup(key)
	return ok
}

// Find returns a cursor at key's entry, scoped to the shard holding it.
func (m *ShardedMap[K, V]) Find(key K) Cursor[K, V] {
	t, i, ok := m.s.lookup(key)
	if !ok {
		return Cursor[K, V]{}
	}
	return Cursor[K, V]{tab: t, index: int(i)}
}

// Len returns the total number of entries across all shards.
func (m *ShardedMap[K, V]) Len() int {
	return m.s.size()
}

// Capacity returns the entry count the current directory can hold.
func (m *ShardedMap[K, V]) Capacity() int {
	return len(m.s.shards) * int(m.s.ability)
}

// Ability returns the absolute entry ceiling under the current fullness.
func (m *ShardedMap[K, V]) Ability() int {
	return int(m.s.ability) * maxCapacity
}

// Empty reports whether no shard holds an entry.
func (m *ShardedMap[K, V]) Empty() bool {
	return m.s.empty()
}

// Full reports whether every activated shard is at its growth trigger.
func (m *ShardedMap[K, V]) Full() bool {
	return m.s.full()
}

// Clear releases all shards and resets the routing state.
func (m *ShardedMap[K, V]) Clear() {
	m.s.clear()
}

// Fit compacts the chain and returns the bytes released.
func (m *ShardedMap[K, V]) Fit() int {
	return m.s.fit()
}

// Reserve prepares the chain to hold n entries.
func (m *ShardedMap[K, V]) Reserve(n int) bool {
	return m.s.reserve(n)
}

// Fullness returns the per-shard fullness factor as a fraction.
func (m *ShardedMap[K, V]) Fullness() float64 {
	return float64(m.s.fullness) / 100
}

// SetFullness rebuilds the chain at the new fullness, rolling back on
// failure.
func (m *ShardedMap[K, V]) SetFullness(fullness float64) bool {
	return m.s.setFullness(fullness)
}

// MemoryUsage returns the resident byte count of the chain, shards
// included.
func (m *ShardedMap[K, V]) MemoryUsage() int {
	return m.s.memoryUsage()
}

// Equal reports whether both chains hold the same key set.
func (m *ShardedMap[K, V]) Equal(o *ShardedMap[K, V]) bool {
	return m.s.equal(&o.s)
}

// Clone returns a deep copy of the chain.
func (m *ShardedMap[K, V]) Clone() *ShardedMap[K, V] {
	return &ShardedMap[K, V]{s: *m.s.clone()}
}

// All visits every entry, shard by shard in directory order.
func (m *ShardedMap[K, V]) All(yield func(K, V) bool) {
	m.s.all(yield)
}
