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

// Option configures a Set or Map while it is being created. Options for a
// Set instantiate V as struct{}.
type Option[K comparable, V any] interface {
	apply(t *table[K, V])
}

type fullnessOption[K comparable, V any] struct {
	fullness float64
}

func (op fullnessOption[K, V]) apply(t *table[K, V]) {
	t.setFullness(op.fullness)
}

// WithFullness is an option to set the fullness factor at construction.
// Values at or below 1.0 are fractions, larger values are percentages; both
// clamp to [10%, 100%].
func WithFullness[K comparable, V any](fullness float64) Option[K, V] {
	return fullnessOption[K, V]{fullness}
}

type hashOption[K comparable, V any] struct {
	hash func(key K) uint64
}

func (op hashOption[K, V]) apply(t *table[K, V]) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a container.
func WithHash[K comparable, V any](hash func(key K) uint64) Option[K, V] {
	return hashOption[K, V]{hash}
}
