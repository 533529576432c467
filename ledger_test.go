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

	"github.com/stretchr/testify/require"
)

func TestLedgerBytes(t *testing.T) {
	testCases := []struct {
		capacity uint8
		expected int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{10, 3},
		{100, 25},
		{255, 64},
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			require.Equal(t, c.expected, ledgerBytes(c.capacity))
			var l slotLedger
			l.init(c.capacity)
			require.Equal(t, c.expected, len(l.bits))
		})
	}
}

func TestLedgerStates(t *testing.T) {
	var l slotLedger
	l.init(255)

	// A fresh ledger is all empty.
	for i := 0; i < 255; i++ {
		require.Equal(t, slotEmpty, l.state(uint8(i)))
	}

	// Writes at one index must not disturb neighbors sharing the byte.
	expected := make([]slotState, 255)
	states := []slotState{slotEmpty, slotDeleted, slotUsed}
	for trial := 0; trial < 1000; trial++ {
		i := uint8(rand.Intn(255))
		s := states[rand.Intn(len(states))]
		l.setState(i, s)
		expected[i] = s
		for j := 0; j < 255; j++ {
			require.Equal(t, expected[j], l.state(uint8(j)), "index %d", j)
		}
	}
}

func TestLedgerClearClone(t *testing.T) {
	var l slotLedger
	l.init(16)
	for i := uint8(0); i < 16; i++ {
		l.setState(i, slotUsed)
	}

	c := l.clone()
	l.clear()
	for i := uint8(0); i < 16; i++ {
		require.Equal(t, slotEmpty, l.state(i))
		require.Equal(t, slotUsed, c.state(i))
	}
}
