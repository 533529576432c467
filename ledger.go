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

// Each slot in a table is in one of three states which are packed 2 bits
// per slot into a byte array. The bit patterns:
//
//	  empty: 0 0
//	deleted: 0 1
//	   used: 1 0
//
// A freshly zeroed ledger is therefore all-empty, which lets init and clear
// avoid a separate fill pass.
type slotState uint8

const (
	slotEmpty   slotState = 0b00
	slotDeleted slotState = 0b01
	slotUsed    slotState = 0b10
)

// ledgerBytes returns the exact backing size for a ledger of the given
// capacity: ceil(capacity*2/8). This is part of the memory accounting
// contract and must not change.
func ledgerBytes(capacity uint8) int {
	return (int(capacity)*2 + 7) / 8
}

// slotLedger tracks the state of every slot in a table. It performs no
// bounds checking: the owning table guarantees index < capacity on every
// call.
type slotLedger struct {
	bits []uint8
}

func (l *slotLedger) init(capacity uint8) {
	l.bits = make([]uint8, ledgerBytes(capacity))
}

func (l *slotLedger) state(i uint8) slotState {
	bit := uint(i) * 2
	return slotState((l.bits[bit/8] >> (bit % 8)) & 0b11)
}

func (l *slotLedger) setState(i uint8, s slotState) {
	bit := uint(i) * 2
	l.bits[bit/8] = l.bits[bit/8]&^(0b11<<(bit%8)) | uint8(s)<<(bit%8)
}

// clear resets every slot to empty without reallocating.
func (l *slotLedger) clear() {
	for i := range l.bits {
		l.bits[i] = 0
	}
}

func (l *slotLedger) clone() slotLedger {
	bits := make([]uint8, len(l.bits))
	copy(bits, l.bits)
	return slotLedger{bits: bits}
}
