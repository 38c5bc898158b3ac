// Copyright 2024 The vaultchain Authors
// This file is part of the vaultchain library.
//
// The vaultchain library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The vaultchain library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the vaultchain library. If not, see <http://www.gnu.org/licenses/>.

// Package filter implements the network dedup filter: a fixed-size,
// open-addressed table of 128-bit slots keyed by a keyed SipHash of the
// payload bytes (spec §4.2). It operates on payload bytes only; the wire
// header is excluded by callers before Apply is invoked.
package filter

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/vaultchain/vaultchain/crypto/siphash"
)

// Filter is safe for concurrent use.
type Filter struct {
	mu    sync.Mutex
	k0    uint64
	k1    uint64
	slots [][2]uint64 // each slot holds the 128-bit digest that last landed there
}

// New builds a Filter with size slots and a fresh random 128-bit SipHash
// key, so adversaries cannot predict which slot a chosen payload lands in.
func New(size int) *Filter {
	if size < 1 {
		size = 1
	}
	var keyBytes [16]byte
	if _, err := rand.Read(keyBytes[:]); err != nil {
		panic("filter: failed to seed random siphash key: " + err.Error())
	}
	return &Filter{
		k0:    binary.LittleEndian.Uint64(keyBytes[:8]),
		k1:    binary.LittleEndian.Uint64(keyBytes[8:]),
		slots: make([][2]uint64, size),
	}
}

func (f *Filter) digest(payload []byte) [2]uint64 {
	lo, hi := siphash.Sum128(f.k0, f.k1, payload)
	return [2]uint64{lo, hi}
}

func (f *Filter) index(d [2]uint64) int {
	return int(d[0] % uint64(len(f.slots)))
}

// Apply returns whether payload's digest already occupied its slot (a
// likely duplicate); if not, the slot is overwritten with payload's digest.
// Two different payloads that hash to the same slot are indistinguishable
// from a genuine duplicate — an accepted tradeoff for best-effort flood
// dedup (spec §4.2, §8 scenario 1).
func (f *Filter) Apply(payload []byte) bool {
	d := f.digest(payload)
	idx := f.index(d)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots[idx] == d {
		return true
	}
	f.slots[idx] = d
	return false
}

// Clear removes the slot matching payload's digest, if any.
func (f *Filter) Clear(payload []byte) {
	f.ClearDigest(f.digest(payload))
}

// ClearDigest removes a previously-computed digest's slot directly.
func (f *Filter) ClearDigest(d [2]uint64) {
	idx := f.index(d)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots[idx] == d {
		f.slots[idx] = [2]uint64{}
	}
}

// ClearAll wipes every slot.
func (f *Filter) ClearAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.slots {
		f.slots[i] = [2]uint64{}
	}
}
