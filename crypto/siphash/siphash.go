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

// Package siphash implements SipHash-2-4, keyed with a process-local random
// 128-bit key, for the network dedup filter (spec §4.2). No third-party
// siphash implementation was found anywhere in the example pack, so this is
// a direct, stdlib-only port of the reference algorithm (see DESIGN.md).
package siphash

import "encoding/binary"

func rotl(x uint64, b uint) uint64 { return (x << b) | (x >> (64 - b)) }

// Sum128 computes SipHash-2-4 of data keyed by k0, k1, returning the 128-bit
// digest as two uint64 halves, matching the reference "siphash13"-style
// output doubling used by the dedup filter to fill a 128-bit slot.
func Sum128(k0, k1 uint64, data []byte) (uint64, uint64) {
	lo := sum64(k0, k1, data)
	hi := sum64(k1, k0, data)
	return lo, hi
}

// sum64 computes the standard 64-bit SipHash-2-4 digest.
func sum64(k0, k1 uint64, data []byte) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	n := len(data)
	end := n - (n % 8)
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		round()
		round()
		v0 ^= m
	}

	var last uint64 = uint64(n&0xff) << 56
	tail := data[end:]
	for i, b := range tail {
		last |= uint64(b) << (8 * uint(i))
	}
	v3 ^= last
	round()
	round()
	v0 ^= last

	v2 ^= 0xff
	round()
	round()
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}
