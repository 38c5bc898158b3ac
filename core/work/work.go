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

// Package work provides the proof-of-work Checker the ledger validates
// blocks against (spec §6). Work generation itself, including any
// OpenCL backend, is out of scope; this package only verifies a nonce
// someone else produced.
package work

import (
	"encoding/binary"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"golang.org/x/crypto/blake2b"
)

// Version distinguishes work generated under different difficulty epochs
// (the network can raise the bar over time without invalidating old work
// retroactively).
type Version uint8

const (
	Version1 Version = iota
	Version2
)

// Thresholds holds the per-network, per-version, per-block-class difficulty
// floors a nonce's work value must meet or exceed.
type Thresholds struct {
	Base    uint64 // ordinary send/change/open blocks
	Receive uint64 // receive-side blocks, traditionally a lower bar
}

// DefaultThresholds returns this port's default difficulty floors.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Base:    0xffffffc000000000,
		Receive: 0xfffffff800000000,
	}
}

// Checker verifies a work nonce against the root-derived threshold.
type Checker struct {
	t Thresholds
}

func NewChecker(t Thresholds) *Checker { return &Checker{t: t} }

// Value computes the work value for (root, nonce): the 8-byte Blake2b
// digest of (nonce as little-endian bytes || root), read as a little-endian
// uint64.
func Value(root common.Hash, nonce uint64) uint64 {
	h, _ := blake2b.New(8, nil)
	var nb [8]byte
	binary.LittleEndian.PutUint64(nb[:], nonce)
	h.Write(nb[:])
	h.Write(root.Bytes())
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// threshold picks the difficulty floor for a block's details.
func (c *Checker) threshold(det types.Details) uint64 {
	if det.IsReceive && !det.IsSend {
		return c.t.Receive
	}
	return c.t.Base
}

// Valid reports whether nonce meets or exceeds the threshold for root given
// the block's details (spec §6: work_difficulty(version, root, nonce) >=
// threshold(version, block_details)).
func (c *Checker) Valid(root common.Hash, nonce uint64, det types.Details) bool {
	return Value(root, nonce) >= c.threshold(det)
}
