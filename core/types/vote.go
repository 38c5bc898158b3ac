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

package types

import (
	"errors"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/crypto"
)

// MaxVoteHashes is the on-wire contract for how many hashes a single vote
// message may carry (spec §6).
const MaxVoteHashes = 12

var ErrTooManyHashes = errors.New("types: vote carries more than MaxVoteHashes hashes")

// Vote is a representative's signed attestation for one or more block
// hashes sharing the same election root. A higher Sequence from the same
// Account supersedes any earlier vote for the same hash set (spec §3, §8).
type Vote struct {
	Account  common.Account
	Sequence uint64
	Hashes   []common.Hash
	Sig      []byte
}

// NewVote validates the hash-count contract and returns a Vote ready to
// sign, or an error if the caller handed it more than MaxVoteHashes hashes.
func NewVote(account common.Account, seq uint64, hashes []common.Hash, sig []byte) (*Vote, error) {
	if len(hashes) == 0 || len(hashes) > MaxVoteHashes {
		return nil, ErrTooManyHashes
	}
	return &Vote{Account: account, Sequence: seq, Hashes: append([]common.Hash(nil), hashes...), Sig: sig}, nil
}

// SigningBytes returns the canonical binary the vote's signature covers:
// the sequence number followed by each hash in order.
func (v *Vote) SigningBytes() []byte {
	buf := make([]byte, 0, 8+len(v.Hashes)*common.HashLength)
	var seqBytes [8]byte
	for i := 0; i < 8; i++ {
		seqBytes[i] = byte(v.Sequence >> (8 * uint(i)))
	}
	buf = append(buf, seqBytes[:]...)
	for _, h := range v.Hashes {
		buf = append(buf, h.Bytes()...)
	}
	return buf
}

// Verify reports whether the vote's signature is valid for its account.
func (v *Vote) Verify() bool {
	return crypto.Verify(v.Account, v.SigningBytes(), v.Sig)
}

// Supersedes reports whether v has a strictly higher sequence than other,
// assuming both are from the same account (spec §8).
func (v *Vote) Supersedes(other *Vote) bool {
	return v.Sequence > other.Sequence
}

// HashSetEqual reports whether v and other cover exactly the same hash set,
// order-sensitive (votes are generated with a fixed, deterministic order).
func (v *Vote) HashSetEqual(other *Vote) bool {
	if len(v.Hashes) != len(other.Hashes) {
		return false
	}
	for i := range v.Hashes {
		if v.Hashes[i] != other.Hashes[i] {
			return false
		}
	}
	return true
}
