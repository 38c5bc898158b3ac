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

import "github.com/vaultchain/vaultchain/common"

// Epoch is a totally ordered protocol version tag. Transitions between
// epochs must be sequential: epoch_n -> epoch_n+1, never skipped or
// reversed (spec §3, §8).
type Epoch uint8

const (
	EpochUnspecified Epoch = iota
	EpochInvalid
	Epoch0
	Epoch1
	Epoch2
)

func (e Epoch) String() string {
	switch e {
	case Epoch0:
		return "epoch_0"
	case Epoch1:
		return "epoch_1"
	case Epoch2:
		return "epoch_2"
	case EpochInvalid:
		return "epoch_invalid"
	default:
		return "epoch_unspecified"
	}
}

// IsSequential reports whether to immediately follows from, i.e. from is one
// of {epoch_0, epoch_1, epoch_2} and to == from+1. Unspecified is
// deliberately not a valid predecessor of epoch_0: upgrading from an
// unknown epoch state would silently mask a downgrade (design notes §9).
func IsSequential(from, to Epoch) bool {
	switch from {
	case Epoch0, Epoch1:
		return to == from+1
	default:
		return false
	}
}

// EpochInfo describes one network's registered signer and well-known link
// value for a non-zero epoch (data model §3; recovered from
// futurehead/lib/epoch.cpp per SPEC_FULL §8).
type EpochInfo struct {
	Epoch     Epoch
	Signer    common.Account
	LinkValue common.Hash
}

// EpochTable maps each non-zero epoch to its signer/link, one per network.
type EpochTable map[Epoch]EpochInfo

// LookupByLink returns the epoch whose well-known link value matches link,
// used by the block processor to classify a state block carrying an epoch
// upgrade (spec §4.5's unknown_epoch_link check).
func (t EpochTable) LookupByLink(link common.Hash) (Epoch, bool) {
	for e, info := range t {
		if info.LinkValue == link {
			return e, true
		}
	}
	return EpochUnspecified, false
}
