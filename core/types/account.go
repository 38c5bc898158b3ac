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

// AccountInfo is the persisted head-of-chain summary for an account (spec
// §3's "Account state").
type AccountInfo struct {
	Head               common.Hash
	Open               common.Hash
	Representative     common.Account
	Balance            common.Amount
	ModifiedUnixTime   int64
	BlockCount         uint64
	ConfirmationHeight uint64
	Epoch              Epoch
}

// PendingKey identifies a not-yet-received send, keyed by destination
// account and the hash of the send block that created it.
type PendingKey struct {
	Destination common.Account
	SendHash    common.Hash
}

// PendingInfo is the value side of a pending receive.
type PendingInfo struct {
	Source common.Account
	Amount common.Amount
	Epoch  Epoch
}

// UncheckedEntry is a block staged because its predecessor (previous or
// source) is missing from the ledger (spec §3).
type UncheckedEntry struct {
	Block      Block
	SenderHint common.Account
	ArrivalUnix int64
	SigStatus  SigStatus
	IsLocal    bool
}

// SigStatus records whether an unchecked entry's signature has been
// pre-verified by the state-block verifier.
type SigStatus int8

const (
	SigUnknown SigStatus = iota
	SigInvalid
	SigValid
)

// ConfirmationHeightInfo is the persisted cementation marker for an
// account: height and the hash of the block cemented at that height.
type ConfirmationHeightInfo struct {
	Height uint64
	Frontier common.Hash
}
