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

// Package store defines the abstract key-ordered storage collaborator
// (spec §6). The raw KV engine itself is out of scope; this package only
// fixes the shape every subsystem programs against, plus ErrFatalWrite, the
// sentinel that turns a second consecutive storage failure into a
// process-ending condition (spec §7).
package store

import (
	"errors"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
)

// ErrFatalWrite is returned by Txn.Commit when the underlying engine fails
// mid-write. Callers roll the transaction back; a second consecutive
// failure is treated as a release-assert (spec §7).
var ErrFatalWrite = errors.New("store: fatal write error")

var ErrNotFound = errors.New("store: key not found")

// Table names one of the seven persisted collections a write transaction can
// lock (spec §6).
type Table string

const (
	TableAccount            Table = "account"
	TableBlock              Table = "block"
	TablePending            Table = "pending"
	TableUnchecked          Table = "unchecked"
	TableOnlineWeight       Table = "online_weight"
	TableConfirmationHeight Table = "confirmation_height"
	TableFrontier           Table = "frontier"
)

// Store is the collaborator a concrete KV engine (e.g. pebble, goleveldb)
// implements. Readers may hold concurrently with no coordination; writers
// serialize through internal/writequeue above this interface.
type Store interface {
	TxBeginRead() Txn
	TxBeginWrite(tables ...Table) Txn
}

// Txn is a single read or read-write view. A write Txn commits atomically
// on Commit and must be rolled back on any error path; it is never safe to
// reuse after Commit or Rollback.
type Txn interface {
	Accounts() AccountTable
	Blocks() BlockTable
	Pending() PendingTable
	Unchecked() UncheckedTable
	OnlineWeight() OnlineWeightTable
	ConfirmationHeight() ConfirmationHeightTable
	Frontier() FrontierTable

	Commit() error
	Rollback()
}

// AccountTable is keyed by account public key, ordered by key bytes.
type AccountTable interface {
	Get(common.Account) (types.AccountInfo, bool)
	Put(common.Account, types.AccountInfo)
	Del(common.Account)
	Iterate(func(common.Account, types.AccountInfo) bool)
}

// BlockTable is keyed by block hash. Put also records owner, the account
// whose chain the block belongs to (Nano's "sideband" account field),
// letting confirmation-height recurse from a receive block to its source
// account without an extra ledger lookup (spec §4.6).
type BlockTable interface {
	Get(common.Hash) (types.Block, bool)
	Put(hash common.Hash, block types.Block, owner common.Account)
	Del(common.Hash)
	Owner(common.Hash) (common.Account, bool)
}

// PendingTable is keyed by (destination, send hash).
type PendingTable interface {
	Get(types.PendingKey) (types.PendingInfo, bool)
	Put(types.PendingKey, types.PendingInfo)
	Del(types.PendingKey)
	IteratePrefix(dest common.Account, fn func(types.PendingKey, types.PendingInfo) bool)
}

// UncheckedTable is keyed by the missing hash a staged block depends on.
type UncheckedTable interface {
	Get(common.Hash) []types.UncheckedEntry
	Put(common.Hash, types.UncheckedEntry)
	Del(common.Hash)
	Len() int
}

// OnlineWeightSample is one persisted (time, total weight) observation
// (spec §4.7).
type OnlineWeightSample struct {
	UnixNanos int64
	Weight    common.Amount
}

// OnlineWeightTable is keyed by monotonic sample time.
type OnlineWeightTable interface {
	Put(OnlineWeightSample)
	DeleteOldest(keep int)
	All() []OnlineWeightSample
	Len() int
}

// ConfirmationHeightTable is keyed by account.
type ConfirmationHeightTable interface {
	Get(common.Account) (types.ConfirmationHeightInfo, bool)
	Put(common.Account, types.ConfirmationHeightInfo)
}

// FrontierTable maps an account's current head block hash back to the
// account, used by legacy bootstrap frontier diffing (spec §4.11).
type FrontierTable interface {
	Get(common.Hash) (common.Account, bool)
	Put(common.Hash, common.Account)
	Del(common.Hash)
	Iterate(func(common.Hash, common.Account) bool)
}
