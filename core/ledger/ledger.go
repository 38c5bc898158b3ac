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

// Package ledger implements process_one: applying a single block to the
// store within an already-open write transaction (spec §4.5). The block
// processor owns batching and the write-queue grant; this package owns the
// per-block validation and mutation rules.
package ledger

import (
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/repweights"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/core/work"
	"github.com/vaultchain/vaultchain/store"
)

// ProcessResult is the closed set of outcomes process_one can produce
// (spec §4.5). It is never represented as a Go error: each value maps to a
// deterministic, enumerated consequence the caller switches on.
type ProcessResult int

const (
	Progress ProcessResult = iota
	BadSignature
	NegativeSpend
	Fork
	Unreceivable
	GapPrevious
	GapSource
	Old
	BlockPosition
	InsufficientWork
	OpenedBurnAccount
	BalanceMismatch
	RepresentativeMismatch
	UnknownEpochLink
)

func (r ProcessResult) String() string {
	switch r {
	case Progress:
		return "progress"
	case BadSignature:
		return "bad_signature"
	case NegativeSpend:
		return "negative_spend"
	case Fork:
		return "fork"
	case Unreceivable:
		return "unreceivable"
	case GapPrevious:
		return "gap_previous"
	case GapSource:
		return "gap_source"
	case Old:
		return "old"
	case BlockPosition:
		return "block_position"
	case InsufficientWork:
		return "insufficient_work"
	case OpenedBurnAccount:
		return "opened_burn_account"
	case BalanceMismatch:
		return "balance_mismatch"
	case RepresentativeMismatch:
		return "representative_mismatch"
	case UnknownEpochLink:
		return "unknown_epoch_link"
	default:
		return "unknown"
	}
}

// Ledger applies blocks to the store. It holds no durable state of its own
// beyond collaborator references; all durable state lives in the store.Txn
// handed to ProcessOne.
type Ledger struct {
	Work    *work.Checker
	Epochs  types.EpochTable
	Weights *repweights.Cache
}

// legacyAccountOf resolves which account a legacy (non-open, non-state)
// block belongs to by following the previous hash back to the account that
// currently has it as its head.
func legacyAccountOf(accounts store.AccountTable, previous common.Hash) (common.Account, types.AccountInfo, bool) {
	var found common.Account
	var info types.AccountInfo
	ok := false
	accounts.Iterate(func(acc common.Account, i types.AccountInfo) bool {
		if i.Head == previous {
			found, info, ok = acc, i, true
			return false
		}
		return true
	})
	return found, info, ok
}

// ProcessOne validates and, on Progress, applies block within txn. A block
// whose sig is SigInvalid is rejected as BadSignature before any other
// check.
func (l *Ledger) ProcessOne(txn store.Txn, block types.Block, sig types.SigStatus) ProcessResult {
	if sig == types.SigInvalid {
		return BadSignature
	}

	switch block.Kind() {
	case types.KindOpen:
		return l.processOpen(txn, block.(*types.OpenBlock))
	case types.KindState:
		return l.processState(txn, block.(*types.StateBlock))
	case types.KindSend:
		return l.processSend(txn, block.(*types.SendBlock))
	case types.KindReceive:
		return l.processReceive(txn, block.(*types.ReceiveBlock))
	case types.KindChange:
		return l.processChange(txn, block.(*types.ChangeBlock))
	default:
		return BadSignature
	}
}

func (l *Ledger) checkWork(root common.Hash, block types.Block) ProcessResult {
	if l.Work != nil && !l.Work.Valid(root, block.Work(), block.Details()) {
		return InsufficientWork
	}
	return Progress
}

func (l *Ledger) processOpen(txn store.Txn, b *types.OpenBlock) ProcessResult {
	accounts := txn.Accounts()
	if b.Acc.IsZero() {
		return OpenedBurnAccount
	}
	if _, exists := accounts.Get(b.Acc); exists {
		return Fork
	}
	if r := l.checkWork(b.Root(), b); r != Progress {
		return r
	}

	pend := txn.Pending()
	key := types.PendingKey{Destination: b.Acc, SendHash: b.SourceHash}
	info, ok := pend.Get(key)
	if !ok {
		return GapSource
	}
	pend.Del(key)

	accounts.Put(b.Acc, types.AccountInfo{
		Head:           b.Hash(),
		Open:           b.Hash(),
		Representative: b.Rep,
		Balance:        info.Amount,
		BlockCount:     1,
		Epoch:          info.Epoch,
	})
	txn.Blocks().Put(b.Hash(), b, b.Acc)
	l.Weights.Adjust(b.Rep, info.Amount, false)
	return Progress
}

func (l *Ledger) processSend(txn store.Txn, b *types.SendBlock) ProcessResult {
	accounts := txn.Accounts()
	acc, info, ok := legacyAccountOf(accounts, b.PreviousHash)
	if !ok {
		return GapPrevious
	}
	if info.Head != b.PreviousHash {
		return Old
	}
	if r := l.checkWork(b.Root(), b); r != Progress {
		return r
	}
	sent, okSub := info.Balance.Sub(b.Bal)
	if !okSub {
		return NegativeSpend
	}

	txn.Pending().Put(types.PendingKey{Destination: b.Destination, SendHash: b.Hash()}, types.PendingInfo{
		Source: acc,
		Amount: sent,
		Epoch:  info.Epoch,
	})

	info.Head = b.Hash()
	info.Balance = b.Bal
	info.BlockCount++
	accounts.Put(acc, info)
	txn.Blocks().Put(b.Hash(), b, acc)
	return Progress
}

func (l *Ledger) processReceive(txn store.Txn, b *types.ReceiveBlock) ProcessResult {
	accounts := txn.Accounts()
	acc, info, ok := legacyAccountOf(accounts, b.PreviousHash)
	if !ok {
		return GapPrevious
	}
	if info.Head != b.PreviousHash {
		return Old
	}
	if r := l.checkWork(b.Root(), b); r != Progress {
		return r
	}

	pend := txn.Pending()
	key := types.PendingKey{Destination: acc, SendHash: b.SourceHash}
	pinfo, exists := pend.Get(key)
	if !exists {
		return GapSource
	}
	if pinfo.Epoch != info.Epoch {
		return Unreceivable
	}
	pend.Del(key)

	info.Head = b.Hash()
	info.Balance = info.Balance.Add(pinfo.Amount)
	info.BlockCount++
	accounts.Put(acc, info)
	txn.Blocks().Put(b.Hash(), b, acc)
	return Progress
}

func (l *Ledger) processChange(txn store.Txn, b *types.ChangeBlock) ProcessResult {
	accounts := txn.Accounts()
	acc, info, ok := legacyAccountOf(accounts, b.PreviousHash)
	if !ok {
		return GapPrevious
	}
	if info.Head != b.PreviousHash {
		return Old
	}
	if r := l.checkWork(b.Root(), b); r != Progress {
		return r
	}

	l.Weights.Adjust(info.Representative, info.Balance, true)
	l.Weights.Adjust(b.Rep, info.Balance, false)

	info.Representative = b.Rep
	info.Head = b.Hash()
	info.BlockCount++
	accounts.Put(acc, info)
	txn.Blocks().Put(b.Hash(), b, acc)
	return Progress
}

func (l *Ledger) processState(txn store.Txn, b *types.StateBlock) ProcessResult {
	accounts := txn.Accounts()
	info, exists := accounts.Get(b.Acc)

	isOpen := b.PreviousHash.IsZero()
	if isOpen && b.Acc.IsZero() {
		return OpenedBurnAccount
	}
	if isOpen == exists {
		// opening block but account already exists, or non-opening block
		// but account doesn't exist yet: either way the chain position is
		// wrong relative to what we have on record.
		if isOpen {
			return Fork
		}
		return GapPrevious
	}
	if !isOpen && info.Head != b.PreviousHash {
		if info.BlockCount >= 1 && info.Head == b.Hash() {
			return Old
		}
		return Fork
	}

	if r := l.checkWork(b.Root(), b); r != Progress {
		return r
	}

	curBalance := common.Amount{}
	curRep := common.ZeroAccount
	epoch := types.Epoch0
	if exists {
		curBalance = info.Balance
		curRep = info.Representative
		epoch = info.Epoch
	}

	det := b.Details()
	switch {
	case det.IsEpoch:
		e, known := l.Epochs.LookupByLink(b.LinkField)
		if !known || !types.IsSequential(epoch, e) {
			return UnknownEpochLink
		}
		if b.Bal.Cmp(curBalance) != 0 {
			return BalanceMismatch
		}
		epoch = e
	case b.Bal.Cmp(curBalance) < 0:
		// balance decreased: a send, the implicit link is the destination.
		sent, _ := curBalance.Sub(b.Bal)
		txn.Pending().Put(types.PendingKey{Destination: common.BytesToAccount(b.LinkField.Bytes()), SendHash: b.Hash()},
			types.PendingInfo{Source: b.Acc, Amount: sent, Epoch: epoch})
	case b.Bal.Cmp(curBalance) > 0:
		// balance increased: a receive: the link names the send block hash.
		key := types.PendingKey{Destination: b.Acc, SendHash: b.LinkField}
		pinfo, ok := txn.Pending().Get(key)
		if !ok {
			return GapSource
		}
		if curBalance.Add(pinfo.Amount).Cmp(b.Bal) != 0 {
			return BalanceMismatch
		}
		txn.Pending().Del(key)
	default:
		// balance unchanged: a representative change, or a no-op state
		// block re-confirming the current head (neither sends nor receives).
	}

	if curRep != b.Rep {
		l.Weights.Adjust(curRep, curBalance, true)
		l.Weights.Adjust(b.Rep, b.Bal, false)
	} else if curBalance.Cmp(b.Bal) != 0 {
		l.Weights.Adjust(curRep, curBalance, true)
		l.Weights.Adjust(curRep, b.Bal, false)
	}

	newInfo := types.AccountInfo{
		Head:               b.Hash(),
		Representative:     b.Rep,
		Balance:            b.Bal,
		BlockCount:         info.BlockCount + 1,
		Epoch:              epoch,
		ConfirmationHeight: info.ConfirmationHeight,
	}
	if isOpen {
		newInfo.Open = b.Hash()
	} else {
		newInfo.Open = info.Open
	}
	accounts.Put(b.Acc, newInfo)
	txn.Blocks().Put(b.Hash(), b, b.Acc)
	return Progress
}
