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

// Package memstore is an in-memory reference implementation of store.Store,
// used by every subsystem's unit tests so they never touch a disk-backed KV
// engine (SPEC_FULL §7's test tooling). A production deployment swaps this
// for a pebble- or goleveldb-backed Store; both are already present in the
// dependency pack this project draws from (see DESIGN.md).
package memstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
	"github.com/vaultchain/vaultchain/store"
)

// Store is a single in-memory database guarded by one RWMutex. Write
// transactions take the write lock for their whole lifetime, which is
// sufficient for tests; it is not meant to be a performance reference.
type Store struct {
	mu sync.RWMutex

	accounts     map[common.Account]types.AccountInfo
	blocks       map[common.Hash]types.Block
	blockOwner   map[common.Hash]common.Account
	pending      map[types.PendingKey]types.PendingInfo
	unchecked    map[common.Hash][]types.UncheckedEntry
	onlineWeight []store.OnlineWeightSample
	confHeight   map[common.Account]types.ConfirmationHeightInfo
	frontier     map[common.Hash]common.Account
}

func New() *Store {
	return &Store{
		accounts:   make(map[common.Account]types.AccountInfo),
		blocks:     make(map[common.Hash]types.Block),
		blockOwner: make(map[common.Hash]common.Account),
		pending:    make(map[types.PendingKey]types.PendingInfo),
		unchecked:  make(map[common.Hash][]types.UncheckedEntry),
		confHeight: make(map[common.Account]types.ConfirmationHeightInfo),
		frontier:   make(map[common.Hash]common.Account),
	}
}

func (s *Store) TxBeginRead() store.Txn {
	s.mu.RLock()
	return &txn{s: s, write: false}
}

func (s *Store) TxBeginWrite(tables ...store.Table) store.Txn {
	s.mu.Lock()
	return &txn{s: s, write: true, tables: tables}
}

type txn struct {
	s       *Store
	write   bool
	tables  []store.Table
	done    bool
}

func (t *txn) unlock() {
	if t.done {
		return
	}
	t.done = true
	if t.write {
		t.s.mu.Unlock()
	} else {
		t.s.mu.RUnlock()
	}
}

func (t *txn) Commit() error {
	t.unlock()
	return nil
}

func (t *txn) Rollback() {
	t.unlock()
}

func (t *txn) Accounts() store.AccountTable            { return accountTable{t.s} }
func (t *txn) Blocks() store.BlockTable                { return blockTable{t.s} }
func (t *txn) Pending() store.PendingTable             { return pendingTable{t.s} }
func (t *txn) Unchecked() store.UncheckedTable          { return uncheckedTable{t.s} }
func (t *txn) OnlineWeight() store.OnlineWeightTable    { return onlineWeightTable{t.s} }
func (t *txn) ConfirmationHeight() store.ConfirmationHeightTable { return confHeightTable{t.s} }
func (t *txn) Frontier() store.FrontierTable            { return frontierTable{t.s} }

type accountTable struct{ s *Store }

func (a accountTable) Get(acc common.Account) (types.AccountInfo, bool) {
	v, ok := a.s.accounts[acc]
	return v, ok
}
func (a accountTable) Put(acc common.Account, info types.AccountInfo) { a.s.accounts[acc] = info }
func (a accountTable) Del(acc common.Account)                        { delete(a.s.accounts, acc) }
func (a accountTable) Iterate(fn func(common.Account, types.AccountInfo) bool) {
	keys := make([][]byte, 0, len(a.s.accounts))
	byKey := make(map[string]common.Account, len(a.s.accounts))
	for k := range a.s.accounts {
		kb := append([]byte(nil), k.Bytes()...)
		keys = append(keys, kb)
		byKey[string(kb)] = k
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	for _, kb := range keys {
		acc := byKey[string(kb)]
		if !fn(acc, a.s.accounts[acc]) {
			return
		}
	}
}

type blockTable struct{ s *Store }

func (b blockTable) Get(h common.Hash) (types.Block, bool) { v, ok := b.s.blocks[h]; return v, ok }
func (b blockTable) Put(h common.Hash, blk types.Block, owner common.Account) {
	b.s.blocks[h] = blk
	b.s.blockOwner[h] = owner
}
func (b blockTable) Del(h common.Hash) {
	delete(b.s.blocks, h)
	delete(b.s.blockOwner, h)
}
func (b blockTable) Owner(h common.Hash) (common.Account, bool) {
	v, ok := b.s.blockOwner[h]
	return v, ok
}

type pendingTable struct{ s *Store }

func (p pendingTable) Get(k types.PendingKey) (types.PendingInfo, bool) {
	v, ok := p.s.pending[k]
	return v, ok
}
func (p pendingTable) Put(k types.PendingKey, v types.PendingInfo) { p.s.pending[k] = v }
func (p pendingTable) Del(k types.PendingKey)                      { delete(p.s.pending, k) }
func (p pendingTable) IteratePrefix(dest common.Account, fn func(types.PendingKey, types.PendingInfo) bool) {
	var keys []types.PendingKey
	for k := range p.s.pending {
		if k.Destination == dest {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i].SendHash.Bytes(), keys[j].SendHash.Bytes()) < 0 })
	for _, k := range keys {
		if !fn(k, p.s.pending[k]) {
			return
		}
	}
}

type uncheckedTable struct{ s *Store }

func (u uncheckedTable) Get(h common.Hash) []types.UncheckedEntry { return u.s.unchecked[h] }
func (u uncheckedTable) Put(h common.Hash, e types.UncheckedEntry) {
	u.s.unchecked[h] = append(u.s.unchecked[h], e)
}
func (u uncheckedTable) Del(h common.Hash) { delete(u.s.unchecked, h) }
func (u uncheckedTable) Len() int {
	n := 0
	for _, v := range u.s.unchecked {
		n += len(v)
	}
	return n
}

type onlineWeightTable struct{ s *Store }

func (o onlineWeightTable) Put(sample store.OnlineWeightSample) {
	o.s.onlineWeight = append(o.s.onlineWeight, sample)
}
func (o onlineWeightTable) DeleteOldest(keep int) {
	if len(o.s.onlineWeight) <= keep {
		return
	}
	sort.Slice(o.s.onlineWeight, func(i, j int) bool {
		return o.s.onlineWeight[i].UnixNanos < o.s.onlineWeight[j].UnixNanos
	})
	drop := len(o.s.onlineWeight) - keep
	o.s.onlineWeight = o.s.onlineWeight[drop:]
}
func (o onlineWeightTable) All() []store.OnlineWeightSample {
	out := append([]store.OnlineWeightSample(nil), o.s.onlineWeight...)
	sort.Slice(out, func(i, j int) bool { return out[i].UnixNanos < out[j].UnixNanos })
	return out
}
func (o onlineWeightTable) Len() int { return len(o.s.onlineWeight) }

type confHeightTable struct{ s *Store }

func (c confHeightTable) Get(acc common.Account) (types.ConfirmationHeightInfo, bool) {
	v, ok := c.s.confHeight[acc]
	return v, ok
}
func (c confHeightTable) Put(acc common.Account, info types.ConfirmationHeightInfo) {
	c.s.confHeight[acc] = info
}

type frontierTable struct{ s *Store }

func (f frontierTable) Get(h common.Hash) (common.Account, bool) {
	v, ok := f.s.frontier[h]
	return v, ok
}
func (f frontierTable) Put(h common.Hash, acc common.Account) { f.s.frontier[h] = acc }
func (f frontierTable) Del(h common.Hash)                     { delete(f.s.frontier, h) }
func (f frontierTable) Iterate(fn func(common.Hash, common.Account) bool) {
	keys := make([]common.Hash, 0, len(f.s.frontier))
	for k := range f.s.frontier {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) < 0 })
	for _, k := range keys {
		if !fn(k, f.s.frontier[k]) {
			return
		}
	}
}
