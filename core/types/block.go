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

// Package types implements the block DAG's tagged variant (spec §3, design
// notes §9): five block kinds sharing one interface, dispatched by an
// exhaustive type switch rather than a class hierarchy. Each variant carries
// a pre-computed hash cache and is immutable after construction.
package types

import (
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/crypto"
)

// Kind identifies a block variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindOpen
	KindSend
	KindReceive
	KindChange
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	case KindChange:
		return "change"
	case KindState:
		return "state"
	default:
		return "invalid"
	}
}

// Details carries the epoch and state-subtype classification the block
// processor and signature verifier need without re-deriving it from the
// ledger (SPEC_FULL §3).
type Details struct {
	Epoch     Epoch
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// Block is the closed set of variants. Root, Hash and Work are always
// resident; Account/Previous/Representative/Balance/Link are meaningful only
// for the variants that carry them (see each type's doc comment) and return
// the zero value otherwise (legacy send, receive and change blocks return
// the zero account).
type Block interface {
	Kind() Kind
	Hash() common.Hash
	Root() common.Hash
	Account() common.Account
	Previous() common.Hash
	Representative() common.Account
	Balance() common.Amount
	Link() common.Hash
	Signature() []byte
	Work() uint64
	Details() Details
}

// --- Open ---

// OpenBlock is the first block of an account's chain. Its root is the
// account's own public key (spec §3's root definition).
type OpenBlock struct {
	SourceHash     common.Hash
	Rep            common.Account
	Acc            common.Account
	Sig            []byte
	Nonce          uint64
	hash           common.Hash
}

func NewOpenBlock(source common.Hash, rep, account common.Account, sig []byte, work uint64) *OpenBlock {
	b := &OpenBlock{SourceHash: source, Rep: rep, Acc: account, Sig: sig, Nonce: work}
	b.hash = crypto.Hash256([]byte{byte(KindOpen)}, source.Bytes(), rep.Bytes(), account.Bytes())
	return b
}

func (b *OpenBlock) Kind() Kind                    { return KindOpen }
func (b *OpenBlock) Hash() common.Hash             { return b.hash }
func (b *OpenBlock) Root() common.Hash             { return b.Acc.AsRoot() }
func (b *OpenBlock) Account() common.Account       { return b.Acc }
func (b *OpenBlock) Previous() common.Hash         { return common.ZeroHash }
func (b *OpenBlock) Representative() common.Account { return b.Rep }
func (b *OpenBlock) Balance() common.Amount        { return common.Amount{} }
func (b *OpenBlock) Link() common.Hash             { return b.SourceHash }
func (b *OpenBlock) Signature() []byte             { return b.Sig }
func (b *OpenBlock) Work() uint64                  { return b.Nonce }
func (b *OpenBlock) Details() Details              { return Details{Epoch: Epoch0, IsReceive: true} }

// --- Send ---

// SendBlock decreases the account's balance and names a destination.
type SendBlock struct {
	PreviousHash common.Hash
	Destination  common.Account
	Bal          common.Amount
	Sig          []byte
	Nonce        uint64
	hash         common.Hash
}

func NewSendBlock(previous common.Hash, destination common.Account, balance common.Amount, sig []byte, work uint64) *SendBlock {
	b := &SendBlock{PreviousHash: previous, Destination: destination, Bal: balance, Sig: sig, Nonce: work}
	bb := balance.Bytes32()
	b.hash = crypto.Hash256([]byte{byte(KindSend)}, previous.Bytes(), destination.Bytes(), bb[:])
	return b
}

func (b *SendBlock) Kind() Kind                    { return KindSend }
func (b *SendBlock) Hash() common.Hash             { return b.hash }
func (b *SendBlock) Root() common.Hash             { return b.PreviousHash }
func (b *SendBlock) Account() common.Account       { return common.ZeroAccount }
func (b *SendBlock) Previous() common.Hash         { return b.PreviousHash }
func (b *SendBlock) Representative() common.Account { return common.ZeroAccount }
func (b *SendBlock) Balance() common.Amount        { return b.Bal }
func (b *SendBlock) Link() common.Hash             { return b.Destination.AsRoot() }
func (b *SendBlock) Signature() []byte             { return b.Sig }
func (b *SendBlock) Work() uint64                  { return b.Nonce }
func (b *SendBlock) Details() Details              { return Details{Epoch: Epoch0, IsSend: true} }

// --- Receive ---

// ReceiveBlock claims a pending send into the account's chain.
type ReceiveBlock struct {
	PreviousHash common.Hash
	SourceHash   common.Hash
	Sig          []byte
	Nonce        uint64
	hash         common.Hash
}

func NewReceiveBlock(previous, source common.Hash, sig []byte, work uint64) *ReceiveBlock {
	b := &ReceiveBlock{PreviousHash: previous, SourceHash: source, Sig: sig, Nonce: work}
	b.hash = crypto.Hash256([]byte{byte(KindReceive)}, previous.Bytes(), source.Bytes())
	return b
}

func (b *ReceiveBlock) Kind() Kind                    { return KindReceive }
func (b *ReceiveBlock) Hash() common.Hash             { return b.hash }
func (b *ReceiveBlock) Root() common.Hash             { return b.PreviousHash }
func (b *ReceiveBlock) Account() common.Account       { return common.ZeroAccount }
func (b *ReceiveBlock) Previous() common.Hash         { return b.PreviousHash }
func (b *ReceiveBlock) Representative() common.Account { return common.ZeroAccount }
func (b *ReceiveBlock) Balance() common.Amount        { return common.Amount{} }
func (b *ReceiveBlock) Link() common.Hash             { return b.SourceHash }
func (b *ReceiveBlock) Signature() []byte             { return b.Sig }
func (b *ReceiveBlock) Work() uint64                  { return b.Nonce }
func (b *ReceiveBlock) Details() Details              { return Details{Epoch: Epoch0, IsReceive: true} }

// --- Change ---

// ChangeBlock alters the account's chosen representative without moving
// funds.
type ChangeBlock struct {
	PreviousHash common.Hash
	Rep          common.Account
	Sig          []byte
	Nonce        uint64
	hash         common.Hash
}

func NewChangeBlock(previous common.Hash, rep common.Account, sig []byte, work uint64) *ChangeBlock {
	b := &ChangeBlock{PreviousHash: previous, Rep: rep, Sig: sig, Nonce: work}
	b.hash = crypto.Hash256([]byte{byte(KindChange)}, previous.Bytes(), rep.Bytes())
	return b
}

func (b *ChangeBlock) Kind() Kind                    { return KindChange }
func (b *ChangeBlock) Hash() common.Hash             { return b.hash }
func (b *ChangeBlock) Root() common.Hash             { return b.PreviousHash }
func (b *ChangeBlock) Account() common.Account       { return common.ZeroAccount }
func (b *ChangeBlock) Previous() common.Hash         { return b.PreviousHash }
func (b *ChangeBlock) Representative() common.Account { return b.Rep }
func (b *ChangeBlock) Balance() common.Amount        { return common.Amount{} }
func (b *ChangeBlock) Link() common.Hash             { return common.ZeroHash }
func (b *ChangeBlock) Signature() []byte             { return b.Sig }
func (b *ChangeBlock) Work() uint64                  { return b.Nonce }
func (b *ChangeBlock) Details() Details              { return Details{Epoch: Epoch0} }

// --- State ---

// StateBlock is the unified, post-upgrade block format: every field an
// account chain needs is present explicitly, including the link, whose
// meaning (send destination, receive source, or an epoch-upgrade marker) is
// resolved by the block processor against the epoch link table.
type StateBlock struct {
	Acc          common.Account
	PreviousHash common.Hash
	Rep          common.Account
	Bal          common.Amount
	LinkField    common.Hash
	Sig          []byte
	Nonce        uint64
	hash         common.Hash
	det          Details
}

// stateBlockPreamble distinguishes state-block hash preimages from legacy
// block kinds and from each other network (Nano's own state block format
// reserves a full 32-byte preamble; one tag byte suffices here since the
// kind byte already participates in every variant's preimage).
var stateBlockPreamble = byte(KindState)

func NewStateBlock(account common.Account, previous common.Hash, rep common.Account, balance common.Amount, link common.Hash, sig []byte, work uint64, det Details) *StateBlock {
	b := &StateBlock{Acc: account, PreviousHash: previous, Rep: rep, Bal: balance, LinkField: link, Sig: sig, Nonce: work, det: det}
	bb := balance.Bytes32()
	b.hash = crypto.Hash256([]byte{stateBlockPreamble}, account.Bytes(), previous.Bytes(), rep.Bytes(), bb[:], link.Bytes())
	return b
}

func (b *StateBlock) Kind() Kind              { return KindState }
func (b *StateBlock) Hash() common.Hash       { return b.hash }
func (b *StateBlock) Account() common.Account { return b.Acc }
func (b *StateBlock) Previous() common.Hash   { return b.PreviousHash }
func (b *StateBlock) Representative() common.Account {
	return b.Rep
}
func (b *StateBlock) Balance() common.Amount { return b.Bal }
func (b *StateBlock) Link() common.Hash      { return b.LinkField }
func (b *StateBlock) Signature() []byte      { return b.Sig }
func (b *StateBlock) Work() uint64           { return b.Nonce }
func (b *StateBlock) Details() Details       { return b.det }

// Root is the previous hash, or the account key if this is the account's
// first (opening) state block.
func (b *StateBlock) Root() common.Hash {
	if b.PreviousHash.IsZero() {
		return b.Acc.AsRoot()
	}
	return b.PreviousHash
}
