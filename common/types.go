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

// Package common holds the fixed-size value types shared across every
// subsystem: content hashes, account public keys, and balances.
package common

import (
	"encoding/hex"
	"errors"

	"github.com/holiman/uint256"
)

const HashLength = 32

// Hash is a 256-bit content-addressed identifier: a block hash, a root, or
// an epoch link value.
type Hash [HashLength]byte

var ZeroHash Hash

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) IsZero() bool   { return h == ZeroHash }
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashLength {
		return Hash{}, errors.New("common: hex string is not 32 bytes")
	}
	return BytesToHash(b), nil
}

// Account is an ed25519 public key identifying a chain owner or
// representative. It doubles as the root of that account's open block.
type Account [32]byte

var ZeroAccount Account

func BytesToAccount(b []byte) Account {
	var a Account
	copy(a[:], b)
	return a
}

func (a Account) Bytes() []byte  { return a[:] }
func (a Account) IsZero() bool   { return a == ZeroAccount }
func (a Account) String() string { return hex.EncodeToString(a[:]) }

// AsRoot views the account's public key bytes as a Hash, which is how an
// open block's root is formed (spec: root is the account key for an open
// block).
func (a Account) AsRoot() Hash { return Hash(a) }

// Amount is a raw balance. It wraps uint256.Int so arithmetic never wraps
// silently; callers must check Sub's ok return before trusting the result.
type Amount struct {
	v uint256.Int
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

func AmountFromBig(b []byte) Amount {
	var a Amount
	a.v.SetBytes(b)
	return a
}

func (a Amount) Bytes32() [32]byte { return a.v.Bytes32() }

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) Add(b Amount) Amount {
	var r Amount
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a-b and false if a < b (a negative spend, in ledger terms).
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.v.Lt(&b.v) {
		return Amount{}, false
	}
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r, true
}

// MulDiv returns a*mul/div, evaluated at full 256-bit precision so scaling
// by a small integer ratio (e.g. a bootstrap-threshold fraction) never
// truncates early.
func (a Amount) MulDiv(mul, div uint64) Amount {
	var r Amount
	var m, d uint256.Int
	m.SetUint64(mul)
	d.SetUint64(div)
	r.v.Mul(&a.v, &m)
	if !d.IsZero() {
		r.v.Div(&r.v, &d)
	}
	return r
}

func (a Amount) String() string { return a.v.Dec() }

func (a Amount) IsZero() bool { return a.v.IsZero() }

// Network is the single true global: the selected network tag, set once
// before any subsystem initializes (spec design notes §9).
type Network uint8

const (
	NetworkLive Network = iota
	NetworkBeta
	NetworkTest
)

var currentNetwork = NetworkLive

// SetNetwork sets the process-wide network tag. Must be called before any
// subsystem is constructed; it is not safe to change afterward.
func SetNetwork(n Network) { currentNetwork = n }

func CurrentNetwork() Network { return currentNetwork }
