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

// Package wire fixes the peer message framing and the two on-wire count
// invariants the core depends on (spec §6): confirm_req carries at most 7
// (hash, root) pairs, a vote carries at most 12 hashes. Byte-exact protocol
// encoding beyond this framing is explicitly out of scope (spec §1).
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/vaultchain/vaultchain/common"
)

// MaxConfirmReqPairs is the on-wire contract for a single confirm_req
// message.
const MaxConfirmReqPairs = 7

var ErrTooManyPairs = errors.New("wire: confirm_req carries more than MaxConfirmReqPairs pairs")

// Kind identifies a message's payload type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindKeepalive
	KindPublish
	KindConfirmReq
	KindConfirmAck
	KindBulkPull
	KindBulkPush
	KindFrontierReq
	KindTelemetryReq
	KindTelemetryAck
)

// HeaderSize is the framing header's fixed wire size in bytes.
const HeaderSize = 9

// Header is the fixed framing prefix preceding every payload. The dedup
// filter (spec §4.2) only ever sees the payload, never this header.
type Header struct {
	Magic          [2]byte
	Network        byte
	VersionMax     byte
	VersionUsing   byte
	VersionMin     byte
	Type           Kind
	Extensions     uint16
}

func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = h.Magic[0], h.Magic[1]
	buf[2] = h.Network
	buf[3] = h.VersionMax
	buf[4] = h.VersionUsing
	buf[5] = h.VersionMin
	buf[6] = byte(h.Type)
	binary.BigEndian.PutUint16(buf[7:9], h.Extensions)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.New("wire: short header")
	}
	return Header{
		Magic:        [2]byte{b[0], b[1]},
		Network:      b[2],
		VersionMax:   b[3],
		VersionUsing: b[4],
		VersionMin:   b[5],
		Type:         Kind(b[6]),
		Extensions:   binary.BigEndian.Uint16(b[7:9]),
	}, nil
}

// HashRootPair is one (hash, root) entry in a confirm_req.
type HashRootPair struct {
	Hash common.Hash
	Root common.Hash
}

// ConfirmReq is the request-aggregator's inbound/outbound unit (spec §4.10).
type ConfirmReq struct {
	Pairs []HashRootPair
}

// NewConfirmReq enforces the MaxConfirmReqPairs wire contract.
func NewConfirmReq(pairs []HashRootPair) (*ConfirmReq, error) {
	if len(pairs) == 0 || len(pairs) > MaxConfirmReqPairs {
		return nil, ErrTooManyPairs
	}
	return &ConfirmReq{Pairs: append([]HashRootPair(nil), pairs...)}, nil
}

// FrontierReq opens a frontier_req exchange (spec §4.11): StartAccount is
// the first account to stream from, Age bounds how recently an account may
// have changed to be included (0 means unbounded), and Count bounds how
// many frontiers the server will return (0 means unbounded).
type FrontierReq struct {
	StartAccount common.Account
	Age          uint32
	Count        uint32
}

// FrontierPair is one (account, frontier-hash) entry in a frontier_req
// response stream. A zero Account terminates the stream.
type FrontierPair struct {
	Account common.Account
	Head    common.Hash
}
