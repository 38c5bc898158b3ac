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

// Package crypto wraps the signature and hashing primitives blocks and
// votes rely on: Ed25519 signatures and Blake2b-256 content hashing.
package crypto

import (
	"crypto/ed25519"

	"github.com/vaultchain/vaultchain/common"
	"golang.org/x/crypto/blake2b"
)

// Hash256 returns the Blake2b-256 digest of the concatenation of fields, the
// block/vote canonical hash function referenced throughout spec §3.
func Hash256(fields ...[]byte) common.Hash {
	h, _ := blake2b.New256(nil)
	for _, f := range fields {
		h.Write(f)
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether sig is a valid Ed25519 signature over msg by pub.
func Verify(pub common.Account, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// Sign signs msg with priv, a 64-byte Ed25519 private key.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}
