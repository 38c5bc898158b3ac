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

// Package cache stores the most recent vote seen per (hash, representative)
// pair, so the confirmation solicitor can tell which representatives still
// need soliciting (spec §4.8). It is keyed by block hash with a bounded
// per-hash map of votes by account, and a higher sequence number from the same
// account always supersedes an earlier one — never the reverse, even if the
// later vote arrives first (spec §8 scenario 6).
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vaultchain/vaultchain/common"
	"github.com/vaultchain/vaultchain/core/types"
)

// DefaultMaxVotersPerHash bounds how many distinct representatives' votes
// are retained for a single hash.
const DefaultMaxVotersPerHash = 512

// DefaultMaxHashes bounds the number of distinct hash entries the cache
// retains, evicting the least recently used.
const DefaultMaxHashes = 1 << 16

// Cache is not safe for concurrent use: the hash-level LRU is internally
// locked, but the per-hash voter maps it holds are read and written without
// a lock.
type Cache struct {
	byHash        *lru.Cache[common.Hash, map[common.Account]*types.Vote]
	maxPerHash    int
}

func New(maxHashes, maxPerHash int) *Cache {
	if maxHashes <= 0 {
		maxHashes = DefaultMaxHashes
	}
	if maxPerHash <= 0 {
		maxPerHash = DefaultMaxVotersPerHash
	}
	l, _ := lru.New[common.Hash, map[common.Account]*types.Vote](maxHashes)
	return &Cache{byHash: l, maxPerHash: maxPerHash}
}

// Insert records v for every hash it covers, replacing any earlier vote
// from the same account for that hash only if v has a strictly higher
// sequence number (or no earlier vote from that account exists yet).
// Returns the set of hashes for which v actually superseded the stored
// entry (i.e. the hashes the solicitor should treat as freshly voted).
func (c *Cache) Insert(v *types.Vote) []common.Hash {
	var changed []common.Hash
	for _, h := range v.Hashes {
		voters, ok := c.byHash.Get(h)
		if !ok {
			voters = make(map[common.Account]*types.Vote)
			c.byHash.Add(h, voters)
		}
		existing, seen := voters[v.Account]
		if seen && !v.Supersedes(existing) {
			continue
		}
		if !seen && len(voters) >= c.maxPerHash {
			continue
		}
		voters[v.Account] = v
		changed = append(changed, h)
	}
	return changed
}

// VotersFor returns the latest vote seen from each representative for hash.
func (c *Cache) VotersFor(hash common.Hash) map[common.Account]*types.Vote {
	voters, ok := c.byHash.Get(hash)
	if !ok {
		return nil
	}
	out := make(map[common.Account]*types.Vote, len(voters))
	for k, v := range voters {
		out[k] = v
	}
	return out
}

// Len reports the number of distinct hashes tracked.
func (c *Cache) Len() int { return c.byHash.Len() }
