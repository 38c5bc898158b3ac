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

// Package peerset implements the peer exclusion list (spec §4.13): a
// capped, score-backed ban list with super-linearly growing exclusion
// windows.
package peerset

import (
	"sync"
	"time"
)

const ScoreLimit = 2

// Set is safe for concurrent use.
type Set struct {
	mu      sync.Mutex
	items   map[string]*item
	sizeMax int
	now     func() time.Time
}

type item struct {
	score        int
	excludeUntil time.Time
}

// New caps the set at min(sizeMax, int(peerCount*0.5)), per spec §4.13.
func New(sizeMax int, peerCount int) *Set {
	cap := sizeMax
	if half := peerCount / 2; half < cap {
		cap = half
	}
	if cap < 1 {
		cap = 1
	}
	return &Set{
		items:   make(map[string]*item),
		sizeMax: cap,
		now:     time.Now,
	}
}

// Add bumps endpoint's misbehavior score. Once the score reaches
// ScoreLimit, the endpoint is excluded for one hour; each subsequent hit
// multiplies the window: excludeUntil = now + 1h * score * 2.
func (s *Set) Add(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[endpoint]
	if !ok {
		if len(s.items) >= s.sizeMax {
			s.evictOldestLocked()
		}
		it = &item{}
		s.items[endpoint] = it
	}
	it.score++
	switch {
	case it.score == ScoreLimit:
		it.excludeUntil = s.now().Add(time.Hour)
	case it.score > ScoreLimit:
		it.excludeUntil = s.now().Add(time.Duration(it.score) * 2 * time.Hour)
	}
}

// Check reports whether endpoint is currently excluded, evicting entries
// whose exclusion (plus a further 1h*score grace window) has fully lapsed.
func (s *Set) Check(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[endpoint]
	if !ok || it.excludeUntil.IsZero() {
		return false
	}
	now := s.now()
	if now.Before(it.excludeUntil) {
		return true
	}
	if now.After(it.excludeUntil.Add(time.Duration(it.score) * time.Hour)) {
		delete(s.items, endpoint)
	}
	return false
}

func (s *Set) evictOldestLocked() {
	var oldestKey string
	var oldestUntil time.Time
	first := true
	for k, v := range s.items {
		if first || v.excludeUntil.Before(oldestUntil) {
			oldestKey, oldestUntil, first = k, v.excludeUntil, false
		}
	}
	if oldestKey != "" {
		delete(s.items, oldestKey)
	}
}

// Len returns the number of tracked endpoints.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
