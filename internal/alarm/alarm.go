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

// Package alarm is the node-wide deferred task scheduler (spec §5): a
// single dedicated goroutine holding a sleep-sorted min-heap of pending
// callbacks, woken either by its own timer or by a newly scheduled task
// landing earlier than what it was already waiting for. No ready-made
// deadline-heap library was found anywhere in the example pack (see
// DESIGN.md), so this uses container/heap directly, exactly the shape the
// request aggregator (spec §4.10) needs too.
package alarm

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	at    time.Time
	fn    func()
	index int
}

type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *taskHeap) Push(x interface{}) { t := x.(*task); t.index = len(*h); *h = append(*h, t) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Alarm runs one dedicated goroutine servicing a heap of deferred calls.
type Alarm struct {
	mu      sync.Mutex
	heap    taskHeap
	wake    chan struct{}
	stopped chan struct{}
	done    chan struct{}
}

func New() *Alarm {
	a := &Alarm{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Schedule runs fn at or after at.
func (a *Alarm) Schedule(at time.Time, fn func()) {
	a.mu.Lock()
	heap.Push(&a.heap, &task{at: at, fn: fn})
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// After is a convenience wrapper over Schedule using a relative delay.
func (a *Alarm) After(d time.Duration, fn func()) {
	a.Schedule(time.Now().Add(d), fn)
}

func (a *Alarm) loop() {
	defer close(a.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		a.mu.Lock()
		var wait time.Duration
		if a.heap.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(a.heap[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		a.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-a.stopped:
			return
		case <-a.wake:
			continue
		case <-timer.C:
			a.fireDue()
		}
	}
}

func (a *Alarm) fireDue() {
	now := time.Now()
	var due []*task
	a.mu.Lock()
	for a.heap.Len() > 0 && !a.heap[0].at.After(now) {
		due = append(due, heap.Pop(&a.heap).(*task))
	}
	a.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

// Stop signals the scheduler loop to exit. It does not wait for
// already-fired callbacks to finish; callers needing that should use their
// own WaitGroup inside fn.
func (a *Alarm) Stop() {
	select {
	case <-a.stopped:
	default:
		close(a.stopped)
	}
	<-a.done
}
