// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package nodelock implements the per-node lock that the store package
// couples hand-over-hand while descending the tree.
//
// Unlike a general intention-lock hierarchy (where locking a node implies
// its whole subtree), lock-coupling only ever needs a node to be in one of
// two states at a time: S, shared among readers, and X, held by a single
// writer. A descending thread holds at most two of these locks
// simultaneously (the parent it arrived on, and the child it is acquiring)
// and releases the parent as soon as the child is held, so there is never a
// need to track an "intention" state along the whole root-to-node path.
//
// The transition matrix:
//
//	+---------------+----------+-----------+-----------+
//	|Request/Holding| Unlocked | Holding X | Holding S |
//	+---------------+----------+-----------+-----------+
//	|Request X      |   Yes    |    No     |    No     |
//	|Request S      |   Yes    |    No     |    Yes    |
//	+---------------+----------+-----------+-----------+
//
// If a transition is not allowed, the caller blocks until it is.
package nodelock

import (
	"sync"
	"sync/atomic"
)

// Lock is a two-state (shared/exclusive) lock. The zero value is not
// usable; construct one with New.
//
// The lock state is packed into a single uint64 that holders register in
// and release from with atomic compare-and-swap. SLock and XLock always
// acquire mtx, wait on c until the state is compatible, and register while
// still holding mtx; there is no lock-free acquire path. SUnlock and XUnlock
// release with a CAS alone and take mtx only to broadcast on c once the
// last holder of that mode is gone.
type Lock struct {
	mtx   sync.Mutex
	c     *sync.Cond
	state uint64
}

const xOffset uint64 = 0
const xMask uint64 = (1 << 32) - 1

const sOffset uint64 = 32
const sMask uint64 = 0xffffffffffffffff & ^xMask

const maxHolders = (1 << 32) - 1

func extractX(state uint64) uint64 {
	return (state & xMask) >> xOffset
}

func setX(state, val uint64) uint64 {
	return (state & ^xMask) | (val << xOffset)
}

func compatibleWithX(state uint64) bool {
	return state == 0
}

func extractS(state uint64) uint64 {
	return (state & sMask) >> sOffset
}

func setS(state, val uint64) uint64 {
	return (state & ^sMask) | (val << sOffset)
}

func compatibleWithS(state uint64) bool {
	return extractX(state) == 0
}

// New returns a ready-to-use Lock in the unlocked state.
func New() *Lock {
	var l Lock
	l.c = sync.NewCond(&l.mtx)
	return &l
}

// registerS registers the calling goroutine as a shared holder and reports
// whether doing so was compatible with the state the lock was already in.
func (l *Lock) registerS() bool {
	for {
		state := atomic.LoadUint64(&l.state)
		newState := setS(state, extractS(state)+1)
		if atomic.CompareAndSwapUint64(&l.state, state, newState) {
			return compatibleWithS(state)
		}
	}
}

// registerX registers the calling goroutine as the exclusive holder and
// reports whether doing so was compatible with the state the lock was
// already in.
func (l *Lock) registerX() bool {
	for {
		state := atomic.LoadUint64(&l.state)
		newState := setX(state, extractX(state)+1)
		if atomic.CompareAndSwapUint64(&l.state, state, newState) {
			return compatibleWithX(state)
		}
	}
}

// SLock takes the lock for shared (read) access. Blocks while the lock is
// held in X.
func (l *Lock) SLock() {
	l.mtx.Lock()
	for !compatibleWithS(atomic.LoadUint64(&l.state)) {
		l.c.Wait()
	}
	l.registerS()
	l.mtx.Unlock()
}

// SUnlock releases one shared holder's claim and wakes any goroutines
// blocked on a state transition if that was the last one.
func (l *Lock) SUnlock() {
	var val uint64
	for {
		state := atomic.LoadUint64(&l.state)
		val = extractS(state) - 1
		newState := setS(state, val)
		if atomic.CompareAndSwapUint64(&l.state, state, newState) {
			break
		}
	}
	if val == 0 {
		l.mtx.Lock()
		l.c.Broadcast()
		l.mtx.Unlock()
	}
}

// XLock takes the lock for exclusive (write) access. Blocks while the lock
// is held in X or S by anyone else.
func (l *Lock) XLock() {
	l.mtx.Lock()
	for !compatibleWithX(atomic.LoadUint64(&l.state)) {
		l.c.Wait()
	}
	l.registerX()
	l.mtx.Unlock()
}

// XUnlock releases exclusive ownership and wakes any goroutines blocked on
// a state transition.
func (l *Lock) XUnlock() {
	var val uint64
	for {
		state := atomic.LoadUint64(&l.state)
		val = extractX(state) - 1
		newState := setX(state, val)
		if atomic.CompareAndSwapUint64(&l.state, state, newState) {
			break
		}
	}
	if val == 0 {
		l.mtx.Lock()
		l.c.Broadcast()
		l.mtx.Unlock()
	}
}
