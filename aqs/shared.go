// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import "time"

// --------------------------------------------------------------------
// Shared mode

// AcquireShared acquires in shared mode, ignoring interrupts.
func (s *Sync) AcquireShared(g *G, arg int64) {
	if r := s.client.TryAcquireShared(arg); r < 0 {
		if s.doAcquireShared(g, arg) {
			g.Interrupt()
		}
	}
}

// AcquireSharedInterruptibly acquires in shared mode, aborting with
// ErrInterrupted if the calling goroutine is interrupted either before
// the call or while it is queued.
func (s *Sync) AcquireSharedInterruptibly(g *G, arg int64) error {
	if g.clearInterrupted() {
		return ErrInterrupted
	}
	if r := s.client.TryAcquireShared(arg); r < 0 {
		return s.doAcquireSharedInterruptibly(g, arg)
	}
	return nil
}

// TryAcquireSharedNanos attempts shared acquisition, failing with
// (false, nil) if timeout elapses first, or (false, ErrInterrupted) if
// interrupted.
func (s *Sync) TryAcquireSharedNanos(g *G, arg int64, timeout time.Duration) (bool, error) {
	if g.clearInterrupted() {
		return false, ErrInterrupted
	}
	if r := s.client.TryAcquireShared(arg); r >= 0 {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	node := s.addWaiter(g, true)
	return s.doAcquireSharedNanos(node, g, arg, deadline, s.spin())
}

// ReleaseShared releases in shared mode. If TryReleaseShared reports a
// state change that may unblock waiters, propagation is kicked off from
// the current head.
func (s *Sync) ReleaseShared(arg int64) bool {
	if !s.client.TryReleaseShared(arg) {
		return false
	}
	s.doReleaseShared()
	return true
}

// doAcquireShared is the uninterruptible shared retry loop: symmetric
// with acquireQueued, except that on success it propagates the wakeup
// to further shared waiters via setHeadAndPropagate instead of merely
// installing the new head.
func (s *Sync) doAcquireShared(g *G, arg int64) (interrupted bool) {
	node := s.addWaiter(g, true)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() {
			if r := s.client.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(node, r)
				pred.next.Store(nil)
				failed = false
				return interrupted
			}
		}
		if s.shouldParkAfterFailedAcquire(pred, node) {
			if s.parkAndCheckInterrupt(g) {
				interrupted = true
			}
		} else {
			attempts = spinDelay(attempts)
		}
	}
}

func (s *Sync) doAcquireSharedInterruptibly(g *G, arg int64) error {
	node := s.addWaiter(g, true)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() {
			if r := s.client.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(node, r)
				pred.next.Store(nil)
				failed = false
				return nil
			}
		}
		if s.shouldParkAfterFailedAcquire(pred, node) {
			if s.parkAndCheckInterrupt(g) {
				return ErrInterrupted
			}
		} else {
			attempts = spinDelay(attempts)
		}
	}
}

func (s *Sync) doAcquireSharedNanos(node *Node, g *G, arg int64, deadline time.Time, spinThreshold time.Duration) (bool, error) {
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() {
			if r := s.client.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(node, r)
				pred.next.Store(nil)
				failed = false
				return true, nil
			}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if s.shouldParkAfterFailedAcquire(pred, node) && remaining > spinThreshold {
			g.sem.parkDeadline(deadline)
			if g.clearInterrupted() {
				return false, ErrInterrupted
			}
		} else {
			attempts = spinDelay(attempts)
		}
	}
}

// setHeadAndPropagate installs node as the new head after a successful
// shared acquire, and propagates a further wakeup to node's successor
// when doing so looks safe or necessary. The checks on the stale
// propagate-count snapshot (propagate), the new head's wait status, and
// the old head's wait status are deliberately conservative: a positive
// propagate count, or a negative (SIGNAL or PROPAGATE) wait status on
// either head, is reason enough to propagate, because a missed
// propagation produces a stuck waiter while a spurious one only wakes a
// goroutine that will immediately re-check and re-park.
func (s *Sync) setHeadAndPropagate(node *Node, propagate int64) {
	h := s.head.Load()
	s.setHead(node)

	// Reread head after setHead: a concurrent release may have already
	// moved the new head's waitStatus to SIGNAL/PROPAGATE between the
	// store above and this check, and missing that leaves the next shared
	// waiter stranded.
	newH := s.head.Load()
	if propagate > 0 || h == nil || h.waitStatus.Load() < 0 || newH == nil || newH.waitStatus.Load() < 0 {
		if succ := node.next.Load(); succ == nil || succ.isShared() {
			s.doReleaseShared()
		}
	}
}

// doReleaseShared propagates a release through the queue from head:
// unparking head's successor if head is in SIGNAL state, or marking
// head PROPAGATE if head is at zero so a concurrently-arriving
// setHeadAndPropagate knows to keep going. The CAS-and-recheck-head
// loop is what lets this run concurrently with other releases and
// acquisitions without losing a wakeup.
func (s *Sync) doReleaseShared() {
	for {
		h := s.head.Load()
		if h != nil && h != s.tail.Load() {
			ws := h.waitStatus.Load()
			if ws == statusSignal {
				if !h.waitStatus.CompareAndSwap(statusSignal, statusZero) {
					continue // lost the race to a concurrent waiter; retry
				}
				s.unparkSuccessor(h)
			} else if ws == statusZero {
				if !h.waitStatus.CompareAndSwap(statusZero, statusPropagate) {
					continue // lost the race; retry
				}
			}
		}
		if h == s.head.Load() {
			return
		}
		// Head changed while we worked; loop again to re-propagate.
	}
}
