// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import (
	"sync/atomic"
	"time"
)

// Synchronizer is the set of hooks a concrete client supplies to define
// what its state word means. A client holds a Sync by value (embedded
// or as a field) and implements this interface on itself, then calls
// Sync.Init(self) so the framework can call back into the client's
// predicates. Hooks must not block, and they may read and CAS the
// synchronizer's state via the State/CompareAndSwapState methods on
// that Sync.
//
// A client that only needs a subset of these hooks may embed
// Unimplemented to get ErrUnsupported panics for the rest, rather than
// writing its own stubs.
type Synchronizer interface {
	// TryAcquire attempts exclusive acquisition on behalf of g; it must
	// be internally atomic and returns whether it succeeded. g is
	// supplied (rather than relying on ambient thread identity, as the
	// systems this framework is modeled on do) so a client can
	// recognize reentrant acquisition by its current holder.
	TryAcquire(g *G, arg int64) bool
	// TryRelease returns true iff the synchronizer is now fully
	// released, i.e. a subsequent TryAcquire may succeed.
	TryRelease(g *G, arg int64) bool
	// TryAcquireShared returns a negative value on failure, zero on
	// success with no guaranteed surplus, or a positive value on
	// success where a subsequent shared acquire may also succeed.
	// Shared mode has no notion of ownership, so no G is threaded
	// through it.
	TryAcquireShared(arg int64) int64
	// TryReleaseShared returns true iff a waiting acquire (shared or
	// exclusive) may now succeed.
	TryReleaseShared(arg int64) bool
	// IsHeldExclusively is required only by clients that use
	// conditions; it reports whether g currently holds the synchronizer
	// exclusively.
	IsHeldExclusively(g *G) bool
}

// Sync is the abstract queued synchronizer itself: an atomic state word,
// a lock-free CLH wait queue, and the acquire/release engine that
// operates them. It is embedded by value in a concrete client.
type Sync struct {
	state atomic.Int32
	head  atomic.Pointer[Node]
	tail  atomic.Pointer[Node]

	client        Synchronizer
	spinThreshold time.Duration
}

// Init binds client as the synchronizer's hook implementation. It must
// be called before any other method, typically from the client's
// constructor.
func (s *Sync) Init(client Synchronizer) {
	s.client = client
}

// SetSpinThreshold overrides the remaining-time cutoff below which a
// timed acquire busy-waits instead of parking. The zero value means
// "use the default" (~1 microsecond).
func (s *Sync) SetSpinThreshold(d time.Duration) {
	s.spinThreshold = d
}

func (s *Sync) spin() time.Duration {
	if s.spinThreshold > 0 {
		return s.spinThreshold
	}
	return defaultSpinThreshold
}

// State returns the current value of the synchronization state word.
func (s *Sync) State() int32 { return s.state.Load() }

// SetState performs a plain write of the state word. It is only sound
// when the calling goroutine is known to hold the synchronizer
// exclusively: the goroutine that just won acquisition is the only one
// that may ever perform such a write.
func (s *Sync) SetState(v int32) { s.state.Store(v) }

// CompareAndSwapState atomically sets the state word to new if it
// currently equals old, reporting whether it did so.
func (s *Sync) CompareAndSwapState(old, new int32) bool {
	return s.state.CompareAndSwap(old, new)
}

// --------------------------------------------------------------------
// Exclusive mode

// Acquire acquires in exclusive mode, ignoring interrupts: an interrupt
// observed during the wait does not abort it, and is re-asserted on g
// once the synchronizer has been acquired.
func (s *Sync) Acquire(g *G, arg int64) {
	if s.client.TryAcquire(g, arg) {
		return
	}
	node := s.addWaiter(g, false)
	if s.acquireQueued(node, g, arg) {
		g.Interrupt()
	}
}

// AcquireInterruptibly acquires in exclusive mode, aborting with
// ErrInterrupted if the calling goroutine is interrupted either before
// the call or while it is queued.
func (s *Sync) AcquireInterruptibly(g *G, arg int64) error {
	if g.clearInterrupted() {
		return ErrInterrupted
	}
	if s.client.TryAcquire(g, arg) {
		return nil
	}
	node := s.addWaiter(g, false)
	return s.acquireQueuedInterruptibly(node, g, arg)
}

// TryAcquireNanos attempts exclusive acquisition, failing with
// (false, nil) if timeout elapses first, or (false, ErrInterrupted) if
// interrupted.
func (s *Sync) TryAcquireNanos(g *G, arg int64, timeout time.Duration) (bool, error) {
	if g.clearInterrupted() {
		return false, ErrInterrupted
	}
	if s.client.TryAcquire(g, arg) {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	node := s.addWaiter(g, false)
	return s.acquireQueuedNanos(node, g, arg, deadline, s.spin())
}

// Release releases in exclusive mode on behalf of g. If TryRelease
// reports full release, the head's successor (if any, and if promised
// a wakeup) is unparked.
func (s *Sync) Release(g *G, arg int64) bool {
	if !s.client.TryRelease(g, arg) {
		return false
	}
	if h := s.head.Load(); h != nil && h.waitStatus.Load() != statusZero {
		s.unparkSuccessor(h)
	}
	return true
}

func (s *Sync) setHead(node *Node) {
	s.head.Store(node)
	node.g.Store(nil)
	node.prev.Store(nil)
}

// parkAndCheckInterrupt parks the calling goroutine and reports whether
// it was found interrupted afterward, clearing the flag either way. This
// is the suspension point of the untimed acquire loops, exclusive and
// shared; the timed loops park with a deadline instead.
func (s *Sync) parkAndCheckInterrupt(g *G) bool {
	g.sem.park()
	return g.clearInterrupted()
}

// acquireQueued is the uninterruptible retry loop: having failed the
// barging TryAcquire and been enqueued, repeatedly check whether our
// predecessor is head and TryAcquire again, parking in between via the
// park-gate predicate. Interrupts observed along the way are recorded
// but not acted on until the caller decides.
func (s *Sync) acquireQueued(node *Node, g *G, arg int64) (interrupted bool) {
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() && s.client.TryAcquire(g, arg) {
			s.setHead(node)
			pred.next.Store(nil)
			failed = false
			return interrupted
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

func (s *Sync) acquireQueuedInterruptibly(node *Node, g *G, arg int64) error {
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() && s.client.TryAcquire(g, arg) {
			s.setHead(node)
			pred.next.Store(nil)
			failed = false
			return nil
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

func (s *Sync) acquireQueuedNanos(node *Node, g *G, arg int64, deadline time.Time, spinThreshold time.Duration) (bool, error) {
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(node)
		}
	}()
	var attempts uint
	for {
		pred := node.prev.Load()
		if pred == s.head.Load() && s.client.TryAcquire(g, arg) {
			s.setHead(node)
			pred.next.Store(nil)
			failed = false
			return true, nil
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
