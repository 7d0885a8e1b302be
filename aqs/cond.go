// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import (
	"runtime"
	"time"

	"github.com/go-aqs/aqs/vlog"
)

// ConditionObject is a condition variable bound to the exclusive mode
// of a single Sync, in the style of a monitor condition: Await releases
// the synchronizer and blocks, Signal/SignalAll move a waiter (or all
// waiters) from this condition's private queue onto the main wait
// queue to contend for re-acquisition.
//
// A goroutine must hold the synchronizer exclusively to call any method
// on a ConditionObject; violating this returns ErrIllegalMonitorState.
// The condition queue itself is singly-linked via Node.nextWaiter and
// is only ever touched while the caller holds the lock, so it needs no
// atomics of its own beyond those Node already carries.
type ConditionObject struct {
	sync  *Sync
	first *Node
	last  *Node
}

// NewCondition creates a condition variable associated with s. Clients
// normally expose this via a constructor method rather than calling it
// directly; see package mutex for a worked example.
func NewCondition(s *Sync) *ConditionObject {
	return &ConditionObject{sync: s}
}

func (c *ConditionObject) checkHeld(g *G) error {
	if !c.sync.client.IsHeldExclusively(g) {
		return ErrIllegalMonitorState
	}
	return nil
}

// addConditionWaiter appends a fresh CONDITION-status node for g to the
// tail of this condition's private queue, unlinking any stale cancelled
// nodes it finds at the tail first.
func (c *ConditionObject) addConditionWaiter(g *G) *Node {
	if t := c.last; t != nil && t.waitStatus.Load() != statusCondition {
		c.unlinkCancelledWaiters()
	}
	node := &Node{}
	node.g.Store(g)
	node.waitStatus.Store(statusCondition)
	if c.last == nil {
		c.first = node
	} else {
		c.last.nextWaiter.Store(node)
	}
	c.last = node
	return node
}

// unlinkCancelledWaiters sweeps the condition queue for nodes that gave
// up waiting without being signalled (i.e. are no longer in CONDITION
// state), splicing them out.
func (c *ConditionObject) unlinkCancelledWaiters() {
	var trail *Node
	for n := c.first; n != nil; {
		next := n.nextWaiter.Load()
		if n.waitStatus.Load() != statusCondition {
			n.nextWaiter.Store(nil)
			if trail == nil {
				c.first = next
			} else {
				trail.nextWaiter.Store(next)
			}
			if next == nil {
				c.last = trail
			}
		} else {
			trail = n
		}
		n = next
	}
}

// transferForSignal moves node from the condition queue to the main
// wait queue, the way Signal/SignalAll do for each node they touch. It
// returns false if node was concurrently cancelled (CAS out of
// CONDITION failed) before the transfer could happen, in which case the
// caller should move on to the next waiter rather than treating this as
// a successful signal.
func (s *Sync) transferForSignal(node *Node) bool {
	if !node.waitStatus.CompareAndSwap(statusCondition, statusZero) {
		return false
	}
	vlog.VI(3).Infof("aqs: transferring node=%p from condition queue to sync queue", node)
	pred := s.enqueue(node)
	if ws := pred.waitStatus.Load(); ws > 0 || !pred.waitStatus.CompareAndSwap(ws, statusSignal) {
		// Predecessor cancelled or refused the SIGNAL promise: wake node
		// directly so it doesn't wait on a promise nobody will keep.
		if g := node.g.Load(); g != nil {
			g.sem.unpark()
		}
	}
	return true
}

// Signal moves the longest-waiting goroutine on this condition, if any,
// to the main wait queue so it can contend for re-acquisition. g must
// identify the goroutine that currently holds the synchronizer
// exclusively.
func (c *ConditionObject) Signal(g *G) error {
	if err := c.checkHeld(g); err != nil {
		return err
	}
	if first := c.first; first != nil {
		c.doSignal(first)
	}
	return nil
}

func (c *ConditionObject) doSignal(first *Node) {
	for {
		next := first.nextWaiter.Load()
		c.first = next
		if c.first == nil {
			c.last = nil
		}
		first.nextWaiter.Store(nil)
		if c.sync.transferForSignal(first) || c.first == nil {
			return
		}
		first = c.first
	}
}

// SignalAll moves every goroutine currently waiting on this condition
// to the main wait queue. g must identify the goroutine that currently
// holds the synchronizer exclusively.
func (c *ConditionObject) SignalAll(g *G) error {
	if err := c.checkHeld(g); err != nil {
		return err
	}
	first := c.first
	c.first, c.last = nil, nil
	for first != nil {
		next := first.nextWaiter.Load()
		first.nextWaiter.Store(nil)
		c.sync.transferForSignal(first)
		first = next
	}
	return nil
}

// isOnSyncQueue reports whether node is currently on the main wait
// queue. A CONDITION-status node or one with no prev link is not; one
// with a next link certainly is; otherwise a backward scan from tail is
// needed because next may not have been published yet.
func (s *Sync) isOnSyncQueue(node *Node) bool {
	if node.waitStatus.Load() == statusCondition || node.prev.Load() == nil {
		return false
	}
	if node.next.Load() != nil {
		return true
	}
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if t == node {
			return true
		}
	}
	return false
}

// fullyRelease releases the synchronizer regardless of current hold
// depth, returning the prior state so the caller can restore it later,
// and panics with ErrIllegalMonitorState if release fails (meaning the
// caller did not actually hold the lock).
func (s *Sync) fullyRelease(g *G, node *Node) int64 {
	saved := int64(s.State())
	if s.Release(g, saved) {
		return saved
	}
	node.waitStatus.Store(statusCancelled)
	panic(ErrIllegalMonitorState)
}

// Await releases the synchronizer and blocks the calling goroutine
// until signalled or interrupted, then re-acquires at the prior hold
// depth before returning. Unlike AwaitUninterruptibly, an interrupt
// observed before any signal reaches the waiter aborts the await with
// ErrInterrupted once re-acquisition completes; an interrupt that
// arrives after a signal has claimed the waiter, or during
// re-acquisition, is re-asserted on g instead.
func (c *ConditionObject) Await(g *G) error {
	if err := c.checkHeld(g); err != nil {
		return err
	}
	node := c.addConditionWaiter(g)
	saved := c.sync.fullyRelease(g, node)

	var throwInterrupt, reinterrupt bool
	for !c.sync.isOnSyncQueue(node) {
		g.sem.park()
		if g.clearInterrupted() {
			if c.sync.transferAfterCancelledWait(node) {
				throwInterrupt = true
			} else {
				reinterrupt = true
			}
			break
		}
	}
	if c.sync.acquireQueued(node, g, saved) && !throwInterrupt {
		reinterrupt = true
	}
	if node.nextWaiter.Load() != nil {
		c.unlinkCancelledWaiters()
	}
	if throwInterrupt {
		return ErrInterrupted
	}
	if reinterrupt {
		g.Interrupt()
	}
	return nil
}

// AwaitUninterruptibly is Await but ignores interruption: an interrupt
// observed during the wait is re-asserted on g after re-acquisition
// instead of aborting the wait.
func (c *ConditionObject) AwaitUninterruptibly(g *G) error {
	if err := c.checkHeld(g); err != nil {
		return err
	}
	node := c.addConditionWaiter(g)
	saved := c.sync.fullyRelease(g, node)

	var interrupted bool
	for !c.sync.isOnSyncQueue(node) {
		g.sem.park()
		if g.clearInterrupted() {
			interrupted = true
		}
	}
	if c.sync.acquireQueued(node, g, saved) {
		interrupted = true
	}
	if node.nextWaiter.Load() != nil {
		c.unlinkCancelledWaiters()
	}
	if interrupted {
		g.Interrupt()
	}
	return nil
}

// AwaitNanos is Await with a deadline: it returns (false, nil) if the
// deadline elapses before a signal transfers the waiter to the main
// queue. In every case it re-acquires the synchronizer at the prior
// hold depth before returning. Interrupts are handled as in Await, with
// (false, ErrInterrupted) returned when the await is aborted.
func (c *ConditionObject) AwaitNanos(g *G, timeout time.Duration) (bool, error) {
	if err := c.checkHeld(g); err != nil {
		return false, err
	}
	node := c.addConditionWaiter(g)
	saved := c.sync.fullyRelease(g, node)
	deadline := time.Now().Add(timeout)

	var throwInterrupt, reinterrupt, timedOut bool
	for !c.sync.isOnSyncQueue(node) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			timedOut = c.sync.transferAfterCancelledWait(node)
			break
		}
		g.sem.parkDeadline(deadline)
		if g.clearInterrupted() {
			if c.sync.transferAfterCancelledWait(node) {
				throwInterrupt = true
			} else {
				reinterrupt = true
			}
			break
		}
	}
	if c.sync.acquireQueued(node, g, saved) && !throwInterrupt {
		reinterrupt = true
	}
	if node.nextWaiter.Load() != nil {
		c.unlinkCancelledWaiters()
	}
	if throwInterrupt {
		return false, ErrInterrupted
	}
	if reinterrupt {
		g.Interrupt()
	}
	return !timedOut, nil
}

// transferAfterCancelledWait handles the race between a timed-out
// waiter and a concurrent Signal: if the node can still be CASed out of
// CONDITION state, the timeout won the race and the node is spliced
// onto the main queue directly (no signal was delivered, so no need to
// go through transferForSignal's SIGNAL-promise bookkeeping); otherwise
// a signal already claimed it and the caller must wait for that
// transfer to finish publishing node onto the main queue.
func (s *Sync) transferAfterCancelledWait(node *Node) bool {
	if node.waitStatus.CompareAndSwap(statusCondition, statusZero) {
		s.enqueue(node)
		return true
	}
	for !s.isOnSyncQueue(node) {
		// Another goroutine's Signal is still in flight; yield until its
		// enqueue onto the main queue becomes visible.
		runtime.Gosched()
	}
	return false
}

// HasWaiters reports whether any goroutine is currently waiting on this
// condition. The caller must hold the synchronizer exclusively.
func (c *ConditionObject) HasWaiters(g *G) (bool, error) {
	if err := c.checkHeld(g); err != nil {
		return false, err
	}
	for n := c.first; n != nil; n = n.nextWaiter.Load() {
		if n.waitStatus.Load() == statusCondition {
			return true, nil
		}
	}
	return false, nil
}

// WaitQueueLength returns the number of goroutines currently waiting on
// this condition. The caller must hold the synchronizer exclusively.
func (c *ConditionObject) WaitQueueLength(g *G) (int, error) {
	if err := c.checkHeld(g); err != nil {
		return 0, err
	}
	n := 0
	for cur := c.first; cur != nil; cur = cur.nextWaiter.Load() {
		if cur.waitStatus.Load() == statusCondition {
			n++
		}
	}
	return n, nil
}

// WaitingGoroutines returns the tokens of goroutines currently waiting
// on this condition. The caller must hold the synchronizer exclusively.
func (c *ConditionObject) WaitingGoroutines(g *G) ([]*G, error) {
	if err := c.checkHeld(g); err != nil {
		return nil, err
	}
	var gs []*G
	for cur := c.first; cur != nil; cur = cur.nextWaiter.Load() {
		if cur.waitStatus.Load() == statusCondition {
			if g := cur.g.Load(); g != nil {
				gs = append(gs, g)
			}
		}
	}
	return gs, nil
}
