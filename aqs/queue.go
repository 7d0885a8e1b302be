// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import "github.com/go-aqs/aqs/vlog"

// enqueue CASes node onto the tail of the main queue, lazily allocating
// the dummy head if the queue has never been touched. It returns node's
// predecessor.
//
// node.prev is published (with the write below) strictly before the CAS
// that installs node as the new tail, so any observer that reaches node
// via tail can always walk prev backward safely; node.next is only set
// afterward and so may transiently read nil even once a successor
// exists — callers that need precision fall back to a backward scan
// from tail.
func (s *Sync) enqueue(node *Node) *Node {
	for {
		t := s.tail.Load()
		if t == nil {
			// Queue never contended before: install a dummy head/tail.
			h := &Node{}
			if s.head.CompareAndSwap(nil, h) {
				s.tail.Store(h)
			}
			continue
		}
		node.prev.Store(t)
		if s.tail.CompareAndSwap(t, node) {
			t.next.Store(node)
			return t
		}
	}
}

// addWaiter builds a node for g (marked for shared mode iff shared) and
// enqueues it, trying the common case of an already-initialized queue
// first before falling back to the general enqueue loop.
func (s *Sync) addWaiter(g *G, shared bool) *Node {
	node := newNode(g, shared)
	vlog.VI(2).Infof("aqs: enqueue goroutine %p shared=%v", g, shared)
	t := s.tail.Load()
	if t != nil {
		node.prev.Store(t)
		if s.tail.CompareAndSwap(t, node) {
			t.next.Store(node)
			return node
		}
	}
	s.enqueue(node)
	return node
}

// unparkSuccessor wakes n's successor, if any. Because next links can
// lag reality, the search falls back to a backward scan from
// tail whenever the forward link is missing or points at a cancelled
// node — next-only traversal is unsound here.
func (s *Sync) unparkSuccessor(n *Node) {
	if ws := n.waitStatus.Load(); ws < 0 {
		n.waitStatus.CompareAndSwap(ws, statusZero) // best-effort; failure is fine
	}

	succ := n.next.Load()
	if succ == nil || succ.waitStatus.Load() > 0 {
		succ = nil
		for t := s.tail.Load(); t != nil && t != n; t = t.prev.Load() {
			if t.waitStatus.Load() <= 0 {
				succ = t
			}
		}
	}
	if succ != nil {
		if g := succ.g.Load(); g != nil {
			vlog.VI(3).Infof("aqs: unparking goroutine %p", g)
			g.sem.unpark()
		}
	}
}

// shouldParkAfterFailedAcquire decides, after a failed TryAcquire,
// whether the caller should actually park now. It also performs the
// queue hygiene this decision requires: skipping past
// cancelled predecessors, and committing pred to SIGNAL before telling
// the caller it is safe to park, so a waiter never parks without a live
// predecessor that has promised to wake it.
func (s *Sync) shouldParkAfterFailedAcquire(pred, node *Node) bool {
	ws := pred.waitStatus.Load()
	if ws == statusSignal {
		return true
	}
	if ws > 0 {
		for pred.waitStatus.Load() > 0 {
			pred = pred.prev.Load()
		}
		node.prev.Store(pred)
		return false
	}
	pred.waitStatus.CompareAndSwap(ws, statusSignal)
	return false
}

// cancelAcquire abandons node's wait: it is excised from the queue when
// possible, or its successor is woken to find a new live predecessor
// otherwise. Cancellation is lazy by design — cancelled
// interior nodes may be left temporarily linked, to be cleaned up
// opportunistically by shouldParkAfterFailedAcquire.
func (s *Sync) cancelAcquire(node *Node) {
	if node == nil {
		return
	}
	vlog.VI(2).Infof("aqs: cancelAcquire node=%p", node)
	node.g.Store(nil)

	pred := node.prev.Load()
	for pred.waitStatus.Load() > 0 {
		pred = pred.prev.Load()
	}
	node.prev.Store(pred)
	predNext := pred.next.Load()

	node.waitStatus.Store(statusCancelled)

	switch {
	case node == s.tail.Load() && s.tail.CompareAndSwap(node, pred):
		pred.next.CompareAndSwap(predNext, nil)
	case pred != s.head.Load() && predCanSignal(pred) && pred.g.Load() != nil:
		if next := node.next.Load(); next != nil && next.waitStatus.Load() <= 0 {
			pred.next.CompareAndSwap(predNext, next)
		}
	default:
		s.unparkSuccessor(node)
	}

	// Self-link sentinel: off-queue, but prev may still be read by a
	// concurrent backward scan. See isOnSyncQueue in cond.go.
	node.next.Store(node)
}

// predCanSignal reports whether pred already promises to wake its
// successor, committing it to that promise via CAS if it hasn't yet.
func predCanSignal(pred *Node) bool {
	ws := pred.waitStatus.Load()
	return ws == statusSignal || (ws <= 0 && pred.waitStatus.CompareAndSwap(ws, statusSignal))
}
