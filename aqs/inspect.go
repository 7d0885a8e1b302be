// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

// HasQueuedGoroutines reports whether any goroutine is currently
// waiting to acquire, including one that may be about to park.
func (s *Sync) HasQueuedGoroutines() bool {
	h := s.head.Load()
	return h != nil && h != s.tail.Load()
}

// HasContended reports whether any goroutine has ever contended for
// this synchronizer, i.e. whether the queue has ever been initialized.
func (s *Sync) HasContended() bool {
	return s.head.Load() != nil
}

// FirstQueuedGoroutine returns the token of the goroutine that has been
// waiting longest, or nil if none is waiting. It favors the common case
// (a fully-published first waiter) but falls back to a scan when a
// racing enqueue leaves the usual shortcut inconclusive.
func (s *Sync) FirstQueuedGoroutine() *G {
	h := s.head.Load()
	t := s.tail.Load()
	if h == nil || h == t {
		return nil
	}
	if first := h.next.Load(); first != nil {
		if g := first.g.Load(); g != nil {
			return g
		}
	}
	return s.fullGetFirstQueuedGoroutine()
}

// fullGetFirstQueuedGoroutine walks forward from head via next, and
// falls back to a backward scan from tail if that traversal comes up
// empty due to a node publishing prev before next.
func (s *Sync) fullGetFirstQueuedGoroutine() *G {
	h := s.head.Load()
	for n := h.next.Load(); n != nil; n = n.next.Load() {
		if g := n.g.Load(); g != nil {
			return g
		}
		if n == h {
			break
		}
	}
	var first *Node
	for t := s.tail.Load(); t != nil && t != h; t = t.prev.Load() {
		if g := t.g.Load(); g != nil {
			first = t
		}
	}
	if first != nil {
		return first.g.Load()
	}
	return nil
}

// IsQueued reports whether g is currently waiting to acquire, in either
// mode.
func (s *Sync) IsQueued(g *G) bool {
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if t.g.Load() == g {
			return true
		}
	}
	return false
}

// HasQueuedPredecessors reports whether any goroutine is queued ahead of
// where a new arrival would go. It takes no caller identity, so a
// goroutine that is itself the first queued waiter also gets true.
// Fair clients consult this from TryAcquire to forgo barging when
// waiters already exist, avoiding starvation at the cost of throughput
// (package mutex also compares FirstQueuedGoroutine with the caller).
//
// The order of reads matters: tail is read before head, so a
// concurrently-completing enqueue can only make this return a false
// positive (pointlessly defer to a queue that has just emptied), never
// a false negative (barge past a real waiter).
func (s *Sync) HasQueuedPredecessors() bool {
	t := s.tail.Load()
	h := s.head.Load()
	if h == t {
		return false
	}
	first := h.next.Load()
	if first == nil {
		return s.fullGetFirstQueuedGoroutine() != nil
	}
	return true
}

// QueueLength returns the number of goroutines currently waiting to
// acquire, in either mode. This is an estimate: the queue may change
// concurrently with the scan.
func (s *Sync) QueueLength() int {
	n := 0
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if t.g.Load() != nil {
			n++
		}
	}
	return n
}

// QueuedGoroutines returns the tokens of goroutines currently waiting
// to acquire, in either mode. This is an estimate.
func (s *Sync) QueuedGoroutines() []*G {
	var gs []*G
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if g := t.g.Load(); g != nil {
			gs = append(gs, g)
		}
	}
	return gs
}

// ExclusiveQueuedGoroutines returns the tokens of goroutines currently
// waiting to acquire in exclusive mode. This is an estimate.
func (s *Sync) ExclusiveQueuedGoroutines() []*G {
	var gs []*G
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if t.isShared() {
			continue
		}
		if g := t.g.Load(); g != nil {
			gs = append(gs, g)
		}
	}
	return gs
}

// SharedQueuedGoroutines returns the tokens of goroutines currently
// waiting to acquire in shared mode. This is an estimate.
func (s *Sync) SharedQueuedGoroutines() []*G {
	var gs []*G
	for t := s.tail.Load(); t != nil; t = t.prev.Load() {
		if !t.isShared() {
			continue
		}
		if g := t.g.Load(); g != nil {
			gs = append(gs, g)
		}
	}
	return gs
}
