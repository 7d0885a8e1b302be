// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import "sync/atomic"

// Wait status values recorded on a Node. The specific negative/positive
// split matters: cancellation is the only positive value, so "> 0" is a
// cheap cancelled-check throughout the queue code.
const (
	statusCancelled int32 = 1  // waiter has given up; never blocks again
	statusZero      int32 = 0  // default
	statusSignal    int32 = -1 // successor has been (or must be) unparked on release
	statusCondition int32 = -2 // node is currently on a condition queue
	statusPropagate int32 = -3 // a shared release should keep propagating
)

// sharedMarker is the distinguished sentinel stored in a main-queue
// node's nextWaiter field to mark the node as a shared-mode waiter. An
// exclusive-mode waiter leaves nextWaiter nil instead. Condition-queue
// nodes reuse the same field for their singly-linked next pointer, which
// is safe because a node is never simultaneously on both queues.
var sharedMarker = &Node{}

// Node is one entry in the main CLH wait queue or a condition queue.
//
// prev is authoritative in the main queue: any observer that reached a
// node via tail can always walk prev back to head without gaps. next is
// a best-effort optimization that may transiently lag reality (set only
// after the CAS that publishes a node as the new tail), so code that
// needs precision falls back to a backward scan from tail whenever next
// reads nil but a successor is known to exist.
type Node struct {
	g          atomic.Pointer[G]    // waiting goroutine's token; nil on dummy/dequeued nodes
	waitStatus atomic.Int32         // one of the status* constants above
	prev       atomic.Pointer[Node] // predecessor in the main queue
	next       atomic.Pointer[Node] // best-effort successor in the main queue
	nextWaiter atomic.Pointer[Node] // condition-queue link, or sharedMarker/nil in the main queue
}

func newNode(g *G, shared bool) *Node {
	n := &Node{}
	n.g.Store(g)
	if shared {
		n.nextWaiter.Store(sharedMarker)
	}
	return n
}

func (n *Node) isShared() bool {
	return n.nextWaiter.Load() == sharedMarker
}

func (n *Node) predecessor() (*Node, error) {
	p := n.prev.Load()
	if p == nil {
		return nil, errIllegalNilPredecessor
	}
	return p, nil
}
