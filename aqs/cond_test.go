// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs_test

import (
	"testing"
	"time"

	"github.com/go-aqs/aqs/aqs"
)

// boundedQueue is a fixed-capacity FIFO built directly on a testLock and
// a pair of its conditions, exercising the queue-transfer protocol
// between ConditionObject.Await and the lock's own wait queue.
type boundedQueue struct {
	lock     *testLock
	nonEmpty *aqs.ConditionObject
	nonFull  *aqs.ConditionObject
	data     []int
	limit    int
}

func newBoundedQueue(limit int) *boundedQueue {
	l := newTestLock()
	return &boundedQueue{
		lock:     l,
		nonEmpty: aqs.NewCondition(&l.Sync),
		nonFull:  aqs.NewCondition(&l.Sync),
		limit:    limit,
	}
}

func (q *boundedQueue) put(g *aqs.G, v int) {
	q.lock.Acquire(g, 1)
	for len(q.data) == q.limit {
		if err := q.nonFull.Await(g); err != nil {
			q.lock.Release(g, 1)
			panic(err)
		}
	}
	q.data = append(q.data, v)
	q.nonEmpty.Signal(g)
	q.lock.Release(g, 1)
}

func (q *boundedQueue) get(g *aqs.G) int {
	q.lock.Acquire(g, 1)
	for len(q.data) == 0 {
		if err := q.nonEmpty.Await(g); err != nil {
			q.lock.Release(g, 1)
			panic(err)
		}
	}
	v := q.data[0]
	q.data = q.data[1:]
	q.nonFull.Signal(g)
	q.lock.Release(g, 1)
	return v
}

func TestConditionProducerConsumer(t *testing.T) {
	q := newBoundedQueue(4)
	const count = 2000

	done := make(chan struct{})
	go func() {
		g := aqs.NewG()
		for i := 0; i < count; i++ {
			q.put(g, i)
		}
		close(done)
	}()

	g := aqs.NewG()
	for i := 0; i < count; i++ {
		v := q.get(g)
		if v != i {
			t.Fatalf("got %d, want %d", v, i)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer never finished")
	}
}

func TestSignalAllWakesEveryWaiter(t *testing.T) {
	const nWaiters = 6
	l := newTestLock()
	cond := aqs.NewCondition(&l.Sync)

	woken := make(chan int, nWaiters)
	for i := 0; i < nWaiters; i++ {
		go func(id int) {
			g := aqs.NewG()
			l.Acquire(g, 1)
			cond.Await(g)
			l.Release(g, 1)
			woken <- id
		}(i)
	}

	// Give every goroutine a chance to park on the condition before
	// broadcasting.
	time.Sleep(50 * time.Millisecond)

	signaller := aqs.NewG()
	l.Acquire(signaller, 1)
	if err := cond.SignalAll(signaller); err != nil {
		t.Fatalf("SignalAll: %v", err)
	}
	l.Release(signaller, 1)

	for i := 0; i < nWaiters; i++ {
		select {
		case <-woken:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d waiters woke up", i, nWaiters)
		}
	}
}

func TestAwaitRequiresHeldLock(t *testing.T) {
	l := newTestLock()
	cond := aqs.NewCondition(&l.Sync)
	g := aqs.NewG()

	if err := cond.Await(g); err != aqs.ErrIllegalMonitorState {
		t.Fatalf("Await on unheld lock returned %v, want ErrIllegalMonitorState", err)
	}
}
