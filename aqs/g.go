// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import (
	"sync/atomic"
	"time"
)

// G is an opaque, goroutine-unique identity token. Go has no stable,
// portable notion of "the current goroutine" (unlike a Thread object in
// the systems this framework is modeled on), so callers obtain one
// explicit token per logical goroutine with NewG and thread it through
// every Acquire/Release call. A G also doubles as the per-goroutine
// park/unpark channel: only one Acquire can be in flight against a given
// G at a time, exactly as a real thread can only be parked once.
//
// Typical usage is to create one G per goroutine, near the top of its
// function:
//
//	func worker(m *mutex.Mutex) {
//	        g := aqs.NewG()
//	        m.Lock(g)
//	        defer m.Unlock(g)
//	        ...
//	}
type G struct {
	sem         parker
	interrupted atomic.Bool
}

// NewG allocates a fresh goroutine identity token.
func NewG() *G {
	g := &G{}
	g.sem.init()
	return g
}

// Interrupt marks g as interrupted and wakes it if it is currently
// parked. It is idempotent: multiple interrupts before the flag is
// observed and cleared collapse into one.
func (g *G) Interrupt() {
	g.interrupted.Store(true)
	g.sem.unpark()
}

// Interrupted reports whether g has been interrupted since the last
// call to clearInterrupted (or since creation).
func (g *G) Interrupted() bool {
	return g.interrupted.Load()
}

// clearInterrupted clears and returns the previous interrupted state,
// mirroring Thread.interrupted() semantics: observing the flag consumes
// it.
func (g *G) clearInterrupted() bool {
	return g.interrupted.Swap(false)
}

// --------------------------------------------------------------------

// parker is a binary semaphore used to block and wake a single
// goroutine. Its shape follows nsync's binarySemaphore: park (P) waits
// for a permit, unpark (V) makes one available, saturating at one so
// that two unparks collapse into a single wakeup.
type parker struct {
	ch chan struct{}
}

func (p *parker) init() {
	p.ch = make(chan struct{}, 1)
}

// park blocks until a permit is available, consuming it.
func (p *parker) park() {
	<-p.ch
}

// parkDeadline blocks until a permit is available or deadline elapses,
// reporting whether it timed out. A zero deadline means "no deadline":
// behave like park.
func (p *parker) parkDeadline(deadline time.Time) (timedOut bool) {
	if deadline.IsZero() {
		p.park()
		return false
	}
	d := time.Until(deadline)
	if d <= 0 {
		select {
		case <-p.ch:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.ch:
		return false
	case <-timer.C:
		return true
	}
}

// unpark ensures a permit is available, without blocking.
func (p *parker) unpark() {
	select {
	case p.ch <- struct{}{}:
	default: // already has a permit pending; idempotent
	}
}
