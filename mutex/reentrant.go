// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mutex provides a reentrant mutual-exclusion lock built as a
// client of package aqs. It supports both a non-fair mode, which allows
// a newly-arriving goroutine to barge ahead of goroutines already
// queued for the lock, and a fair mode, which always grants the lock to
// the longest-waiting goroutine.
package mutex

import (
	"time"

	"github.com/go-aqs/aqs/aqs"
	"github.com/go-aqs/aqs/vlog"
)

// Mutex is a reentrant lock: the same goroutine (identified by the *aqs.G
// it presents) may call Lock again while it already holds the lock, and
// must call Unlock the same number of times to release it.
//
// The zero value is not usable; construct with New or NewFair.
type Mutex struct {
	sync aqs.Sync
	fair bool
	// owner is the token of the goroutine currently holding the lock
	// exclusively, or nil. It is only ever written by the holder itself
	// (while the state transition that grants or releases the lock is
	// what actually publishes ownership), so reads from other goroutines
	// only ever see a stale-but-safe value.
	owner *aqs.G
}

// New creates a non-fair reentrant mutex: a goroutine attempting to
// lock may barge ahead of goroutines already queued, which gives higher
// throughput at the cost of fairness guarantees.
func New() *Mutex {
	m := &Mutex{}
	m.sync.Init(m)
	return m
}

// NewFair creates a reentrant mutex that grants access strictly in
// arrival order: a goroutine attempting to lock always defers to any
// goroutine already queued.
func NewFair() *Mutex {
	m := &Mutex{fair: true}
	m.sync.Init(m)
	return m
}

// Lock acquires the mutex, blocking until it does so. g must be a
// token unique to the calling goroutine; see aqs.NewG.
func (m *Mutex) Lock(g *aqs.G) {
	m.sync.Acquire(g, 1)
}

// LockInterruptibly acquires the mutex, aborting with aqs.ErrInterrupted
// if g is interrupted before or during the wait.
func (m *Mutex) LockInterruptibly(g *aqs.G) error {
	return m.sync.AcquireInterruptibly(g, 1)
}

// TryLock attempts to acquire the mutex without blocking, reporting
// whether it succeeded. A non-fair mutex may succeed here even with
// other goroutines queued; a fair mutex only barges this way for a
// goroutine that already holds the lock (reentrant acquisition never
// queues).
func (m *Mutex) TryLock(g *aqs.G) bool {
	state := m.sync.State()
	if state == 0 {
		if m.fair && m.sync.HasQueuedPredecessors() && m.sync.FirstQueuedGoroutine() != g {
			return false
		}
		if m.sync.CompareAndSwapState(0, 1) {
			m.owner = g
			return true
		}
		return false
	}
	if m.owner == g {
		next := state + 1
		if next < 0 {
			panic(&aqs.OverflowError{State: state})
		}
		m.sync.SetState(next)
		return true
	}
	return false
}

// TryLockTimeout attempts to acquire the mutex, waiting up to timeout.
// It returns (false, nil) if timeout elapses first and
// (false, aqs.ErrInterrupted) if g is interrupted during the wait.
func (m *Mutex) TryLockTimeout(g *aqs.G, timeout time.Duration) (bool, error) {
	return m.sync.TryAcquireNanos(g, 1, timeout)
}

// Unlock releases one level of the mutex's hold count, fully releasing
// it once the count reaches zero. Calling Unlock from a goroutine that
// does not hold the lock panics with aqs.ErrIllegalMonitorState, the
// same way an unsynchronized monitor exit does.
func (m *Mutex) Unlock(g *aqs.G) {
	m.sync.Release(g, 1)
}

// HoldCount returns the number of times the calling goroutine would
// need to call Unlock before the lock is fully released, or zero if it
// does not hold the lock. g identifies the calling goroutine.
func (m *Mutex) HoldCount(g *aqs.G) int {
	if !m.IsHeldByGoroutine(g) {
		return 0
	}
	return int(m.sync.State())
}

// IsLocked reports whether any goroutine currently holds the lock.
func (m *Mutex) IsLocked() bool {
	return m.sync.State() != 0
}

// IsHeldByGoroutine reports whether g currently holds the lock.
func (m *Mutex) IsHeldByGoroutine(g *aqs.G) bool {
	return m.sync.State() != 0 && m.owner == g
}

// SetSpinThreshold overrides the remaining-time cutoff below which
// TryLockTimeout busy-waits instead of parking. The zero value means
// "use the default".
func (m *Mutex) SetSpinThreshold(d time.Duration) {
	m.sync.SetSpinThreshold(d)
}

// NewCondition creates a condition variable associated with this
// mutex's lock state. The calling goroutine must hold the mutex
// exclusively before calling any method on the returned condition.
func (m *Mutex) NewCondition() *aqs.ConditionObject {
	return aqs.NewCondition(&m.sync)
}

// --------------------------------------------------------------------
// aqs.Synchronizer implementation

// TryAcquire implements aqs.Synchronizer. A non-fair mutex barges: it
// always attempts the CAS from unlocked to locked regardless of queued
// waiters. A fair mutex defers to HasQueuedPredecessors first, so it
// only barges for a reentrant re-acquisition by the current owner.
func (m *Mutex) TryAcquire(g *aqs.G, arg int64) bool {
	state := m.sync.State()
	if state == 0 {
		if m.fair && m.sync.HasQueuedPredecessors() && m.sync.FirstQueuedGoroutine() != g {
			return false
		}
		if m.sync.CompareAndSwapState(0, int32(arg)) {
			m.owner = g
			return true
		}
		return false
	}
	if m.owner != g {
		return false
	}
	next := state + int32(arg)
	if next < 0 {
		vlog.VI(2).Infof("mutex: hold count overflow at state %d", state)
		panic(&aqs.OverflowError{State: state})
	}
	m.sync.SetState(next)
	return true
}

// TryRelease implements aqs.Synchronizer, decrementing the hold count
// and reporting whether the mutex is now fully released. Called by a
// goroutine that does not hold the lock, it panics with
// aqs.ErrIllegalMonitorState.
func (m *Mutex) TryRelease(g *aqs.G, arg int64) bool {
	if m.owner != g {
		vlog.VI(2).Infof("mutex: TryRelease called by non-owner goroutine %p", g)
		panic(aqs.ErrIllegalMonitorState)
	}
	next := m.sync.State() - int32(arg)
	free := next == 0
	if free {
		m.owner = nil
	}
	m.sync.SetState(next)
	return free
}

// TryAcquireShared implements aqs.Synchronizer; mutex has no shared
// mode, so it always reports failure.
func (m *Mutex) TryAcquireShared(arg int64) int64 { return -1 }

// TryReleaseShared implements aqs.Synchronizer; mutex has no shared
// mode, so release is never reached this way.
func (m *Mutex) TryReleaseShared(arg int64) bool { panic(aqs.ErrUnsupported) }

// IsHeldExclusively implements aqs.Synchronizer, backing condition
// variable use.
func (m *Mutex) IsHeldExclusively(g *aqs.G) bool {
	return m.sync.State() != 0 && m.owner == g
}
