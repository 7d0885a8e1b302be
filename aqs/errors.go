// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import "errors"

// Error kinds surfaced by the framework. Callers should use
// errors.Is against these sentinels; the concrete errors returned may
// wrap additional context.
var (
	// ErrIllegalMonitorState is returned when a ConditionObject method
	// (Await and its variants, Signal, SignalAll, or an inspection
	// method) is invoked by a goroutine that does not hold the
	// synchronizer exclusively. It is also the panic value when the
	// release inside an await fails. Sync.Release itself reports only a
	// bool; ownership checks on release are left to the client's
	// TryRelease (package mutex panics with this error there).
	ErrIllegalMonitorState = errors.New("aqs: illegal monitor state")

	// ErrUnsupported is the panic value of the default Synchronizer hook
	// implementations embedded via Unimplemented, for clients that did
	// not override a hook they ended up calling.
	ErrUnsupported = errors.New("aqs: unsupported synchronizer operation")

	// ErrInterrupted is returned by interruptible acquires that observe
	// interruption before or during the wait, and by condition waits
	// interrupted before a signal reaches them.
	ErrInterrupted = errors.New("aqs: interrupted")

	// errIllegalNilPredecessor indicates a queue invariant violation: a
	// non-head node was found with a nil prev link. This should be
	// unreachable.
	errIllegalNilPredecessor = errors.New("aqs: non-head node has nil predecessor")
)

// OverflowError is a fatal, non-recoverable condition: a reentrant
// client detected that incrementing its hold count would wrap the state
// word. It is designed to be panicked with, not returned.
type OverflowError struct {
	State int32
}

func (e *OverflowError) Error() string {
	return "aqs: reentrant hold count overflow"
}

// Unimplemented is embeddable by a Synchronizer implementation that only
// needs to override a subset of the five hooks. Any hook not overridden
// panics with ErrUnsupported.
type Unimplemented struct{}

func (Unimplemented) TryAcquire(g *G, arg int64) bool  { panic(ErrUnsupported) }
func (Unimplemented) TryRelease(g *G, arg int64) bool  { panic(ErrUnsupported) }
func (Unimplemented) TryAcquireShared(arg int64) int64 { panic(ErrUnsupported) }
func (Unimplemented) TryReleaseShared(arg int64) bool  { panic(ErrUnsupported) }
func (Unimplemented) IsHeldExclusively(g *G) bool      { panic(ErrUnsupported) }
