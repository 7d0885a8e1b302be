// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aqs implements an abstract queued synchronizer: a reusable
// substrate for building blocking locks and related synchronizers whose
// public behavior is defined by a small integer state word plus
// caller-supplied predicates that decide when the state permits
// acquisition.
//
// The framework owns a lock-free, CLH-style FIFO wait queue, the
// park/unpark blocking discipline used to put a goroutine to sleep while
// it waits, the propagation rules that avoid missed wakeups in shared
// (read-like) mode, the cancellation protocol for interrupted or timed
// out waiters, and a condition-variable subsystem that transfers waiters
// between a private condition queue and the main queue.
//
// Clients hold a Sync by value (embedded or as a field) and implement
// the Synchronizer interface to define
// what "acquired" and "released" mean for their state word; see package
// mutex for a worked example (a reentrant, optionally fair, mutex).
//
// aqs deliberately permits barging: a newly-arriving caller may succeed
// TryAcquire before enqueueing, even while other callers are already
// queued. This maximizes throughput at the cost of strict FIFO fairness;
// callers that need fairness consult HasQueuedPredecessors from their
// TryAcquire implementation (see mutex's fair variant).
package aqs
