// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aqs

import (
	"runtime"
	"time"
)

// defaultSpinThreshold is the remaining-duration cutoff below which a
// timed acquire busy-waits instead of parking: parking plus timer setup
// costs more than this, so it isn't worth it for very short remaining
// waits.
const defaultSpinThreshold = time.Microsecond

// spinDelay is used in the acquire retry loops to back off: a short busy
// loop for the first few attempts, then yielding the goroutine to the
// scheduler. Mirrors nsync's spinDelay/spinloop backoff shape.
//
// Usage:
//
//	var attempts uint
//	for tryingSomething {
//	        attempts = spinDelay(attempts)
//	}
func spinDelay(attempts uint) uint {
	if attempts < 7 {
		for i := 0; i != 1<<attempts; i++ {
		}
		attempts++
	} else {
		runtime.Gosched()
	}
	return attempts
}
