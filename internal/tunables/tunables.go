// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tunables defines the runtime knobs of the aqsdemo command,
// grouped in one struct so they can be registered as flags without
// threading individual flags through by hand.
package tunables

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/go-aqs/aqs/cmd/pflagvar"
)

// Tunables groups the command-line-configurable parameters of the
// mutex demo. Fields are tagged for flagvar/pflagvar struct-based
// registration: flag:"name,default,usage".
type Tunables struct {
	SpinThreshold time.Duration `flag:"spin-threshold,1us,remaining-time cutoff below which a timed lock attempt busy-waits instead of parking"`
	Fair          bool          `flag:"fair,false,use a strictly first-in-first-out mutex instead of a barging one"`
	Workers       int           `flag:"workers,4,number of goroutines contending for the demo mutex"`
	HoldTime      time.Duration `flag:"hold-time,1ms,how long each worker holds the lock before releasing it"`
}

// RegisterFlags registers t's fields as flags on fs, with names as
// given by their flag tags.
func RegisterFlags(fs *pflag.FlagSet, t *Tunables) error {
	return pflagvar.RegisterFlagsInStruct(fs, "flag", t, nil, nil)
}
