// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command aqsdemo exercises package mutex under contention, reporting
// how often a worker found the lock already held versus acquired it
// uncontended.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-aqs/aqs/aqs"
	"github.com/go-aqs/aqs/internal/tunables"
	"github.com/go-aqs/aqs/mutex"
	"github.com/go-aqs/aqs/vlog"
)

var flags tunables.Tunables

func init() {
	if err := tunables.RegisterFlags(pflag.CommandLine, &flags); err != nil {
		panic(err)
	}
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Parse()
	if err := vlog.ConfigureLibraryLoggerFromFlags(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var m *mutex.Mutex
	if flags.Fair {
		m = mutex.NewFair()
	} else {
		m = mutex.New()
	}
	m.SetSpinThreshold(flags.SpinThreshold)

	var wg sync.WaitGroup
	var contended, total int64

	for i := 0; i < flags.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			g := aqs.NewG()
			for n := 0; n < 10; n++ {
				wasLocked := m.IsLocked()
				m.Lock(g)
				atomic.AddInt64(&total, 1)
				if wasLocked {
					atomic.AddInt64(&contended, 1)
				}
				vlog.Infof("worker %d holding lock (iteration %d)", id, n)
				time.Sleep(flags.HoldTime)
				m.Unlock(g)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("%d workers, %d/%d lock acquisitions observed the lock already held\n",
		flags.Workers, contended, total)
	return 0
}
