// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vlog_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-aqs/aqs/vlog"
)

func TestExplicitlySetFlags(t *testing.T) {
	tmp := filepath.Join(os.TempDir(), "foo")
	if err := flag.Set("log_dir", tmp); err != nil {
		t.Fatalf("flag.Set(log_dir): %v", err)
	}
	if err := flag.Set("vmodule", "foo=2"); err != nil {
		t.Fatalf("flag.Set(vmodule): %v", err)
	}

	flags := vlog.Log.ExplicitlySetFlags()
	if v, ok := flags["log_dir"]; !ok || v != tmp {
		t.Fatalf("log_dir was supposed to be %v, got %v", tmp, v)
	}
	if v, ok := flags["vmodule"]; !ok || v != "foo=2" {
		t.Fatalf("vmodule was supposed to be foo=2, got %v", v)
	}
	if f := flag.Lookup("max_stack_buf_size"); f == nil {
		t.Fatalf("max_stack_buf_size is not a flag")
	}
	if _, ok := flags["max_stack_buf_size"]; ok {
		t.Fatalf("max_stack_buf_size unexpectedly reported as explicitly set")
	}
}
