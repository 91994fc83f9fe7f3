// Copyright 2022 The mlockmon Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mmap

import (
	"errors"
	"testing"
)

func TestMapAnonymous(t *testing.T) {
	tcases := []struct {
		name        string
		length      int
		failMap     bool
		expectError bool
	}{
		{
			name:   "single page",
			length: 4096,
		}, {
			name:   "odd length",
			length: 4096*3 + 17,
		}, {
			name:        "kernel refuses mapping",
			length:      4096,
			failMap:     true,
			expectError: true,
		}, {
			name:        "zero length",
			length:      0,
			expectError: true,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ops := NewStubMemops(4096)
			ops.FailMap = tc.failMap
			r, err := NewMapperOps(ops).MapAnonymous(tc.length)
			if tc.expectError {
				if err == nil {
					t.Fatalf("expected error, got region of %d bytes", r.Len())
				}
				mapErr := &MapError{}
				if !errors.As(err, &mapErr) {
					t.Errorf("expected MapError, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapAnonymous(%d): %v", tc.length, err)
			}
			defer r.Close()
			if r.Len() != tc.length {
				t.Errorf("expected length %d, got %d", tc.length, r.Len())
			}
			if r.Backing() != BackingAnonymous {
				t.Errorf("expected anonymous backing, got %v", r.Backing())
			}
		})
	}
}

func TestLockError(t *testing.T) {
	ops := NewStubMemops(4096)
	ops.FailLock = true
	r, err := NewMapperOps(ops).MapAnonymous(4096)
	if err != nil {
		t.Fatalf("MapAnonymous: %v", err)
	}
	defer r.Close()

	err = r.Lock()
	if err == nil {
		t.Fatalf("expected lock refusal")
	}
	lockErr := &LockError{}
	if !errors.As(err, &lockErr) {
		t.Errorf("expected LockError, got %T: %v", err, err)
	}
	if r.Locked() {
		t.Errorf("region claims to be locked after refused mlock")
	}
}

func TestLockUnlock(t *testing.T) {
	ops := NewStubMemops(4096)
	r, err := NewMapperOps(ops).MapAnonymous(2 * 4096)
	if err != nil {
		t.Fatalf("MapAnonymous: %v", err)
	}
	defer r.Close()

	if err := r.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !r.Locked() {
		t.Errorf("region not locked after Lock")
	}
	r.Unlock()
	r.Unlock()
	if r.Locked() {
		t.Errorf("region still locked after Unlock")
	}
	if ops.Locks != 1 || ops.Unlocks != 2 {
		t.Errorf("expected 1 lock / 2 unlock calls, got %d/%d", ops.Locks, ops.Unlocks)
	}
}

func TestPageInAnonymous(t *testing.T) {
	ops := NewStubMemops(4096)
	r, err := NewMapperOps(ops).MapAnonymous(4 * 4096)
	if err != nil {
		t.Fatalf("MapAnonymous: %v", err)
	}
	defer r.Close()

	// anonymous page-in goes through lock+unlock and leaves the region unlocked
	if err := r.PageIn(); err != nil {
		t.Fatalf("PageIn: %v", err)
	}
	if r.Locked() {
		t.Errorf("region locked after PageIn")
	}
	if ops.Locks != 1 || ops.Unlocks != 1 {
		t.Errorf("expected 1 lock / 1 unlock call, got %d/%d", ops.Locks, ops.Unlocks)
	}

	// PageIn is idempotent
	if err := r.PageIn(); err != nil {
		t.Fatalf("second PageIn: %v", err)
	}
}

func TestPageInFileBacked(t *testing.T) {
	tcases := []struct {
		name     string
		pageSize int
		length   int
	}{
		{
			name:     "whole pages",
			pageSize: 4096,
			length:   3 * 4096,
		}, {
			name:     "partial trailing page",
			pageSize: 4096,
			length:   4096 + 100,
		}, {
			name:     "unknown page size falls back",
			pageSize: 0,
			length:   10000,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ops := NewStubMemops(tc.pageSize)
			data, err := ops.MapFile(-1, tc.length)
			if err != nil {
				t.Fatalf("MapFile: %v", err)
			}
			r := &Region{ops: ops, data: data, backing: BackingFile}
			defer r.Close()

			// the bounce-buffer strategy must not lock anything
			if err := r.PageIn(); err != nil {
				t.Fatalf("PageIn: %v", err)
			}
			if ops.Locks != 0 {
				t.Errorf("file-backed PageIn locked pages: %d mlock calls", ops.Locks)
			}
		})
	}
}

func TestFill(t *testing.T) {
	tcases := []struct {
		name          string
		pageSize      int
		length        int
		expectTouched int
	}{
		{
			name:          "exact pages",
			pageSize:      4096,
			length:        3 * 4096,
			expectTouched: 3,
		}, {
			name:          "partial trailing page",
			pageSize:      4096,
			length:        2*4096 + 1,
			expectTouched: 3,
		}, {
			name:          "shorter than one page",
			pageSize:      4096,
			length:        100,
			expectTouched: 1,
		}, {
			name:          "unknown page size falls back to 4096",
			pageSize:      0,
			length:        2 * 4096,
			expectTouched: 2,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ops := NewStubMemops(tc.pageSize)
			r, err := NewMapperOps(ops).MapAnonymous(tc.length)
			if err != nil {
				t.Fatalf("MapAnonymous: %v", err)
			}
			defer r.Close()

			r.Fill(42)

			pageSize := tc.pageSize
			if pageSize == 0 {
				pageSize = fallbackPageSize
			}
			touched := 0
			for off, b := range r.data {
				switch {
				case b == 42 && off%pageSize == 0:
					touched++
				case b != 0:
					t.Fatalf("unexpected byte %#x at offset %d", b, off)
				}
			}
			if touched != tc.expectTouched {
				t.Errorf("expected %d touched pages, got %d", tc.expectTouched, touched)
			}
		})
	}
}

func TestCloseExactlyOnce(t *testing.T) {
	ops := NewStubMemops(4096)
	r, err := NewMapperOps(ops).MapAnonymous(4096)
	if err != nil {
		t.Fatalf("MapAnonymous: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close not a no-op: %v", err)
	}
	if ops.Unmaps != 1 {
		t.Errorf("expected exactly 1 munmap, got %d", ops.Unmaps)
	}
	if ops.LiveMappings() != 0 {
		t.Errorf("%d mappings leaked", ops.LiveMappings())
	}
}
