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

package session

import (
	"testing"

	"github.com/memtools/mlockmon/pkg/mmap"
	"github.com/memtools/mlockmon/pkg/testutils"
)

const testQuantum = 16 * 4096

func newTestSession() (*Session, *mmap.StubMemops) {
	ops := mmap.NewStubMemops(4096)
	return NewWithMapper(testQuantum, mmap.NewMapperOps(ops)), ops
}

func TestAddRemoveLocked(t *testing.T) {
	tcases := []struct {
		name        string
		adds        int
		removes     int
		expectCount int
	}{
		{
			name:        "empty session",
			expectCount: 0,
		}, {
			name:        "three adds",
			adds:        3,
			expectCount: 3,
		}, {
			name:        "net adds",
			adds:        3,
			removes:     2,
			expectCount: 1,
		}, {
			name:        "more removes than adds",
			adds:        2,
			removes:     5,
			expectCount: 0,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			s, ops := newTestSession()
			defer s.Close()

			for i := 0; i < tc.adds; i++ {
				if err := s.Add(HeapLocked); err != nil {
					t.Fatalf("Add(HeapLocked): %v", err)
				}
			}
			for i := 0; i < tc.removes; i++ {
				removed := s.Remove(HeapLocked)
				if want := i < tc.adds; removed != want {
					t.Errorf("Remove #%d returned %v, expected %v", i, removed, want)
				}
			}

			if count := s.Count(HeapLocked); count != tc.expectCount {
				t.Errorf("expected %d locked regions, got %d", tc.expectCount, count)
			}
			if size := s.TotalSize(HeapLocked); size != uint64(tc.expectCount)*testQuantum {
				t.Errorf("expected locked total %d, got %d", tc.expectCount*testQuantum, size)
			}
			if s.TotalSize(HeapUnlocked) != 0 {
				t.Errorf("unlocked heap grew from locked operations")
			}
			if leaked := ops.LiveMappings() - tc.expectCount; leaked != 0 {
				t.Errorf("%d regions leaked or missing", leaked)
			}
		})
	}
}

func TestAddLockedFailureRetainsNothing(t *testing.T) {
	s, ops := newTestSession()
	defer s.Close()

	ops.FailLock = true
	err := s.Add(HeapLocked)
	if err == nil {
		t.Fatalf("expected lock refusal")
	}
	if s.Count(HeapLocked) != 0 {
		t.Errorf("failed add retained a region")
	}
	if ops.LiveMappings() != 0 {
		t.Errorf("failed add leaked the mapping")
	}

	// the session is still usable for unlocked adds
	ops.FailLock = false
	if err := s.Add(HeapUnlocked); err != nil {
		t.Fatalf("Add(HeapUnlocked) after failed locked add: %v", err)
	}
}

func TestAddMapFailure(t *testing.T) {
	s, ops := newTestSession()
	defer s.Close()

	ops.FailMap = true
	if err := s.Add(HeapUnlocked); err == nil {
		t.Fatalf("expected map refusal")
	}
	if s.Count(HeapUnlocked) != 0 || ops.LiveMappings() != 0 {
		t.Errorf("failed add left state behind")
	}
}

func TestUnlockedRoundTrip(t *testing.T) {
	s, ops := newTestSession()
	defer s.Close()

	if err := s.Add(HeapUnlocked); err != nil {
		t.Fatalf("Add: %v", err)
	}
	before := ops.LiveMappings()

	if err := s.Add(HeapUnlocked); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.Remove(HeapUnlocked) {
		t.Fatalf("Remove returned false")
	}

	if s.Count(HeapUnlocked) != 1 {
		t.Errorf("expected 1 unlocked region after round trip, got %d", s.Count(HeapUnlocked))
	}
	if ops.LiveMappings() != before {
		t.Errorf("round trip changed live mappings: %d -> %d", before, ops.LiveMappings())
	}
}

func TestRemoveIsLIFO(t *testing.T) {
	s, _ := newTestSession()
	defer s.Close()

	// successive unlocked regions carry distinguishable probe bytes,
	// use them to verify which region survives
	if err := s.Add(HeapUnlocked); err != nil {
		t.Fatalf("Add: %v", err)
	}
	first := s.unlocked[0]
	if err := s.Add(HeapUnlocked); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !s.Remove(HeapUnlocked) {
		t.Fatalf("Remove returned false")
	}
	if len(s.unlocked) != 1 || s.unlocked[0] != first {
		t.Errorf("LIFO removal did not keep the first-added region")
	}
}

func TestPageInUnlockedIdempotent(t *testing.T) {
	s, ops := newTestSession()
	defer s.Close()

	for i := 0; i < 3; i++ {
		if err := s.Add(HeapUnlocked); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	s.PageInUnlocked()
	locks, unlocks := ops.Locks, ops.Unlocks
	if locks != 3 || unlocks != 3 {
		t.Errorf("expected 3 lock/unlock pairs, got %d/%d", locks, unlocks)
	}

	s.PageInUnlocked()
	if s.Count(HeapUnlocked) != 3 {
		t.Errorf("repeated page-in mutated the heap")
	}
	if ops.Locks != 2*locks || ops.Unlocks != 2*unlocks {
		t.Errorf("repeated page-in did not touch every region again")
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	s, ops := newTestSession()

	for i := 0; i < 2; i++ {
		if err := s.Add(HeapLocked); err != nil {
			t.Fatalf("Add(HeapLocked): %v", err)
		}
		if err := s.Add(HeapUnlocked); err != nil {
			t.Fatalf("Add(HeapUnlocked): %v", err)
		}
	}

	testutils.VerifyError(t, s.Close(), 0, nil)
	if ops.LiveMappings() != 0 {
		t.Errorf("%d mappings leaked past Close", ops.LiveMappings())
	}

	// second Close must not double-release
	testutils.VerifyError(t, s.Close(), 0, nil)
	if ops.Unmaps != 4 {
		t.Errorf("expected 4 munmaps, got %d", ops.Unmaps)
	}
}
