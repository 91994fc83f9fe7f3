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
	"fmt"
	"syscall"
)

// StubMemops implements Memops on plain heap slices with no kernel calls.
// It counts operations and can be told to refuse mapping or locking, which
// makes session and controller logic testable anywhere.
type StubMemops struct {
	// StubPageSize is the page size reported to regions (0 selects the
	// fallback constant).
	StubPageSize int
	// FailMap makes MapAnonymous and MapFile fail with ENOMEM.
	FailMap bool
	// FailLock makes Lock fail with ENOMEM, like an exceeded RLIMIT_MEMLOCK.
	FailLock bool

	// Maps, Unmaps, Locks, Unlocks and PageIns count successful operations.
	Maps    int
	Unmaps  int
	Locks   int
	Unlocks int

	live map[*byte]int
}

// NewStubMemops returns a stub OS memory interface with the given page size.
func NewStubMemops(pageSize int) *StubMemops {
	return &StubMemops{
		StubPageSize: pageSize,
		live:         make(map[*byte]int),
	}
}

// MapAnonymous allocates a zeroed length-byte slice.
func (s *StubMemops) MapAnonymous(length int) ([]byte, error) {
	if s.FailMap {
		return nil, syscall.ENOMEM
	}
	if length <= 0 {
		return nil, syscall.EINVAL
	}
	data := make([]byte, length)
	s.live[&data[0]] = length
	s.Maps++
	return data, nil
}

// MapFile allocates a zeroed length-byte slice standing in for file content.
func (s *StubMemops) MapFile(fd int, length int) ([]byte, error) {
	return s.MapAnonymous(length)
}

// Unmap releases a stub mapping. Unmapping a slice that is not live fails,
// so double-release bugs surface in tests.
func (s *StubMemops) Unmap(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("unmapping an empty or already released mapping")
	}
	if _, ok := s.live[&data[0]]; !ok {
		return fmt.Errorf("unmapping an unknown mapping of %d bytes", len(data))
	}
	delete(s.live, &data[0])
	s.Unmaps++
	return nil
}

// Lock records a lock request.
func (s *StubMemops) Lock(data []byte) error {
	if s.FailLock {
		return syscall.ENOMEM
	}
	s.Locks++
	return nil
}

// Unlock records an unlock request.
func (s *StubMemops) Unlock(data []byte) error {
	s.Unlocks++
	return nil
}

// PageSize returns the configured stub page size.
func (s *StubMemops) PageSize() int {
	return s.StubPageSize
}

// LiveMappings returns the number of mappings created but not yet released.
func (s *StubMemops) LiveMappings() int {
	return len(s.live)
}
