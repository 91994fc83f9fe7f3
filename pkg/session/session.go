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

// Package session manages the locked and unlocked heaps of quantum-sized
// memory regions driven by the interactive monitor.
package session

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	logger "github.com/memtools/mlockmon/pkg/log"
	"github.com/memtools/mlockmon/pkg/mmap"
)

// Heap selects one of the two region collections of a session.
type Heap int

const (
	// HeapLocked holds regions whose pages are mlocked.
	HeapLocked Heap = iota
	// HeapUnlocked holds regions with swappable probe content.
	HeapUnlocked
)

// String returns a human-readable heap name.
func (h Heap) String() string {
	switch h {
	case HeapLocked:
		return "locked"
	case HeapUnlocked:
		return "unlocked"
	}
	return "unknown"
}

// Session owns two independent stacks of quantum-sized regions. Every
// region in either heap is exactly Quantum bytes long and belongs to
// exactly one heap. All regions are released exactly once on Close.
type Session struct {
	mapper   *mmap.Mapper
	quantum  int
	locked   []*mmap.Region
	unlocked []*mmap.Region
	closed   bool
}

var log = logger.NewLogger("session")

// New creates an empty session managing quantum-byte regions in the real
// address space.
func New(quantum int) *Session {
	return NewWithMapper(quantum, mmap.NewMapper())
}

// NewWithMapper creates an empty session mapping its regions through the
// given mapper.
func NewWithMapper(quantum int, mapper *mmap.Mapper) *Session {
	return &Session{
		mapper:  mapper,
		quantum: quantum,
	}
}

// Quantum returns the fixed region size of the session in bytes.
func (s *Session) Quantum() int {
	return s.quantum
}

// Add maps one new quantum-sized anonymous region and pushes it onto
// the given heap. A locked add mlocks the region first; if locking is
// refused nothing is retained and the session is left unchanged. An
// unlocked add fills the region with a distinguishable non-zero probe
// byte so its pages are dirty, resident and swappable.
func (s *Session) Add(heap Heap) error {
	r, err := s.mapper.MapAnonymous(s.quantum)
	if err != nil {
		return err
	}
	switch heap {
	case HeapLocked:
		if err := r.Lock(); err != nil {
			if cerr := r.Close(); cerr != nil {
				log.Error("releasing region after refused lock failed: %v", cerr)
			}
			return err
		}
		s.locked = append(s.locked, r)
	case HeapUnlocked:
		r.Fill(byte(len(s.unlocked) + 1))
		s.unlocked = append(s.unlocked, r)
	default:
		r.Close()
		return fmt.Errorf("unknown heap %d", heap)
	}
	return nil
}

// Remove releases the most recently added region of the given heap and
// reports whether there was one. The heaps are independent LIFO stacks.
func (s *Session) Remove(heap Heap) bool {
	var r *mmap.Region
	switch heap {
	case HeapLocked:
		if len(s.locked) == 0 {
			return false
		}
		r, s.locked = s.locked[len(s.locked)-1], s.locked[:len(s.locked)-1]
	case HeapUnlocked:
		if len(s.unlocked) == 0 {
			return false
		}
		r, s.unlocked = s.unlocked[len(s.unlocked)-1], s.unlocked[:len(s.unlocked)-1]
	default:
		return false
	}
	if err := r.Close(); err != nil {
		log.Error("releasing removed %s region failed: %v", heap, err)
	}
	return true
}

// PageInUnlocked forces residency of every unlocked region in insertion
// order. Best-effort per region: one region failing to page in does not
// abort the remaining ones.
func (s *Session) PageInUnlocked() {
	for _, r := range s.unlocked {
		if err := r.PageIn(); err != nil {
			log.Warn("paging in %d bytes failed: %v", r.Len(), err)
		}
	}
}

// Count returns the number of regions in the given heap.
func (s *Session) Count(heap Heap) int {
	switch heap {
	case HeapLocked:
		return len(s.locked)
	case HeapUnlocked:
		return len(s.unlocked)
	}
	return 0
}

// TotalSize returns count * quantum bytes for the given heap.
func (s *Session) TotalSize(heap Heap) uint64 {
	return uint64(s.Count(heap)) * uint64(s.quantum)
}

// String renders the per-heap sizes for the status display.
func (s *Session) String() string {
	return fmt.Sprintf("locked %5d MB, unlocked %5d MB",
		s.TotalSize(HeapLocked)/1024/1024,
		s.TotalSize(HeapUnlocked)/1024/1024)
}

// Close releases all regions of both heaps. Any failing release is
// collected, the remaining regions are still released. Close is
// idempotent, so it can be deferred on every exit path.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs *multierror.Error
	for _, r := range s.locked {
		if err := r.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, r := range s.unlocked {
		if err := r.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	s.locked = nil
	s.unlocked = nil

	return errs.ErrorOrNil()
}
