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

// Package mmap wraps raw address-space mappings into Regions with explicit
// lock, unlock, page-in and fill operations and exactly-once teardown.
package mmap

import (
	"os"
	"time"

	logger "github.com/memtools/mlockmon/pkg/log"
)

// fallbackPageSize is used when the page size cannot be determined.
const fallbackPageSize = 4096

// Backing describes what backs a mapped Region.
type Backing int

const (
	// BackingAnonymous is a private, zero-initialized mapping backed by no file.
	BackingAnonymous Backing = iota
	// BackingFile is a read-only shared mapping of a whole file.
	BackingFile
)

// String returns a human-readable backing kind.
func (b Backing) String() string {
	switch b {
	case BackingAnonymous:
		return "anonymous"
	case BackingFile:
		return "file"
	}
	return "unknown"
}

// Region owns one mapped range of virtual address space. A Region is valid
// from successful creation until Close, which releases the mapping exactly
// once. Regions must not be shared between owners.
type Region struct {
	ops     Memops
	data    []byte
	backing Backing
	locked  bool
	closed  bool
}

// Mapper creates Regions through one OS memory interface. The zero-config
// mapper from NewMapper talks to the kernel; tests inject their own Memops.
type Mapper struct {
	ops Memops
}

var log = logger.NewLogger("mmap")

// NewMapper returns a Mapper operating on the real address space.
func NewMapper() *Mapper {
	return &Mapper{ops: systemMemops{}}
}

// NewMapperOps returns a Mapper operating through the given OS interface.
func NewMapperOps(ops Memops) *Mapper {
	return &Mapper{ops: ops}
}

// MapAnonymous maps a fresh, zero-initialized, readable and writable
// anonymous region of exactly length bytes, private to this process.
func (m *Mapper) MapAnonymous(length int) (*Region, error) {
	data, err := m.ops.MapAnonymous(length)
	if err != nil {
		return nil, &MapError{Len: length, Err: err}
	}
	return &Region{ops: m.ops, data: data, backing: BackingAnonymous}, nil
}

// MapFile maps the whole file at path as a read-only shared region sized to
// the file's length.
func (m *Mapper) MapFile(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	length := int(info.Size())

	// The mapping holds its own reference, the fd can go after mmap.
	data, err := m.ops.MapFile(int(f.Fd()), length)
	if err != nil {
		return nil, &MapError{Len: length, Err: err}
	}
	return &Region{ops: m.ops, data: data, backing: BackingFile}, nil
}

// MapAnonymous maps an anonymous region in the real address space.
func MapAnonymous(length int) (*Region, error) {
	return NewMapper().MapAnonymous(length)
}

// MapFile maps the file at path into the real address space.
func MapFile(path string) (*Region, error) {
	return NewMapper().MapFile(path)
}

// Len returns the fixed length of the region in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Backing returns the backing kind of the region.
func (r *Region) Backing() Backing {
	return r.backing
}

// Locked returns whether the region's pages are currently locked.
func (r *Region) Locked() bool {
	return r.locked
}

// Lock asks the kernel to pin the region's pages in physical memory,
// preventing swap-out. Exceeding RLIMIT_MEMLOCK is the typical failure;
// it is not retried here, the caller decides whether to keep the region
// unlocked instead.
func (r *Region) Lock() error {
	if err := r.ops.Lock(r.data); err != nil {
		return &LockError{Len: len(r.data), Err: err}
	}
	r.locked = true
	return nil
}

// Unlock releases the pinning. Idempotent and best-effort: a failing
// munlock is only log-worthy, never actionable for the caller.
func (r *Region) Unlock() {
	if err := r.ops.Unlock(r.data); err != nil {
		unlockFailLog.Warn("munlock of %d bytes failed: %v", len(r.data), err)
		return
	}
	r.locked = false
}

// PageIn forces every page of the region to be resident. Anonymous regions
// are locked and immediately unlocked: mlock faults all pages in, and
// munlock leaves them resident but reclaimable. Read-only file regions
// cannot be usefully locked in place, so their content is instead pulled
// through a page-sized bounce buffer until the whole length has been read
// once. Either way every page has been faulted in on return.
func (r *Region) PageIn() error {
	if r.backing == BackingAnonymous {
		if err := r.Lock(); err != nil {
			return err
		}
		r.Unlock()
		return nil
	}

	buf := make([]byte, r.pageSize())
	for off := 0; off < len(r.data); off += len(buf) {
		copy(buf, r.data[off:])
	}
	return nil
}

// Fill writes val into the first byte of every page of the region. This is
// the minimal write that marks each page dirty and resident; the rest of
// every page keeps its prior value. Only valid for writable regions.
func (r *Region) Fill(val byte) {
	if r.backing != BackingAnonymous {
		log.Error("Fill on a read-only %s region ignored", r.backing)
		return
	}
	pageSize := r.pageSize()
	for off := 0; off < len(r.data); off += pageSize {
		r.data[off] = val
	}
}

// Close releases the mapping. The first call unmaps, any further calls are
// no-ops, so deferring Close on every exit path is safe.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	data := r.data
	r.data = nil
	return r.ops.Unmap(data)
}

func (r *Region) pageSize() int {
	if size := r.ops.PageSize(); size > 0 {
		return size
	}
	return fallbackPageSize
}

// munlock failures repeat fast in the interactive loop, keep them quiet.
var unlockFailLog = logger.RateLimit(log, logger.Interval(5*time.Second))
