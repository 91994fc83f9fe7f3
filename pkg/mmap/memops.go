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

// Memops is the OS memory interface Regions operate through. Mapping and
// locking are effectful kernel calls; routing them through this interface
// keeps region and session bookkeeping testable without a kernel.
type Memops interface {
	// MapAnonymous maps length bytes of private zeroed memory.
	MapAnonymous(length int) ([]byte, error)
	// MapFile maps length bytes of the open file fd read-only and shared.
	MapFile(fd int, length int) ([]byte, error)
	// Unmap releases a mapping returned by MapAnonymous or MapFile.
	Unmap(data []byte) error
	// Lock pins the pages of data in physical memory.
	Lock(data []byte) error
	// Unlock releases the pinning of the pages of data.
	Unlock(data []byte) error
	// PageSize returns the host page size, or 0 if unknown.
	PageSize() int
}
