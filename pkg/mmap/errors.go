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

import "fmt"

// MapError indicates the kernel refused a mapping request.
type MapError struct {
	// Len is the length of the refused request in bytes.
	Len int
	// Err is the underlying cause.
	Err error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("mapping %d bytes failed: %v", e.Len, e.Err)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

// OpenError indicates the backing file of a mapping is inaccessible.
type OpenError struct {
	// Path is the backing file.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %q for mapping failed: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// LockError indicates a page-locking request was refused, typically because
// RLIMIT_MEMLOCK or a cgroup limit was exceeded.
type LockError struct {
	// Len is the length of the refused request in bytes.
	Len int
	// Err is the underlying cause.
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("locking %d bytes failed: %v", e.Len, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}
