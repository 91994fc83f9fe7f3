//go:build linux
// +build linux

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
	"golang.org/x/sys/unix"
)

// systemMemops implements Memops against the real kernel.
type systemMemops struct{}

func (systemMemops) MapAnonymous(length int) ([]byte, error) {
	return unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

func (systemMemops) MapFile(fd int, length int) ([]byte, error) {
	return unix.Mmap(fd, 0, length, unix.PROT_READ, unix.MAP_SHARED)
}

func (systemMemops) Unmap(data []byte) error {
	return unix.Munmap(data)
}

func (systemMemops) Lock(data []byte) error {
	return unix.Mlock(data)
}

func (systemMemops) Unlock(data []byte) error {
	return unix.Munlock(data)
}

func (systemMemops) PageSize() int {
	return unix.Getpagesize()
}
