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

package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPidFile = "pidfile-test.pid"
)

func prepare(t *testing.T) {
	dir := t.TempDir()
	SetPath(filepath.Join(dir, testPidFile))
}

func TestReadWithoutPidfile(t *testing.T) {
	prepare(t)

	pid, err := Read()
	require.NoError(t, err, "reading nonexistent PID file")
	require.Equal(t, 0, pid, "PID from nonexistent file")
}

func TestWriteAndRead(t *testing.T) {
	prepare(t)

	require.NoError(t, Write(), "writing PID file")
	defer Remove()

	pid, err := Read()
	require.NoError(t, err, "reading PID file")
	require.Equal(t, os.Getpid(), pid, "PID read back")
}

func TestWriteIsSingleShot(t *testing.T) {
	prepare(t)

	require.NoError(t, Write(), "writing PID file")
	defer Remove()

	// a second Write by the same process is a no-op
	require.NoError(t, Write(), "rewriting PID file")

	// but a stale file from another writer fails the exclusive create
	path := GetPath()
	SetPath(path)
	require.Error(t, Write(), "writing over an existing PID file")
}

func TestRemove(t *testing.T) {
	prepare(t)

	require.NoError(t, Write(), "writing PID file")
	require.NoError(t, Remove(), "removing PID file")
	require.NoError(t, Remove(), "removing it again")

	pid, err := Read()
	require.NoError(t, err, "reading removed PID file")
	require.Equal(t, 0, pid, "PID after removal")
}

func TestInvalidContent(t *testing.T) {
	prepare(t)

	require.NoError(t, os.WriteFile(GetPath(), []byte("not-a-pid\n"), 0644))

	pid, err := Read()
	require.Error(t, err, "reading garbage PID file")
	require.Equal(t, -1, pid, "PID from garbage file")
}
