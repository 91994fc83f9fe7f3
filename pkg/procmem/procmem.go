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

// Package procmem samples kernel memory counters from /proc and derives
// swap I/O rate-of-change across consecutive samples.
//
// The field names matched here (/proc/meminfo, /proc/vmstat,
// /proc/self/status) are a versioned kernel interface; they are matched by
// literal prefix. A missing field, an unreadable file or an unparsable
// line leaves the corresponding counter at zero instead of failing the
// collection.
package procmem

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	logger "github.com/memtools/mlockmon/pkg/log"
)

const logRateInterval = 5 * time.Minute

var (
	// procRoot is the mount point for the proc filesystem.
	procRoot = "/proc"

	log = logger.NewLogger("procmem")
)

// SystemStats is one sample of system-wide memory counters.
type SystemStats struct {
	// PageSize is the host page size in bytes.
	PageSize uint64

	// Mlocked is the system-wide total of locked pages, in kB.
	Mlocked uint64
	// SwapTotal and SwapFree are the swap space counters, in kB.
	SwapTotal uint64
	SwapFree  uint64
	// AnonPages is the total of resident anonymous pages, in kB.
	AnonPages uint64

	// Pswpin and Pswpout are the cumulative counts of pages swapped
	// in/out since boot.
	Pswpin  uint64
	Pswpout uint64

	// PswpinDelta and PswpoutDelta are the page counts swapped in/out
	// since the previous sample. Zero on the first sample, and zero
	// whenever a cumulative counter appears to have decreased.
	PswpinDelta  uint64
	PswpoutDelta uint64
}

// ProcessStats is one sample of the current process's memory accounting.
type ProcessStats struct {
	// VmLck is the amount of locked memory, in kB.
	VmLck uint64
	// RssAnon is the amount of resident anonymous memory, in kB.
	RssAnon uint64
	// VmSwap is the amount of anonymous memory swapped out, in kB.
	VmSwap uint64
}

// CollectSystem samples /proc/meminfo and /proc/vmstat. If prev is given,
// the swap-in/out deltas are computed against it; the first sample of a
// session has zero deltas by definition. CollectSystem never fails, it
// degrades to zero-valued counters instead.
func CollectSystem(prev *SystemStats) *SystemStats {
	s := &SystemStats{
		PageSize: uint64(os.Getpagesize()),
	}
	s.collectMeminfo()
	s.collectVmstat()

	if prev != nil {
		s.PswpinDelta = saturatingSub(s.Pswpin, prev.Pswpin)
		s.PswpoutDelta = saturatingSub(s.Pswpout, prev.Pswpout)
	}
	return s
}

// CollectProcess samples /proc/self/status. It never fails, it degrades
// to zero-valued counters instead.
func CollectProcess() *ProcessStats {
	p := &ProcessStats{}
	p.collectStatus()
	return p
}

func (s *SystemStats) collectMeminfo() {
	err := parseProcFile(procRoot+"/meminfo", map[string]*uint64{
		"Mlocked:":   &s.Mlocked,
		"SwapTotal:": &s.SwapTotal,
		"SwapFree:":  &s.SwapFree,
		"AnonPages:": &s.AnonPages,
	})
	if err != nil {
		readFailLog.Warn("reading meminfo failed: %v", err)
	}
}

func (s *SystemStats) collectVmstat() {
	err := parseProcFile(procRoot+"/vmstat", map[string]*uint64{
		"pswpin ":  &s.Pswpin,
		"pswpout ": &s.Pswpout,
	})
	if err != nil {
		readFailLog.Warn("reading vmstat failed: %v", err)
	}
}

func (p *ProcessStats) collectStatus() {
	err := parseProcFile(procRoot+"/self/status", map[string]*uint64{
		"VmLck:":   &p.VmLck,
		"RssAnon:": &p.RssAnon,
		"VmSwap:":  &p.VmSwap,
	})
	if err != nil {
		readFailLog.Warn("reading process status failed: %v", err)
	}
}

// parseProcFile scans a line-oriented proc file for lines starting with
// the given literal prefixes and stores the first numeric field following
// each prefix. Unparsable values are left at their prior (zero) value.
func parseProcFile(path string, fields map[string]*uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	remaining := len(fields)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && remaining > 0 {
		line := scanner.Text()
		for prefix, value := range fields {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			if v, ok := parseValue(line[len(prefix):]); ok {
				*value = v
			}
			remaining--
			break
		}
	}
	return scanner.Err()
}

// parseValue extracts the leading numeric field of a proc line remainder,
// e.g. "     1234 kB" or "5678".
func parseValue(s string) (uint64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func saturatingSub(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// String renders the system counters as one status line. Unlocked memory
// is the anonymous resident total minus the locked total, swap usage is
// total minus free, and the swap I/O deltas are converted from pages
// to MB with the sampled page size.
func (s *SystemStats) String() string {
	swapInMB := s.PswpinDelta * s.PageSize / 1024 / 1024
	swapOutMB := s.PswpoutDelta * s.PageSize / 1024 / 1024
	return fmt.Sprintf("locked %5d MB, unlocked %5d MB, swap %5d MB, swap i/o +%d/+%d MB",
		s.Mlocked/1024,
		saturatingSub(s.AnonPages, s.Mlocked)/1024,
		saturatingSub(s.SwapTotal, s.SwapFree)/1024,
		swapInMB,
		swapOutMB)
}

// String renders the process counters as one status line.
func (p *ProcessStats) String() string {
	return fmt.Sprintf("locked %5d MB, unlocked %5d MB, swap %5d MB",
		p.VmLck/1024,
		saturatingSub(p.RssAnon, p.VmLck)/1024,
		p.VmSwap/1024)
}

// proc files can stay unreadable for the whole session, log that once in
// a while instead of once per sampling interval.
var readFailLog = logger.RateLimit(log, logger.Interval(logRateInterval))
