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

// mlockmon interactively adds and removes locked and unlocked memory
// regions while displaying kernel swap and mlock accounting.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memtools/mlockmon/pkg/interactive"
	logger "github.com/memtools/mlockmon/pkg/log"
	"github.com/memtools/mlockmon/pkg/metrics"
	"github.com/memtools/mlockmon/pkg/pidfile"
	"github.com/memtools/mlockmon/pkg/session"
	"github.com/memtools/mlockmon/pkg/term"
	_ "github.com/memtools/mlockmon/pkg/version"
)

var log = logger.NewLogger("mlockmon")

func printHelp() {
	fmt.Println("usage:")
	fmt.Println("  +/-: add/remove locked mappings")
	fmt.Println("  ]/[: add/remove unlocked mappings")
	fmt.Println("  p: page in unlocked mappings")
	fmt.Println("  q: quit")
}

// parseOptions merges defaults, the optional options file and command
// line flags, in that order of precedence (lowest first).
func parseOptions() (*interactive.Options, int, error) {
	optConfig := flag.String("config", "", "options file (YAML)")
	optQuantum := flag.Int("quantum-mb", 0, "region size in megabytes")
	optInterval := flag.Int("interval-ms", 0, "telemetry refresh interval in milliseconds")
	optMetrics := flag.String("metrics-address", "", "serve prometheus metrics on this address")
	optPidFile := flag.String("pidfile", "", "publish the monitor PID in this file")
	optDebug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	if *optDebug {
		logger.SetLevel(logger.LevelDebug)
	}

	opts := interactive.DefaultOptions()
	if *optConfig != "" {
		if err := opts.Load(*optConfig); err != nil {
			return nil, 0, err
		}
	}
	if *optQuantum > 0 {
		opts.QuantumMB = *optQuantum
	}
	if *optInterval > 0 {
		opts.IntervalMS = *optInterval
	}
	if *optMetrics != "" {
		opts.MetricsAddress = *optMetrics
	}
	if *optPidFile != "" {
		opts.PidFile = *optPidFile
	}

	// one optional positional argument: initially locked megabytes
	initMB := 0
	if arg := flag.Arg(0); arg != "" {
		mb, err := strconv.Atoi(arg)
		if err != nil || mb < 0 {
			log.Warn("ignoring unparsable megabyte count %q", arg)
			mb = 0
		}
		initMB = mb
	}

	return opts, initMB, nil
}

func serveMetrics(address string) error {
	gatherer, err := metrics.NewMetricGatherer()
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(address, mux); err != nil {
			log.Error("metrics endpoint failed: %v", err)
		}
	}()
	return nil
}

func run() error {
	opts, initMB, err := parseOptions()
	if err != nil {
		return err
	}

	if opts.PidFile != "" {
		pidfile.SetPath(opts.PidFile)
		if err := pidfile.Write(); err != nil {
			return err
		}
		defer pidfile.Remove()
	}

	if opts.MetricsAddress != "" {
		if err := serveMetrics(opts.MetricsAddress); err != nil {
			return err
		}
	}

	quantum := opts.QuantumMB * 1024 * 1024
	sess := session.New(quantum)
	defer sess.Close()

	for i := 0; i < initMB/opts.QuantumMB; i++ {
		if err := sess.Add(session.HeapLocked); err != nil {
			log.Warn("pre-populating locked heap stopped: %v", err)
			break
		}
	}

	printHelp()
	fmt.Println()

	surface := term.NewConsole()
	if err := surface.Open(); err != nil {
		return err
	}
	defer surface.Restore()

	ctl := interactive.New(sess, surface,
		time.Duration(opts.IntervalMS)*time.Millisecond)
	ctl.Run()

	surface.Restore()
	fmt.Println()

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mlockmon: %v\n", err)
		os.Exit(1)
	}
}
