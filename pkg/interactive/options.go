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

package interactive

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Options configure the interactive monitor.
type Options struct {
	// QuantumMB is the size of every managed region in megabytes.
	QuantumMB int `json:"quantumMB"`
	// IntervalMS is the input poll timeout and telemetry refresh
	// interval in milliseconds.
	IntervalMS int `json:"intervalMS"`
	// MetricsAddress, when set, serves prometheus metrics over HTTP.
	MetricsAddress string `json:"metricsAddress,omitempty"`
	// PidFile, when set, publishes the monitor's PID there.
	PidFile string `json:"pidFile,omitempty"`
}

// DefaultOptions returns the reference behavior: 256 MB regions, one
// second refresh, no metrics endpoint and no pidfile.
func DefaultOptions() *Options {
	return &Options{
		QuantumMB:  256,
		IntervalMS: 1000,
	}
}

// Load overrides the options from a YAML file.
func (o *Options) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read options file %q: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, o); err != nil {
		return fmt.Errorf("failed to parse options file %q: %w", path, err)
	}
	if o.QuantumMB <= 0 {
		return fmt.Errorf("options file %q: quantumMB must be positive", path)
	}
	if o.IntervalMS <= 0 {
		return fmt.Errorf("options file %q: intervalMS must be positive", path)
	}
	return nil
}
