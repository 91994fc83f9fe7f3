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

// Package metrics keeps a registry of prometheus collectors and builds a
// gatherer over them for the optional metrics endpoint.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	logger "github.com/memtools/mlockmon/pkg/log"
)

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

var (
	builtInCollectors = make(map[string]InitCollector)
	log               = logger.NewLogger("metrics")
)

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func RegisterCollector(name string, init InitCollector) error {
	if _, found := builtInCollectors[name]; found {
		return fmt.Errorf("metrics: collector %s already registered", name)
	}
	builtInCollectors[name] = init
	return nil
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered collectors.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	reg := prometheus.NewPedanticRegistry()

	for name, init := range builtInCollectors {
		c, err := init()
		if err != nil {
			log.Error("failed to initialize collector %s: %v, skipping it", name, err)
			continue
		}
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: registering collector %s failed: %w", name, err)
		}
	}

	return reg, nil
}
