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

package procmem

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/memtools/mlockmon/pkg/metrics"
)

// Prometheus metric descriptor indices and descriptor table.
const (
	mlockedDesc = iota
	swapTotalDesc
	swapFreeDesc
	anonPagesDesc
	pswpinDesc
	pswpoutDesc
	procVmLckDesc
	procRssAnonDesc
	procVmSwapDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	mlockedDesc: prometheus.NewDesc(
		"mem_mlocked_kbytes",
		"System-wide locked memory",
		nil, nil,
	),
	swapTotalDesc: prometheus.NewDesc(
		"mem_swap_total_kbytes",
		"Total swap space",
		nil, nil,
	),
	swapFreeDesc: prometheus.NewDesc(
		"mem_swap_free_kbytes",
		"Free swap space",
		nil, nil,
	),
	anonPagesDesc: prometheus.NewDesc(
		"mem_anon_resident_kbytes",
		"Resident anonymous memory",
		nil, nil,
	),
	pswpinDesc: prometheus.NewDesc(
		"mem_swap_in_pages_total",
		"Cumulative count of pages swapped in since boot",
		nil, nil,
	),
	pswpoutDesc: prometheus.NewDesc(
		"mem_swap_out_pages_total",
		"Cumulative count of pages swapped out since boot",
		nil, nil,
	),
	procVmLckDesc: prometheus.NewDesc(
		"process_mlocked_kbytes",
		"Locked memory of this process",
		nil, nil,
	),
	procRssAnonDesc: prometheus.NewDesc(
		"process_anon_resident_kbytes",
		"Resident anonymous memory of this process",
		nil, nil,
	),
	procVmSwapDesc: prometheus.NewDesc(
		"process_swapped_kbytes",
		"Swapped-out anonymous memory of this process",
		nil, nil,
	),
}

type collector struct{}

// NewCollector creates a new prometheus collector over the proc counters.
// Every scrape takes fresh samples, no state is shared with the
// interactive loop.
func NewCollector() (prometheus.Collector, error) {
	return &collector{}, nil
}

// Describe implements the prometheus.Collector interface.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements the prometheus.Collector interface.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	sys := CollectSystem(nil)
	proc := CollectProcess()

	gauges := map[int]uint64{
		mlockedDesc:     sys.Mlocked,
		swapTotalDesc:   sys.SwapTotal,
		swapFreeDesc:    sys.SwapFree,
		anonPagesDesc:   sys.AnonPages,
		procVmLckDesc:   proc.VmLck,
		procRssAnonDesc: proc.RssAnon,
		procVmSwapDesc:  proc.VmSwap,
	}
	for desc, value := range gauges {
		ch <- prometheus.MustNewConstMetric(descriptors[desc],
			prometheus.GaugeValue, float64(value))
	}

	counters := map[int]uint64{
		pswpinDesc:  sys.Pswpin,
		pswpoutDesc: sys.Pswpout,
	}
	for desc, value := range counters {
		ch <- prometheus.MustNewConstMetric(descriptors[desc],
			prometheus.CounterValue, float64(value))
	}
}

func init() {
	if err := metrics.RegisterCollector("procmem", NewCollector); err != nil {
		log.Error("failed to register procmem collector: %v", err)
	}
}
