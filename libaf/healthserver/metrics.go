// Copyright 2025 Antfly, Inc.
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

package healthserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the index-specific Prometheus collectors this service
// exposes alongside the generic health/metrics server. Gauges are driven
// by a Sampler the caller provides; QueryLatency is observed directly by
// callers around each provider.Query call.
type Metrics struct {
	TotalDocs        prometheus.GaugeFunc
	PostingsTerms    prometheus.GaugeFunc
	CoalescerPending prometheus.GaugeFunc
	QueryLatency     prometheus.Histogram
}

// Sampler supplies the current gauge values on each Prometheus scrape.
type Sampler struct {
	TotalDocs        func() float64
	PostingsTerms    func() float64
	CoalescerPending func() float64
}

// NewMetrics registers vaultsearch's gauges and histogram against the
// default Prometheus registry, the way promhttp.Handler() in Start
// already serves the default registry's collectors.
func NewMetrics(s Sampler) *Metrics {
	m := &Metrics{
		QueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultsearch_query_duration_seconds",
			Help:    "Latency of provider.Query calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if s.TotalDocs != nil {
		m.TotalDocs = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "vaultsearch_total_docs",
			Help: "Number of documents currently indexed.",
		}, s.TotalDocs)
	}
	if s.PostingsTerms != nil {
		m.PostingsTerms = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "vaultsearch_postings_terms",
			Help: "Number of distinct terms in the postings map.",
		}, s.PostingsTerms)
	}
	if s.CoalescerPending != nil {
		m.CoalescerPending = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "vaultsearch_coalescer_pending",
			Help: "Number of ids waiting on the event coalescer's timer.",
		}, s.CoalescerPending)
	}
	return m
}
