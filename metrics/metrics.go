/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics holds the Prometheus collectors of the data layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "niketan"

// Resolution outcomes recorded by the repository provider.
const (
	ResolutionHit         = "hit"
	ResolutionMiss        = "miss"
	ResolutionSubstituted = "substituted"
	ResolutionFailed      = "failed"
)

// Collector groups the unit-of-work and provider collectors. A nil
// *Collector is valid and records nothing.
type Collector struct {
	commits        *prometheus.CounterVec
	commitDuration prometheus.Histogram
	changes        *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	openUnits      prometheus.Gauge
}

// NewCollector builds unregistered collectors.
func NewCollector() *Collector {
	return &Collector{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Unit of work commits by result.",
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Duration of unit of work commits.",
			Buckets:   prometheus.DefBuckets,
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_saved_total",
			Help:      "Entity changes written by committed units of work.",
		}, []string{"state"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_resolutions_total",
			Help:      "Repository provider lookups by outcome.",
		}, []string{"outcome"}),
		openUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_units_of_work",
			Help:      "Units of work begun and not yet closed.",
		}),
	}
}

var _ prometheus.Collector = (*Collector)(nil)

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.commits, c.commitDuration, c.changes, c.resolutions, c.openUnits}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, col := range c.collectors() {
		col.Describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range c.collectors() {
		col.Collect(ch)
	}
}

// MustRegister registers every collector with reg.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c)
}

func (c *Collector) ObserveCommit(d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.commits.WithLabelValues(result).Inc()
	c.commitDuration.Observe(d.Seconds())
}

func (c *Collector) AddChanges(state string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.changes.WithLabelValues(state).Add(float64(n))
}

func (c *Collector) ObserveResolution(outcome string) {
	if c == nil {
		return
	}
	c.resolutions.WithLabelValues(outcome).Inc()
}

func (c *Collector) UnitOpened() {
	if c == nil {
		return
	}
	c.openUnits.Inc()
}

func (c *Collector) UnitClosed() {
	if c == nil {
		return
	}
	c.openUnits.Dec()
}
