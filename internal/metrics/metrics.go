/*
 * Prometheus-backed core metrics and HTTP handler.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package metrics implements internal/core.Metrics against
// Prometheus client_golang, plus an HTTP handler to expose them.
//
// No teacher analogue exists (the S370 emulator has no metrics
// layer); grounded on SPEC_FULL.md's Ambient Stack assignment and
// prometheus/client_golang's own idiomatic registration pattern
// (NewCounterVec/NewGaugeVec keyed by labels, registered against a
// private Registry rather than the global default one, so tests can
// build independent instances).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements internal/core.Metrics (including the cache
// hit/miss counts the core reports) against a private Prometheus
// registry.
type Metrics struct {
	registry *prometheus.Registry

	instExecuted    *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	irqDelivered    *prometheus.CounterVec
	exceptionsTotal *prometheus.CounterVec
}

// New constructs a Metrics with its own registry so concurrent tests
// never collide on prometheus's global default registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		instExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "instructions_executed_total",
			Help:      "Instructions successfully executed, per core.",
		}, []string{"core"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "icache_hits_total",
			Help:      "Decoded-instruction cache hits, per core.",
		}, []string{"core"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "icache_misses_total",
			Help:      "Decoded-instruction cache misses, per core.",
		}, []string{"core"}),
		irqDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "irq_delivered_total",
			Help:      "Hardware IRQs entered, per core.",
		}, []string{"core"}),
		exceptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "segcore",
			Name:      "exceptions_total",
			Help:      "Core exceptions that reached die(), per core and kind.",
		}, []string{"core", "kind"}),
	}

	m.registry.MustRegister(
		m.instExecuted,
		m.cacheHits,
		m.cacheMisses,
		m.irqDelivered,
		m.exceptionsTotal,
	)
	return m
}

// InstExecuted implements internal/core.Metrics.
func (m *Metrics) InstExecuted(coreID string) { m.instExecuted.WithLabelValues(coreID).Inc() }

// CacheHit implements internal/core.Metrics.
func (m *Metrics) CacheHit(coreID string) { m.cacheHits.WithLabelValues(coreID).Inc() }

// CacheMiss implements internal/core.Metrics.
func (m *Metrics) CacheMiss(coreID string) { m.cacheMisses.WithLabelValues(coreID).Inc() }

// IRQDelivered implements internal/core.Metrics.
func (m *Metrics) IRQDelivered(coreID string) { m.irqDelivered.WithLabelValues(coreID).Inc() }

// ExceptionRaised implements internal/core.Metrics.
func (m *Metrics) ExceptionRaised(coreID, kind string) {
	m.exceptionsTotal.WithLabelValues(coreID, kind).Inc()
}

// Handler returns the HTTP handler promhttp should serve at
// --metrics-addr.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
