// Copyright 2024 The vaultchain Authors
// This file is part of the vaultchain library.
//
// The vaultchain library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The vaultchain library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the vaultchain library. If not, see <http://www.gnu.org/licenses/>.

// Package metrics collects the node's runtime counters and gauges behind a
// single Registry, wrapping prometheus/client_golang the way the RPC
// surface (out of scope here) would expose them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the node-wide metrics collaborator. Every subsystem
// constructor that wants metrics takes one and registers against it, so
// tests can pass a throwaway Registry without touching the default
// prometheus registerer.
type Registry struct {
	reg *prometheus.Registry

	BlockProcessorQueueDepth prometheus.Gauge
	BlockProcessorForcedDepth prometheus.Gauge
	BlocksProcessed          *prometheus.CounterVec

	CementedBlocksTotal prometheus.Counter
	CementRate          prometheus.Gauge

	VotesAdmitted *prometheus.CounterVec
	VotesDropped  *prometheus.CounterVec

	BootstrapPullsInFlight prometheus.Gauge
	BootstrapPullsTotal    *prometheus.CounterVec
	BootstrapConnections   prometheus.Gauge

	PeersExcluded prometheus.Gauge
}

// New constructs a Registry with every collector registered against a
// fresh prometheus.Registry (never the global DefaultRegisterer, so
// concurrent tests never collide on metric names).
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		BlockProcessorQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "blockproc", Name: "queue_depth",
			Help: "Number of blocks waiting in the main processing queue.",
		}),
		BlockProcessorForcedDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "blockproc", Name: "forced_depth",
			Help: "Number of blocks waiting in the forced (bootstrap/local) queue.",
		}),
		BlocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultchain", Subsystem: "blockproc", Name: "processed_total",
			Help: "Blocks processed, labeled by process_one result.",
		}, []string{"result"}),
		CementedBlocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vaultchain", Subsystem: "confheight", Name: "cemented_total",
			Help: "Total blocks advanced to cemented status.",
		}),
		CementRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "confheight", Name: "cement_rate",
			Help: "Most recently observed cementations per second.",
		}),
		VotesAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultchain", Subsystem: "vote", Name: "admitted_total",
			Help: "Votes admitted into the processor, labeled by tier.",
		}, []string{"tier"}),
		VotesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultchain", Subsystem: "vote", Name: "dropped_total",
			Help: "Votes dropped under load, labeled by tier.",
		}, []string{"tier"}),
		BootstrapPullsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "bootstrap", Name: "pulls_in_flight",
			Help: "Bulk pull requests currently outstanding.",
		}),
		BootstrapPullsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultchain", Subsystem: "bootstrap", Name: "pulls_total",
			Help: "Completed bulk pull requests, labeled by outcome.",
		}, []string{"outcome"}),
		BootstrapConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "bootstrap", Name: "connections",
			Help: "Currently pooled bootstrap client connections.",
		}),
		PeersExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vaultchain", Subsystem: "network", Name: "peers_excluded",
			Help: "Peers currently in the exclusion window.",
		}),
	}
	reg.MustRegister(
		m.BlockProcessorQueueDepth, m.BlockProcessorForcedDepth, m.BlocksProcessed,
		m.CementedBlocksTotal, m.CementRate,
		m.VotesAdmitted, m.VotesDropped,
		m.BootstrapPullsInFlight, m.BootstrapPullsTotal, m.BootstrapConnections,
		m.PeersExcluded,
	)
	return m
}

// Gatherer exposes the underlying prometheus.Gatherer for an HTTP /metrics
// handler (wired by the out-of-scope RPC surface).
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }
