/*
Copyright © 2026 the SeekMap authors.
This file is part of SeekMap.

SeekMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeekMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeekMap.  If not, see <http://www.gnu.org/licenses/>.*/

// Package metrics holds the Prometheus collectors shared by the engine,
// the boundary resolver and the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

var (
	// Derivations counts derivation passes by outcome
	// ("ok", "empty", "schema_error", "geometry_error", "busy", "superseded").
	Derivations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seekmap_derivations_total",
		Help: "Total derivation passes by outcome",
	}, []string{"outcome"})
	DerivationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seekmap_derivation_seconds",
		Help:    "Duration of derivation passes",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	// Questions counts folded questions by kind and state
	// ("applied", "unanswered", "unanswerable", "skipped").
	Questions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seekmap_questions_total",
		Help: "Total questions folded by kind and state",
	}, []string{"kind", "state"})
	BoundaryLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seekmap_boundary_lookups_total",
		Help: "Total external boundary lookups by outcome",
	}, []string{"outcome"})
	BoundaryLookupSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seekmap_boundary_lookup_seconds",
		Help:    "Duration of external boundary lookups",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	// CacheTier counts second-tier cache reads by result ("hit", "miss", "error").
	CacheTier = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seekmap_cache_tier_total",
		Help: "Second-tier boundary cache reads by result",
	}, []string{"result"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seekmap_http_requests_total",
		Help: "Total HTTP API requests by route and status code",
	}, []string{"route", "code"})
)

func init() {
	Registry.MustRegister(Derivations)
	Registry.MustRegister(DerivationSeconds)
	Registry.MustRegister(Questions)
	Registry.MustRegister(BoundaryLookups)
	Registry.MustRegister(BoundaryLookupSeconds)
	Registry.MustRegister(CacheTier)
	Registry.MustRegister(HTTPRequests)
}

// Handler serves the collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
