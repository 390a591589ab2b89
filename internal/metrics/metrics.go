// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lexgate"

var (
	BrowserLaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_launches_total",
		Help:      "Browser processes started.",
	})
	BrowserLaunchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_launch_failures_total",
		Help:      "Browser launches that failed.",
	})
	BrowserRelaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_relaunches_total",
		Help:      "Launches caused by a dead browser process.",
	})
	PagesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pages_in_use",
		Help:      "Pages currently leased to searches.",
	})

	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Searches handled, by source and outcome (ok or error kind).",
	}, []string{"source", "outcome"})
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Wall-clock search duration.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90},
	}, []string{"source"})
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Provider login attempts, by source and result.",
	}, []string{"source", "result"})
	SessionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_lookups_total",
		Help:      "Session cache lookups, by source and hit or miss.",
	}, []string{"source", "result"})
	ResultWaitTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_wait_timeouts_total",
		Help:      "Searches where no result marker appeared before the wait elapsed.",
	}, []string{"source"})
)
