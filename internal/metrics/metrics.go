// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts opened class sessions.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_sessions_started_total",
		Help: "Number of class sessions started.",
	})

	// Submissions counts attendance submissions by resulting status.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classattend_submissions_total",
		Help: "Number of attendance submissions by status.",
	}, []string{"status"})

	// Exports counts spreadsheet exports.
	Exports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_exports_total",
		Help: "Number of attendance spreadsheet exports.",
	})
)
