package store

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/ledger/metrics"
)

var (
	electionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "elections_created_total",
		Help:      "Number of elections created or overwritten",
	})
	registerOnce sync.Once
)

// RegisterMetrics registers the store collectors in the default prometheus
// registry. It can be called more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		metrics.Register(electionsCreated)
	})
}
