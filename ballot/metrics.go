package ballot

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/ledger/metrics"
)

// Outcomes of CastVote, as seen in the outcome label of the votes counter.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeBurned    = "burned"
	outcomeMissing   = "missing"
	outcomeRejected  = "rejected"
)

var (
	votes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "votes_total",
		Help:      "Number of ballots cast, by outcome",
	}, []string{"outcome"})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		metrics.Register(votes)
	})
}
