package metrics

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAndWrite(t *testing.T) {
	c := qt.New(t)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_events_total",
		Help:      "Events seen by the metrics test",
	})
	Register(counter)
	Register(counter) // already registered, ignored
	counter.Add(3)

	var buf bytes.Buffer
	c.Assert(WriteText(&buf), qt.IsNil)
	c.Assert(buf.String(), qt.Contains, "ledger_test_events_total 3")
	c.Assert(buf.String(), qt.Not(qt.Contains), "go_goroutines")
}
