package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.vocdoni.io/ledger/log"
)

// Namespace prefixes every ledger collector.
const Namespace = "ledger"

// Register the provided prometheus collector, ignoring any error returned (simply logs a Warn).
// Registering the same collector twice is not reported.
func Register(c prometheus.Collector) {
	err := prometheus.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return
	}
	if err != nil {
		log.Warnf("cannot register metrics: (%s) (%+v)", err, c)
	}
}

// WriteText writes the current value of every registered ledger collector to
// w in the prometheus text format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("cannot gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
