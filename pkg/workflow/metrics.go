package workflow

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Workflow names used as metric labels.
const (
	WorkflowSaveProfile = "save_profile"
	WorkflowAddToBag    = "add_to_bag"
	WorkflowFetchStore  = "fetch_store"
	WorkflowLoadProduct = "load_product"
)

// Outcome labels.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

type metrics struct {
	runs     *prometheus.CounterVec
	steps    *prometheus.HistogramVec
	inflight *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Subsystem: "workflow",
				Name:      "runs_total",
				Help:      "Workflow runs by outcome",
			},
			[]string{"workflow", "outcome"},
		),
		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storefront",
				Subsystem: "workflow",
				Name:      "step_seconds",
				Help:      "Time spent waiting on one workflow step",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"workflow", "step"},
		),
		inflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "storefront",
				Subsystem: "workflow",
				Name:      "inflight",
				Help:      "Workflow runs currently in progress",
			},
			[]string{"workflow"},
		),
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	var err error
	m.runs, err = register(reg, m.runs)
	if err != nil {
		return nil, err
	}
	m.steps, err = register(reg, m.steps)
	if err != nil {
		return nil, err
	}
	m.inflight, err = register(reg, m.inflight)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses a collector that is already registered under the same
// descriptor so several orchestrators can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// begin marks a run in flight and returns the func recording its outcome.
func (m *metrics) begin(workflow string) func(outcome string) {
	gauge := m.inflight.WithLabelValues(workflow)
	gauge.Inc()
	return func(outcome string) {
		gauge.Dec()
		m.runs.WithLabelValues(workflow, outcome).Inc()
	}
}

func (m *metrics) observeStep(workflow, step string, started time.Time) {
	m.steps.WithLabelValues(workflow, step).Observe(time.Since(started).Seconds())
}
