package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder collects bracket service metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	operations          *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	reveals             *prometheus.CounterVec
	archives            *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cueclub",
			Subsystem: "bracket",
			Name:      "operations_total",
			Help:      "Bracket operations by name and result.",
		}, []string{"op", "result"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cueclub",
			Subsystem: "bracket",
			Name:      "persistence_failures_total",
			Help:      "Saves that failed and left the bracket unsaved.",
		}),
		reveals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cueclub",
			Subsystem: "bracket",
			Name:      "reveals_total",
			Help:      "Reveal sequences by outcome.",
		}, []string{"outcome"}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cueclub",
			Subsystem: "bracket",
			Name:      "archives_total",
			Help:      "Final bracket uploads by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.operations,
		r.persistenceFailures,
		r.reveals,
		r.archives,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Operation(op, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
}

func (r *Recorder) PersistenceFailure() {
	if r == nil {
		return
	}
	r.persistenceFailures.Inc()
}

func (r *Recorder) Reveal(outcome string) {
	if r == nil {
		return
	}
	r.reveals.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Archive(result string) {
	if r == nil {
		return
	}
	r.archives.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
