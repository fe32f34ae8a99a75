package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icepay-gateway/internal/domains/payment/model"
)

const namespace = "icepay"

// Recorder exposes reconciliation and retry telemetry.
type Recorder struct {
	reconciles      *prometheus.CounterVec
	reconcileTime   *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	postbackRetries *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		reconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliations by channel and outcome or error code.",
		}, []string{"channel", "outcome"}),

		reconcileTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling one remote result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Committed local payment state transitions.",
		}, []string{"from", "to"}),

		postbackRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postback_retries_total",
			Help:      "Replayed postbacks by result.",
		}, []string{"result"}),
	}
}

func (r *Recorder) ObserveReconcile(channel model.Channel, outcome string, elapsed time.Duration) {
	r.reconciles.WithLabelValues(string(channel), outcome).Inc()
	r.reconcileTime.WithLabelValues(string(channel)).Observe(elapsed.Seconds())
}

func (r *Recorder) IncTransition(from, to model.LocalState) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObservePostbackRetries records one run of the retry job.
func (r *Recorder) ObservePostbackRetries(attempted, succeeded int) {
	r.postbackRetries.WithLabelValues("succeeded").Add(float64(succeeded))
	r.postbackRetries.WithLabelValues("failed").Add(float64(attempted - succeeded))
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
