package settlement

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts pipeline activity on a private registry so tests never
// collide on the default one.
type Metrics struct {
	registry           *prometheus.Registry
	submissionsTotal   *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	inFlight           prometheus.Gauge
}

func NewMetrics() *Metrics {
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlascipher_submissions_total",
		Help: "Contract call submissions by kind and outcome",
	}, []string{"kind", "outcome"})

	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlascipher_confirmations_total",
		Help: "Receipt resolutions by outcome",
	}, []string{"outcome"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "atlascipher_submissions_in_flight",
		Help: "Records currently submitting or awaiting confirmation",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(submissions, confirmations, inFlight)

	return &Metrics{
		registry:           r,
		submissionsTotal:   submissions,
		confirmationsTotal: confirmations,
		inFlight:           inFlight,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) incSubmission(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind.String(), outcome).Inc()
}

func (m *Metrics) incConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addInFlight(delta float64) {
	if m == nil {
		return
	}
	m.inFlight.Add(delta)
}
