package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts gateway activity. Register the collectors on whatever
// registry the embedding process exposes; a nil *Metrics disables counting.
type Metrics struct {
	requests  *prometheus.CounterVec
	refreshes prometheus.Counter
	retries   prometheus.Counter
}

// NewMetrics creates the gateway collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rbac_gateway_requests_total",
			Help: "API requests by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rbac_gateway_token_refreshes_total",
			Help: "Access token renewals triggered by the gateway.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rbac_gateway_retries_total",
			Help: "Requests replayed after a 401 and a successful refresh.",
		}),
	}
	reg.MustRegister(m.requests, m.refreshes, m.retries)
	return m
}

func (m *Metrics) recordRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordRefresh() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}

func (m *Metrics) recordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
