package metrics

import "github.com/prometheus/client_golang/prometheus"

// CatalogMetrics counts recommendation outcomes and calls to upstream
// services.
type CatalogMetrics struct {
	recommendations *prometheus.CounterVec
	upstream        *prometheus.CounterVec
}

func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	recommendations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_recommendations_total",
		Help: "Recommendation requests by kind and outcome.",
	}, []string{"kind", "outcome"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upstream_requests_total",
		Help: "Requests to upstream services by service and result.",
	}, []string{"service", "result"})
	reg.MustRegister(recommendations, upstream)
	return &CatalogMetrics{recommendations: recommendations, upstream: upstream}
}

// RecordRecommendation increments the outcome counter for one recommendation call.
func (c *CatalogMetrics) RecordRecommendation(kind, outcome string) {
	if c == nil || c.recommendations == nil {
		return
	}
	c.recommendations.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// RecordUpstream increments the result counter for one upstream call.
func (c *CatalogMetrics) RecordUpstream(service, result string) {
	if c == nil || c.upstream == nil {
		return
	}
	c.upstream.WithLabelValues(normalizeLabel(service), normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
