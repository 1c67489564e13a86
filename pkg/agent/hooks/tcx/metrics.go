package tcx

import (
	"github.com/prometheus/client_golang/prometheus"

	"go.keploy.io/tcxchain/pkg/models"
)

const (
	instanceKey = "instance"
	orderKey    = "order"
)

// Metrics exports what the classifier chain is doing.
type Metrics struct {
	registry *prometheus.Registry
	matches  *prometheus.CounterVec
	attached *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tcxchain",
		Subsystem: "classifier",
		Name:      "matches_total",
		Help:      "Packets a classifier instance matched and handed to the next program.",
	}, []string{instanceKey})
	attached := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tcxchain",
		Subsystem: "classifier",
		Name:      "attached",
		Help:      "1 while the classifier instance is attached to the ingress hook.",
	}, []string{instanceKey, orderKey})
	registry.MustRegister(matches, attached)
	return &Metrics{
		registry: registry,
		matches:  matches,
		attached: attached,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(d models.Diagnostic) {
	m.matches.WithLabelValues(d.Instance).Inc()
}

func (m *Metrics) setAttached(inst models.InstanceSpec, attached bool) {
	v := 0.0
	if attached {
		v = 1
	}
	m.attached.WithLabelValues(inst.Name, inst.Order.String()).Set(v)
}
