// Package metrics holds the Prometheus collectors of the simulation and a
// small server exposing them on /metrics with a /health probe.
//
// Every recording method is safe on a nil *Metrics so components can run
// without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"onionnet/internal/domain"
	"onionnet/internal/protocol/onion"
)

const promNamespace = "onionnet"

// Metrics groups the collectors shared by all participants of a process.
type Metrics struct {
	layersPeeled     *prometheus.CounterVec // by node and outcome
	forwardFailures  *prometheus.CounterVec // by node
	circuitsBuilt    prometheus.Counter
	nodeSelections   *prometheus.CounterVec // by node
	messagesSent     prometheus.Counter
	messagesReceived prometheus.Counter
	registeredNodes  prometheus.Gauge
}

// New returns unregistered collectors.
func New() *Metrics {
	return &Metrics{
		layersPeeled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "router",
			Name:      "layers_peeled_total",
			Help:      "Layers processed by routers, by outcome.",
		}, []string{"node", "outcome"}),
		forwardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "router",
			Name:      "forward_failures_total",
			Help:      "Layers a router failed to deliver to the next hop.",
		}, []string{"node"}),
		circuitsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "user",
			Name:      "circuits_built_total",
			Help:      "Circuits selected by users.",
		}),
		nodeSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "user",
			Name:      "node_selections_total",
			Help:      "Times each router was placed on a circuit.",
		}, []string{"node"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "user",
			Name:      "messages_sent_total",
			Help:      "Messages handed to an entry router.",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "user",
			Name:      "messages_received_total",
			Help:      "Plaintext messages delivered to users.",
		}),
		registeredNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "registry",
			Name:      "nodes",
			Help:      "Routers currently registered in the directory.",
		}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.layersPeeled,
		m.forwardFailures,
		m.circuitsBuilt,
		m.nodeSelections,
		m.messagesSent,
		m.messagesReceived,
		m.registeredNodes,
	}
}

// LayerPeeled records the outcome of one peel.
func (m *Metrics) LayerPeeled(node domain.NodeID, res onion.Result) {
	if m == nil {
		return
	}
	outcome := "ok"
	if res.Degraded() {
		outcome = "degraded_" + res.FailedAt.String()
	}
	m.layersPeeled.WithLabelValues(node.String(), outcome).Inc()
}

// ForwardFailed records a failed delivery to the next hop.
func (m *Metrics) ForwardFailed(node domain.NodeID) {
	if m == nil {
		return
	}
	m.forwardFailures.WithLabelValues(node.String()).Inc()
}

// CircuitBuilt records one selected circuit.
func (m *Metrics) CircuitBuilt(c domain.Circuit) {
	if m == nil {
		return
	}
	m.circuitsBuilt.Inc()
	for _, n := range c {
		m.nodeSelections.WithLabelValues(n.NodeID.String()).Inc()
	}
}

// MessageSent records a message accepted by an entry router.
func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

// MessageReceived records a plaintext delivered to a user.
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
}

// RegisteredNodes sets the directory size.
func (m *Metrics) RegisteredNodes(n int) {
	if m == nil {
		return
	}
	m.registeredNodes.Set(float64(n))
}
