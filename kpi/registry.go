package kpi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the accumulators of a running simulation as
// Prometheus collectors, so an external aggregator can scrape live
// totals instead of only reading a one-shot snapshot. It owns no
// scheduling logic and never blocks a simulation step.
type Registry struct {
	nodes map[int]*Accumulator

	energyTotal     *prometheus.GaugeVec
	discoverySent   *prometheus.GaugeVec
	discoveryRecv   *prometheus.GaugeVec
	discoverySucc   *prometheus.GaugeVec
	syncAttempts    *prometheus.GaugeVec
	acksReceived    *prometheus.GaugeVec
}

// NewRegistry creates a Registry with its collectors registered
// against reg. Nodes are attached with Track as they are created.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		nodes: make(map[int]*Accumulator),
		energyTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "energy_total_joules",
			Help:      "Cumulative energy discharged by a node's energy store.",
		}, []string{"node_id"}),
		discoverySent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "discovery_sent_total",
			Help:      "DISC cycles in which this node transmitted the broadcast.",
		}, []string{"node_id"}),
		discoveryRecv: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "discovery_received_total",
			Help:      "DISC cycles in which this node was the listener.",
		}, []string{"node_id"}),
		discoverySucc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "discovery_success_rate_pct",
			Help:      "Percentage of transmitted DISC broadcasts eventually acknowledged.",
		}, []string{"node_id"}),
		syncAttempts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "sync_attempts_total",
			Help:      "SYNC packets transmitted by this node.",
		}, []string{"node_id"}),
		acksReceived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ehwsn",
			Subsystem: "node",
			Name:      "acks_received_total",
			Help:      "ACK packets received by this node.",
		}, []string{"node_id"}),
	}

	reg.MustRegister(
		r.energyTotal,
		r.discoverySent,
		r.discoveryRecv,
		r.discoverySucc,
		r.syncAttempts,
		r.acksReceived,
	)
	return r
}

// Track associates a node id with its accumulator so Collect can read
// it on every scrape.
func (r *Registry) Track(nodeID int, acc *Accumulator) {
	r.nodes[nodeID] = acc
}

// Collect refreshes every gauge from its accumulator's current value.
// It must be called before each scrape (the simulation driver calls it
// after every RunTo); Prometheus gauges are pull-based snapshots, not
// push counters, so there is no other way to keep them current for a
// simulation that does not run its own goroutine.
func (r *Registry) Collect() {
	for id, acc := range r.nodes {
		label := strconv.Itoa(id)
		r.energyTotal.WithLabelValues(label).Set(acc.TotalEnergyJ)
		r.discoverySent.WithLabelValues(label).Set(float64(acc.DiscoverySent))
		r.discoveryRecv.WithLabelValues(label).Set(float64(acc.DiscoveryReceived))
		r.discoverySucc.WithLabelValues(label).Set(acc.DiscoverySuccessRatePct())
		r.syncAttempts.WithLabelValues(label).Set(float64(acc.SyncAttempts))
		r.acksReceived.WithLabelValues(label).Set(float64(acc.AcksReceived))
	}
}
