// Package metrics exposes the MAC, encoding, physical, and engine
// health counters as prometheus collectors, served by the daemon's HTTP
// API alongside its JSON endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the engine updates as it runs. It
// wraps a private prometheus.Registry rather than using the global
// default so a test can construct as many independent Registries as it
// needs without collector-already-registered panics.
type Registry struct {
	registry *prometheus.Registry

	SlotUtilization prometheus.Gauge
	QueueDepth      prometheus.Gauge
	CollisionsTotal prometheus.Counter
	CrcFailuresTotal prometheus.Counter
	FramesRxTotal   prometheus.Counter
	FramesTxTotal   prometheus.Counter
	CorrectedBitsTotal prometheus.Counter
	NoPreambleTotal prometheus.Counter
}

// NewRegistry constructs and registers every collector.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.SlotUtilization = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "acoumesh",
		Subsystem: "mac",
		Name:      "slot_utilization",
		Help:      "Fraction of TDMA slots currently assigned, in [0, 1].",
	})
	r.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "acoumesh",
		Subsystem: "mac",
		Name:      "queue_depth",
		Help:      "Number of frames currently waiting in the transmit queue.",
	})
	r.CollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "mac",
		Name:      "collisions_total",
		Help:      "Total slot collisions observed by this device.",
	})
	r.CrcFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "encoding",
		Name:      "crc_failures_total",
		Help:      "Total frames dropped for CRC mismatch.",
	})
	r.FramesRxTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "engine",
		Name:      "frames_rx_total",
		Help:      "Total frames successfully decoded and parsed.",
	})
	r.FramesTxTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "engine",
		Name:      "frames_tx_total",
		Help:      "Total frames handed to the physical layer for transmission.",
	})
	r.CorrectedBitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "encoding",
		Name:      "fec_corrected_bits_total",
		Help:      "Total bit positions recovered by FEC majority vote.",
	})
	r.NoPreambleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "acoumesh",
		Subsystem: "physical",
		Name:      "no_preamble_total",
		Help:      "Total sample blocks discarded for lack of a correlated preamble.",
	})

	r.registry.MustRegister(
		r.SlotUtilization,
		r.QueueDepth,
		r.CollisionsTotal,
		r.CrcFailuresTotal,
		r.FramesRxTotal,
		r.FramesTxTotal,
		r.CorrectedBitsTotal,
		r.NoPreambleTotal,
	)

	return r
}

// Handler returns the HTTP handler serving this registry's collectors
// in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
