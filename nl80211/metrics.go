package nl80211

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric labels are deliberately absent: a proxy instance owns exactly one
// socket, so per-instance registries (the usual pattern in the daemon) are
// enough to tell channels apart.
type metrics struct {
	RequestsTotal        prometheus.Counter
	ResponsesTotal       prometheus.Counter
	TransportErrorsTotal prometheus.Counter
	DecodeErrorsTotal    prometheus.Counter
	BytesSentTotal       prometheus.Counter
	BytesReceivedTotal   prometheus.Counter
	FamilyID             prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_requests_total",
			Help: "Number of generic netlink requests written to the kernel.",
		}),
		ResponsesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_responses_total",
			Help: "Number of generic netlink messages parsed from receive buffers.",
		}),
		TransportErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_transport_errors_total",
			Help: "Number of socket send/receive failures.",
		}),
		DecodeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_decode_errors_total",
			Help: "Number of receive buffers rejected as malformed.",
		}),
		BytesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_bytes_sent_total",
			Help: "Bytes written to the netlink socket.",
		}),
		BytesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nl80211_bytes_received_total",
			Help: "Bytes read from the netlink socket.",
		}),
		FamilyID: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nl80211_family_id",
			Help: "Kernel-assigned nl80211 generic netlink family id.",
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.RequestsTotal,
		m.ResponsesTotal,
		m.TransportErrorsTotal,
		m.DecodeErrorsTotal,
		m.BytesSentTotal,
		m.BytesReceivedTotal,
		m.FamilyID,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
