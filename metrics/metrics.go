package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecognitionsTotal *prometheus.CounterVec
	NFCScansStored    prometheus.Counter
	EventsPublished   prometheus.Counter
	StreamSubscribers prometheus.Gauge
}

// New registers the instruments on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the instruments on the given registry; tests pass a
// fresh prometheus.NewRegistry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecognitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_scanner_recognitions_total",
			Help: "Total number of recognition attempts by outcome code",
		}, []string{"outcome"}),
		NFCScansStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_scanner_nfc_scans_stored_total",
			Help: "Total number of NFC scan records stored",
		}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "passport_scanner_events_published_total",
			Help: "Total number of events published on the notification bus",
		}),
		StreamSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passport_scanner_stream_subscribers",
			Help: "Current number of connected event stream subscribers",
		}),
	}
}

// ObserveRecognition records one finished recognition attempt. The outcome
// is "ok" for a successful extraction or the stable error code otherwise.
func (m *Metrics) ObserveRecognition(outcome string) {
	m.RecognitionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementNFCScans() {
	m.NFCScansStored.Inc()
}

func (m *Metrics) IncrementEventsPublished() {
	m.EventsPublished.Inc()
}

func (m *Metrics) AddStreamSubscriber() {
	m.StreamSubscribers.Inc()
}

func (m *Metrics) RemoveStreamSubscriber() {
	m.StreamSubscribers.Dec()
}
