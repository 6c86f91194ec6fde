package sam

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 推理指标
type Metrics struct {
	encodeDuration    prometheus.Histogram
	decodeDuration    prometheus.Histogram
	errorsTotal       *prometheus.CounterVec
	embeddingResident prometheus.Gauge
}

// NewMetrics 创建指标并注册到 reg (reg 为 nil 时不注册)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobilesam_encode_duration_seconds",
			Help:    "Image preprocessing plus encoder inference duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		decodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mobilesam_decode_duration_seconds",
			Help:    "Prompt decoding and mask postprocessing duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mobilesam_errors_total",
			Help: "Total number of failed operations",
		}, []string{"op", "kind"}),
		embeddingResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mobilesam_embedding_resident",
			Help: "1 when an image embedding is cached, 0 otherwise",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.encodeDuration, m.decodeDuration, m.errorsTotal, m.embeddingResident)
	}
	return m
}

func (m *Metrics) observeEncode(start time.Time) {
	m.encodeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeDecode(start time.Time) {
	m.decodeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordError(op string, err error) {
	m.errorsTotal.WithLabelValues(op, KindOf(err).String()).Inc()
}

func (m *Metrics) setResident(resident bool) {
	if resident {
		m.embeddingResident.Set(1)
	} else {
		m.embeddingResident.Set(0)
	}
}
