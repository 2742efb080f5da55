package report

import (
	"github.com/itohio/agrimon/pkg/sample"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes controller activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	faults      *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	persisted   prometheus.Counter
	storeErrors prometheus.Counter
	readings    *prometheus.GaugeVec
	rainTips    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimon_faults_total",
			Help: "Faults reported, by source.",
		}, []string{"source"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrimon_alerts_total",
			Help: "Alert reasons raised, by reason.",
		}, []string{"reason"}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrimon_snapshots_persisted_total",
			Help: "Snapshots written to the data store.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrimon_store_errors_total",
			Help: "Failed writes to the data store or event logs.",
		}),
		readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agrimon_reading",
			Help: "Latest calibrated reading, by quantity.",
		}, []string{"quantity"}),
		rainTips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agrimon_rain_tips",
			Help: "Debounced rain gauge tips since start.",
		}),
	}

	reg.MustRegister(m.faults, m.alerts, m.persisted, m.storeErrors, m.readings, m.rainTips)

	return m
}

func (m *Metrics) fault(source string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(source).Inc()
}

func (m *Metrics) alert(reasons []string) {
	if m == nil {
		return
	}
	for _, r := range reasons {
		m.alerts.WithLabelValues(r).Inc()
	}
}

func (m *Metrics) persist(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.storeErrors.Inc()
		return
	}
	m.persisted.Inc()
}

func (m *Metrics) storeError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

// Observe updates the reading gauges from s.
func (m *Metrics) Observe(s sample.Snapshot) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues("crop_temperature").Set(s.CropTemperature)
	m.readings.WithLabelValues("air_temperature").Set(s.AirTemperature)
	m.readings.WithLabelValues("crop_stress").Set(s.CropStress)
	m.readings.WithLabelValues("rainfall").Set(s.Rainfall)
	m.readings.WithLabelValues("crop_height").Set(s.CropHeight)
	m.readings.WithLabelValues("tds").Set(s.TDS)
	m.readings.WithLabelValues("ph").Set(s.PH)
	m.readings.WithLabelValues("turbidity").Set(s.Turbidity)
	m.readings.WithLabelValues("humidity").Set(s.Humidity)
	m.readings.WithLabelValues("ambient_temperature").Set(s.AmbientTemperature)
	m.rainTips.Set(float64(s.RainTips))
}
