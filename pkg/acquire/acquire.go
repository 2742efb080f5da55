// Package acquire runs one sampling pass over every field transducer.
package acquire

import (
	"context"
	"math"
	"time"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/device"
	"github.com/itohio/agrimon/pkg/height"
	"github.com/itohio/agrimon/pkg/rain"
	"github.com/itohio/agrimon/pkg/sample"
	"go.uber.org/zap"
)

// Fault sources reported during acquisition.
const (
	FaultCropStress    = "crop stress sensor reading failed"
	FaultHeight        = "crop height sensor reading out of range"
	FaultHumidityRead  = "humidity sensor reading failed"
	FaultHumidityRange = "humidity sensor reading out of range"
	FaultWaterRead     = "water quality sensor reading failed"
	FaultWaterRange    = "water quality sensor reading out of range"
)

// Physical envelopes of the transducers.
const (
	tempMin = -20.0 // exclusive
	tempMax = 60.0  // exclusive

	tdsMin = 0.0
	tdsMax = 5000.0
	phMin  = 0.0
	phMax  = 14.0

	humidityMin = 0.0
	humidityMax = 100.0
	ambientMin  = -40.0
	ambientMax  = 80.0
)

// Sensors is the set of collaborators read during a pass.
type Sensors interface {
	device.TemperatureProbe
	device.AnalogReader
	device.HumidityModule
	device.Ranger
}

// FaultReporter receives faults at the point of detection.
type FaultReporter interface {
	Fault(source string)
}

// Acquirer produces one Snapshot per call to Acquire. It owns the height
// filter state and the retry policy of the crop/air temperature pair.
type Acquirer struct {
	sampling config.SamplingConfig
	channels config.ChannelConfig

	sensors Sensors
	gauge   *rain.Gauge
	height  *height.Filter
	faults  FaultReporter
	logger  *zap.SugaredLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an Acquirer.
func New(cfg *config.Config, sensors Sensors, gauge *rain.Gauge, filter *height.Filter, faults FaultReporter, logger *zap.SugaredLogger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Acquirer{
		sampling: cfg.Sampling,
		channels: cfg.Channels,
		sensors:  sensors,
		gauge:    gauge,
		height:   filter,
		faults:   faults,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Acquire runs every sub-group and returns the new snapshot. Groups that fail
// keep the values of prev (or record the out-of-range values) and report a
// fault; a failing group never prevents the others from running.
func (a *Acquirer) Acquire(ctx context.Context, prev sample.Snapshot) sample.Snapshot {
	s := prev
	s.TakenAt = a.now()

	a.readCropStress(ctx, &s)
	a.readRainfall(&s)
	a.readHeight(&s)
	a.readHumidity(&s)
	a.readWaterQuality(&s)

	a.logger.Debugw("acquired snapshot",
		"crop_stress", s.CropStress,
		"rainfall", s.Rainfall,
		"height", s.CropHeight,
		"tds", s.TDS,
		"ph", s.PH,
		"humidity", s.Humidity,
	)

	return s
}

// readCropStress reads the crop/air pair, retrying while either value is
// outside the probe envelope.
func (a *Acquirer) readCropStress(ctx context.Context, s *sample.Snapshot) {
	s.CropStressValid = false

	for attempt := 0; attempt < a.sampling.RetryAttempts; attempt++ {
		if attempt > 0 {
			a.sleep(ctx, a.sampling.RetryDelay)
		}

		crop, air := a.readTemperaturePair()
		s.CropTemperature = crop
		s.AirTemperature = air
		s.CropStress = crop - air

		if inOpenRange(crop, tempMin, tempMax) && inOpenRange(air, tempMin, tempMax) {
			s.CropStressValid = true
			return
		}

		a.logger.Debugw("temperature pair out of range", "attempt", attempt+1, "crop", crop, "air", air)
	}

	a.faults.Fault(FaultCropStress)
}

func (a *Acquirer) readTemperaturePair() (float64, float64) {
	if err := a.sensors.RequestConversion(); err != nil {
		a.logger.Debugw("temperature conversion request failed", "error", err)
		return math.NaN(), math.NaN()
	}

	crop := math.NaN()
	if code, err := a.sensors.ReadRawCode(a.channels.CropTemperature); err != nil {
		a.logger.Debugw("crop temperature read failed", "error", err)
	} else {
		crop = sample.CropTemperature(code)
	}

	air, err := a.sensors.ReadCelsius(a.channels.AirProbe)
	if err != nil {
		a.logger.Debugw("air temperature read failed", "error", err)
		air = math.NaN()
	}

	return crop, air
}

func (a *Acquirer) readRainfall(s *sample.Snapshot) {
	s.RainTips, s.Rainfall = a.gauge.Read()
}

func (a *Acquirer) readHeight(s *sample.Snapshot) {
	s.HeightValid = false

	rt, err := a.sensors.PulseRoundTrip(a.sampling.EchoTimeout)
	if err != nil {
		a.logger.Debugw("ranger read failed", "error", err)
		rt = 0
	}

	h, err := a.height.Update(sample.EchoDistance(rt))
	if err != nil {
		a.logger.Debugw("height reading rejected", "error", err)
		a.faults.Fault(FaultHeight)
		return
	}

	s.CropHeight = h
	s.HeightValid = true
}

func (a *Acquirer) readHumidity(s *sample.Snapshot) {
	s.HumidityValid = false

	h, err := a.sensors.ReadHumidity()
	if err != nil {
		a.logger.Debugw("humidity read failed", "error", err)
		h = math.NaN()
	}
	t, err := a.sensors.ReadTemperature()
	if err != nil {
		a.logger.Debugw("ambient temperature read failed", "error", err)
		t = math.NaN()
	}

	if math.IsNaN(h) || math.IsNaN(t) {
		a.faults.Fault(FaultHumidityRead)
		return
	}

	s.Humidity = h
	s.AmbientTemperature = t

	if !inClosedRange(h, humidityMin, humidityMax) || !inClosedRange(t, ambientMin, ambientMax) {
		a.faults.Fault(FaultHumidityRange)
		return
	}

	s.HumidityValid = true
}

func (a *Acquirer) readWaterQuality(s *sample.Snapshot) {
	s.WaterValid = false

	tdsCode, err1 := a.sensors.ReadRawCode(a.channels.TDS)
	phCode, err2 := a.sensors.ReadRawCode(a.channels.PH)
	turbidityCode, err3 := a.sensors.ReadRawCode(a.channels.Turbidity)
	if err1 != nil || err2 != nil || err3 != nil {
		a.logger.Debugw("water quality read failed", "tds", err1, "ph", err2, "turbidity", err3)
		a.faults.Fault(FaultWaterRead)
		return
	}

	s.TDS = sample.TDS(tdsCode, s.CompensationTemperature())
	s.PH = sample.PH(phCode)
	s.Turbidity = sample.Turbidity(turbidityCode)

	if !inClosedRange(s.TDS, tdsMin, tdsMax) || !inClosedRange(s.PH, phMin, phMax) {
		a.faults.Fault(FaultWaterRange)
		return
	}

	s.WaterValid = true
}

func inOpenRange(v, lo, hi float64) bool {
	return v > lo && v < hi
}

func inClosedRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
