package sample

import (
	"math"
	"time"
)

// Snapshot is the calibrated result of one acquisition pass. It is passed by
// value and replaced wholesale by the next pass.
type Snapshot struct {
	TakenAt time.Time // Monotonic time of the sampling tick

	CropTemperature float64 // °C
	AirTemperature  float64 // °C
	CropStress      float64 // °C, crop minus air

	RainTips int64   // Debounced bucket tips since start
	Rainfall float64 // mm, lifetime total

	CropHeight float64 // cm, filtered

	TDS       float64 // ppm
	PH        float64
	Turbidity float64 // NTU

	Humidity           float64 // %RH
	AmbientTemperature float64 // °C

	CropStressValid bool
	HeightValid     bool
	HumidityValid   bool
	WaterValid      bool
}

// Empty returns the snapshot used before the first acquisition pass.
// Ambient temperature is unknown, so it is NaN.
func Empty() Snapshot {
	return Snapshot{AmbientTemperature: math.NaN(), Humidity: math.NaN()}
}

// IsZero reports whether the snapshot was never produced by an acquisition pass.
func (s Snapshot) IsZero() bool {
	return s.TakenAt.IsZero()
}

// CompensationTemperature returns the ambient temperature to use for
// conductivity compensation. It is NaN until the humidity module has
// produced a numeric reading.
func (s Snapshot) CompensationTemperature() float64 {
	return s.AmbientTemperature
}
