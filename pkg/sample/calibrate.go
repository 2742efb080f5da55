package sample

import (
	"math"
	"time"
)

const (
	// ADCMax is the largest code of the 10-bit hub ADC.
	ADCMax = 1023
	// ADCVRef is the hub ADC reference voltage (V).
	ADCVRef = 5.0

	// Conductivity probes are referenced to 25 °C and drift ~2 %/°C.
	tdsReferenceTemp = 25.0
	tdsTempCoeff     = 0.02
	tdsMinCompTemp   = -20.0
	tdsMaxCompTemp   = 60.0

	phNeutralVoltage = 2.5
	phVoltsPerUnit   = 0.18

	turbidityMidVoltage = 2.5
	turbidityNTUPerVolt = -1120.4
	turbidityMidNTU     = 3000.0

	// Speed of sound in cm/µs.
	soundSpeed = 0.034
)

// ADCVoltage converts a 10-bit ADC code to voltage over the 0-5 V range.
func ADCVoltage(raw int) float64 {
	return float64(raw) * ADCVRef / 1024.0
}

// TDS converts a raw conductivity code to total dissolved solids (ppm).
// compensationTemp is the water temperature in °C; NaN or values outside
// -20..60 °C fall back to 25 °C.
func TDS(raw int, compensationTemp float64) float64 {
	t := compensationTemp
	if math.IsNaN(t) || t < tdsMinCompTemp || t > tdsMaxCompTemp {
		t = tdsReferenceTemp
	}

	coeff := 1.0 + tdsTempCoeff*(t-tdsReferenceTemp)
	v := ADCVoltage(raw) / coeff

	return (133.42*v*v*v - 255.86*v*v + 857.39*v) * 0.5
}

// PH converts a raw pH probe code to pH units.
func PH(raw int) float64 {
	return 7.0 + (phNeutralVoltage-ADCVoltage(raw))/phVoltsPerUnit
}

// Turbidity converts a raw turbidity probe code to NTU.
func Turbidity(raw int) float64 {
	return (ADCVoltage(raw)-turbidityMidVoltage)*turbidityNTUPerVolt + turbidityMidNTU
}

// CropTemperature converts a raw canopy probe code to °C (10 mV/°C).
func CropTemperature(raw int) float64 {
	return ADCVoltage(raw) * 100.0
}

// EchoDistance converts an ultrasonic round trip to a one-way distance in cm.
// A zero duration (echo timeout) yields zero.
func EchoDistance(roundTrip time.Duration) float64 {
	us := float64(roundTrip) / float64(time.Microsecond)
	return us * soundSpeed / 2
}
