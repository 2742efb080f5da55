package device

import "time"

// TemperatureProbe is a digital (one-wire) temperature probe bus.
type TemperatureProbe interface {
	RequestConversion() error
	ReadCelsius(index int) (float64, error)
}

// AnalogReader reads 10-bit transducer codes (0-1023).
type AnalogReader interface {
	ReadRawCode(channel int) (int, error)
}

// HumidityModule is a combined humidity/temperature module. Readings may be NaN.
type HumidityModule interface {
	ReadHumidity() (float64, error)
	ReadTemperature() (float64, error)
}

// Ranger is an ultrasonic ranger. A zero duration means the echo timed out.
type Ranger interface {
	PulseRoundTrip(timeout time.Duration) (time.Duration, error)
}

// Clock is the real-time clock.
type Clock interface {
	Now() (time.Time, error)
}

// Indicator is the fault/alert indicator output.
type Indicator interface {
	SetIndicator(on bool) error
}

// Hub is a sensor hub (real or mocked) owning every field transducer.
type Hub interface {
	TemperatureProbe
	AnalogReader
	HumidityModule
	Ranger
	Clock
	Indicator

	Connect() error
	Close() error
	IsConnected() bool
	// Edges delivers rain gauge falling edges. It is closed when the hub closes.
	Edges() <-chan time.Time
}

// Ensure Serial implements Hub.
var _ Hub = (*Serial)(nil)

// Ensure Mock implements Hub.
var _ Hub = (*Mock)(nil)

// SystemClock is a Clock backed by the host clock.
type SystemClock struct{}

// Now returns the host wall-clock time.
func (SystemClock) Now() (time.Time, error) {
	return time.Now(), nil
}
