package device

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/agrimon/pkg/config"
)

// Nominal water chemistry codes produced by the simulated hub.
const (
	mockTDSCode       = 205 // ~370 ppm at 25 °C
	mockPHCode        = 530 // ~pH 6.5
	mockTurbidityCode = 1000
)

// Mock simulates a sensor hub for testing and development. Its real-time
// clock is the host clock.
type Mock struct {
	SystemClock

	cfg      *config.MockConfig
	channels config.ChannelConfig

	edges     chan time.Time
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	startTime   time.Time
	indicator   bool
	toggles     int
	conversions int
}

// NewMock creates a new simulated hub.
func NewMock(cfg *config.MockConfig, channels config.ChannelConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      cfg,
		channels: channels,
		edges:    make(chan time.Time, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect simulates connecting to the hub.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateEdges()

	return nil
}

// Close stops the simulated hub and closes the edges channel. A closed hub
// cannot be connected again.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	return nil
}

// IsConnected returns whether the hub is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Edges returns the simulated rain gauge edge channel.
func (m *Mock) Edges() <-chan time.Time {
	return m.edges
}

// RequestConversion counts the conversion request.
func (m *Mock) RequestConversion() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.conversions++
	return nil
}

// ReadCelsius returns the simulated air temperature for any probe index.
func (m *Mock) ReadCelsius(index int) (float64, error) {
	if !m.IsConnected() {
		return 0, ErrNotConnected
	}
	return m.cfg.AirTemperature + m.noise(0.5), nil
}

// ReadRawCode returns the simulated code for the configured channel.
func (m *Mock) ReadRawCode(channel int) (int, error) {
	if !m.IsConnected() {
		return 0, ErrNotConnected
	}

	switch channel {
	case m.channels.CropTemperature:
		// 10 mV/°C probe on a 5 V, 10-bit converter
		return clampCode((m.cfg.CropTemperature + m.noise(0.5)) / 100.0 * 1024.0 / 5.0), nil
	case m.channels.TDS:
		return clampCode(mockTDSCode * (1 + m.noise(0.02))), nil
	case m.channels.PH:
		return clampCode(mockPHCode * (1 + m.noise(0.01))), nil
	case m.channels.Turbidity:
		return clampCode(mockTurbidityCode * (1 + m.noise(0.01))), nil
	}
	return 0, fmt.Errorf("no transducer on analog channel %d", channel)
}

// ReadHumidity returns the simulated relative humidity.
func (m *Mock) ReadHumidity() (float64, error) {
	if !m.IsConnected() {
		return math.NaN(), ErrNotConnected
	}
	return m.cfg.Humidity + m.noise(2), nil
}

// ReadTemperature returns the simulated module temperature.
func (m *Mock) ReadTemperature() (float64, error) {
	if !m.IsConnected() {
		return math.NaN(), ErrNotConnected
	}
	return m.cfg.AirTemperature + m.noise(0.3), nil
}

// PulseRoundTrip returns the simulated echo round trip, or zero when the
// simulated distance is beyond the timeout.
func (m *Mock) PulseRoundTrip(timeout time.Duration) (time.Duration, error) {
	if !m.IsConnected() {
		return 0, ErrNotConnected
	}
	distance := m.cfg.Distance + m.noise(1)
	us := distance * 2 / 0.034
	rt := time.Duration(us * float64(time.Microsecond))
	if rt <= 0 || rt > timeout {
		return 0, nil
	}
	return rt, nil
}

// SetIndicator records the simulated indicator state.
func (m *Mock) SetIndicator(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indicator != on {
		m.toggles++
	}
	m.indicator = on
	return nil
}

// Indicator returns the indicator state and the number of state changes.
func (m *Mock) Indicator() (bool, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indicator, m.toggles
}

// generateEdges emits a rain tip every RainTipPeriod followed by a contact
// bounce, until the hub is closed.
func (m *Mock) generateEdges() {
	defer close(m.edges)

	if m.cfg.RainTipPeriod <= 0 {
		<-m.ctx.Done()
		return
	}

	ticker := time.NewTicker(m.cfg.RainTipPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			for _, t := range []time.Time{now, now.Add(5 * time.Millisecond)} {
				select {
				case m.edges <- t:
				case <-m.ctx.Done():
					return
				default:
					// Channel full, skip
				}
			}
		}
	}
}

// noise returns a deterministic pseudo-noise value in ±amplitude×NoiseLevel×100.
func (m *Mock) noise(amplitude float64) float64 {
	m.mu.RLock()
	elapsed := time.Since(m.startTime)
	m.mu.RUnlock()

	n := (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
		math.Cos(float64(elapsed.Nanoseconds())*0.0013)) * 0.5
	return n * amplitude * m.cfg.NoiseLevel * 100
}

func clampCode(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 1023 {
		return 1023
	}
	return int(v + 0.5)
}
