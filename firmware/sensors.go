//go:build tinygo

package main

import (
	"errors"
	"machine"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	"tinygo.org/x/drivers/dht"
	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/onewire"
)

var (
	errNoSensor  = errors.New("no sensor")
	errNoChannel = errors.New("no channel")
	errNoRTC     = errors.New("rtc not running")
)

var (
	adcs [len(analogPins)]machine.ADC

	bus          onewire.Device
	thermometers ds18b20.Device
	romIDs       [][]uint8

	humidity dht.Device
	rtc      ds3231.Device
	rtcOK    bool

	// Rain edges captured by the interrupt handler, in µs since boot.
	edges    [EDGE_BUFFER]int64
	edgeHead atomic.Uint32
	edgeTail uint32
)

func setupSensors() {
	adcConfig := machine.ADCConfig{Resolution: ADC_RESOLUTION}
	for i, pin := range analogPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	bus = onewire.New(PIN_ONEWIRE)
	thermometers = ds18b20.New(bus)
	romIDs, _ = bus.Search(onewire.SEARCH_ROM)

	humidity = dht.New(PIN_DHT, dht.DHT22)

	machine.I2C0.Configure(machine.I2CConfig{})
	rtc = ds3231.New(machine.I2C0)
	rtc.Configure()
	rtcOK = rtc.IsRunning()

	PIN_TRIG.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_ECHO.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	PIN_RAIN.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_RAIN.SetInterrupt(machine.PinFalling, onRainEdge)
}

// onRainEdge runs in interrupt context. A full buffer drops the edge.
func onRainEdge(machine.Pin) {
	head := edgeHead.Load()
	if head-edgeTail >= EDGE_BUFFER {
		return
	}
	edges[head%EDGE_BUFFER] = time.Now().UnixMicro()
	edgeHead.Store(head + 1)
}

// nextEdge pops the oldest captured edge.
func nextEdge() (int64, bool) {
	if edgeTail == edgeHead.Load() {
		return 0, false
	}
	t := edges[edgeTail%EDGE_BUFFER]
	edgeTail++
	return t, true
}

// requestConversion starts a conversion on every DS18B20 and blocks until the
// slowest (12-bit) conversion is done.
func requestConversion() {
	for _, id := range romIDs {
		thermometers.RequestTemperature(id)
	}
	time.Sleep(CONVERSION_MS * time.Millisecond)
}

func readCelsius(index int) (float32, error) {
	if index < 0 || index >= len(romIDs) {
		return 0, errNoSensor
	}
	milli, err := thermometers.ReadTemperature(romIDs[index])
	if err != nil {
		return 0, err
	}
	return float32(milli) / 1000, nil
}

func readRawCode(channel int) (uint16, error) {
	if channel < 0 || channel >= len(adcs) {
		return 0, errNoChannel
	}
	return adcs[channel].Get() >> ADC_SHIFT, nil
}

// readHumidity returns humidity and temperature, NaN when the module fails.
func readHumidity() (float32, float32) {
	if err := humidity.ReadMeasurements(); err != nil {
		return math32.NaN(), math32.NaN()
	}
	h, err := humidity.HumidityFloat()
	if err != nil {
		h = math32.NaN()
	}
	t, err := humidity.TemperatureFloat(dht.C)
	if err != nil {
		t = math32.NaN()
	}
	return h, t
}

// pulseRoundTrip triggers the ranger and measures the echo pulse width.
// Zero means no echo within timeout.
func pulseRoundTrip(timeout time.Duration) time.Duration {
	PIN_TRIG.Low()
	time.Sleep(2 * time.Microsecond)
	PIN_TRIG.High()
	time.Sleep(TRIG_PULSE_US * time.Microsecond)
	PIN_TRIG.Low()

	deadline := time.Now().Add(timeout)
	for !PIN_ECHO.Get() {
		if time.Now().After(deadline) {
			return 0
		}
	}
	start := time.Now()
	for PIN_ECHO.Get() {
		if time.Now().After(deadline) {
			return 0
		}
	}
	return time.Since(start)
}

func readClock() (int64, error) {
	if !rtcOK {
		return 0, errNoRTC
	}
	t, err := rtc.ReadTime()
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
