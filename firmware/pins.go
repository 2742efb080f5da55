//go:build tinygo

package main

import "machine"

const (
	// Analog transducer channels, indexed by the A<ch> command
	PIN_CROP_TEMP = machine.A0 // LM35, 10 mV/°C
	PIN_TDS       = machine.A1
	PIN_PH        = machine.A2
	PIN_TURBIDITY = machine.A3

	PIN_ONEWIRE = machine.D4 // DS18B20 air thermometers
	PIN_RAIN    = machine.D5 // Tipping bucket reed switch, falling edge
	PIN_TRIG    = machine.D6
	PIN_ECHO    = machine.D7
	PIN_DHT     = machine.D8 // DHT22
	PIN_LED     = machine.D9 // Fault/alert indicator

	// ADC configuration. Codes are reported as 10-bit values.
	ADC_RESOLUTION = 12
	ADC_SHIFT      = 6 // machine.ADC.Get() is scaled to 16 bits

	// Trigger pulse width for the ultrasonic ranger
	TRIG_PULSE_US = 10

	// DS18B20 12-bit conversion time
	CONVERSION_MS = 750

	// Rain edges buffered between two polls of the main loop
	EDGE_BUFFER = 16

	// Longest accepted command line
	LINE_BUFFER = 16

	UART_BAUD_RATE = 115200
)

var analogPins = [...]machine.Pin{PIN_CROP_TEMP, PIN_TDS, PIN_PH, PIN_TURBIDITY}
