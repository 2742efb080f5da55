//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"strconv"
	"time"

	"github.com/chewxy/math32"
)

var (
	serial = machine.Serial

	// Serial buffer for reading lines
	lineBuffer [LINE_BUFFER]byte
	linePos    int
)

func main() {
	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	setupSensors()

	// Main loop
	for {
		processSerial()

		for {
			t, ok := nextEdge()
			if !ok {
				break
			}
			reply('E', strconv.FormatInt(t, 10))
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	for serial.Buffered() > 0 {
		data, err := serial.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if linePos > 0 {
				handleCommand(lineBuffer[:linePos])
			}
			linePos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if linePos < len(lineBuffer) {
			lineBuffer[linePos] = data
			linePos++
		} else {
			// Overlong line - drop it
			linePos = 0
		}
	}
}

func handleCommand(line []byte) {
	arg := string(line[1:])

	switch line[0] {
	case 'C':
		requestConversion()
		reply('C', "OK")

	case 'T':
		index, err := strconv.Atoi(arg)
		if err != nil {
			replyError(err)
			return
		}
		c, err := readCelsius(index)
		if err != nil {
			replyError(err)
			return
		}
		reply('T', arg, formatFloat(c))

	case 'A':
		channel, err := strconv.Atoi(arg)
		if err != nil {
			replyError(err)
			return
		}
		code, err := readRawCode(channel)
		if err != nil {
			replyError(err)
			return
		}
		reply('A', arg, strconv.Itoa(int(code)))

	case 'H':
		h, t := readHumidity()
		reply('H', formatFloat(h), formatFloat(t))

	case 'U':
		us, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			replyError(err)
			return
		}
		rt := pulseRoundTrip(time.Duration(us) * time.Microsecond)
		reply('U', strconv.FormatInt(rt.Microseconds(), 10))

	case 'K':
		secs, err := readClock()
		if err != nil {
			replyError(err)
			return
		}
		reply('K', strconv.FormatInt(secs, 10))

	case 'L':
		if arg == "1" {
			PIN_LED.High()
		} else {
			PIN_LED.Low()
		}
		reply('L', "OK")

	default:
		reply('X', "unknown command")
	}
}

func formatFloat(v float32) string {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return "nan"
	}
	return strconv.FormatFloat(float64(v), 'f', 2, 32)
}

func reply(kind byte, fields ...string) {
	serial.WriteByte(kind)
	for _, f := range fields {
		serial.WriteByte(',')
		serial.Write([]byte(f))
	}
	serial.WriteByte('\n')
}

func replyError(err error) {
	reply('X', err.Error())
}
