package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the hub firmware baud rate.
	DefaultBaudRate = 115200
	// DefaultTimeout is the default per-request response timeout.
	DefaultTimeout = 250 * time.Millisecond
	// DefaultBufferSize is the default size for the edges channel buffer.
	DefaultBufferSize = 64
	// ConversionTime is how long the hub blocks on a 12-bit DS18B20 conversion.
	ConversionTime = 750 * time.Millisecond
)

var (
	// ErrNotConnected is returned by requests issued while disconnected.
	ErrNotConnected = errors.New("not connected")
	// ErrTimeout is returned when the hub does not answer in time.
	ErrTimeout = errors.New("hub response timeout")
	// ErrClosed is returned when connecting a hub that was already closed.
	ErrClosed = errors.New("hub closed")
)

// Frame is one parsed line of the hub protocol.
type Frame struct {
	Kind   byte
	Fields []string
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a sensor hub attached over a serial line.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration
	logger   *zap.SugaredLogger

	conn      io.ReadWriteCloser
	responses chan Frame
	edges     chan time.Time
	mu        sync.RWMutex
	reqMu     sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial hub for the specified port, baud rate and request timeout.
func New(port string, baudRate int, timeout time.Duration, logger *zap.SugaredLogger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:      port,
		baudRate:  baudRate,
		timeout:   timeout,
		logger:    logger,
		responses: make(chan Frame, 1),
		edges:     make(chan time.Time, DefaultBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading hub frames.
func (d *Serial) Connect() error {
	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	return d.attach(port)
}

// attach starts the reader on an already opened connection.
func (d *Serial) attach(conn io.ReadWriteCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		conn.Close()
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		conn.Close()
		return ErrClosed
	}

	d.conn = conn
	d.connected = true

	go d.readFrames(conn)

	return nil
}

// Close closes the connection. The edges channel is closed once the reader exits
// and the hub cannot be connected again.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warnw("error closing serial port", "port", d.port, "error", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// IsConnected returns whether the hub is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Edges returns the rain gauge edge channel.
func (d *Serial) Edges() <-chan time.Time {
	return d.edges
}

// RequestConversion runs a temperature conversion on the one-wire bus. The hub
// answers once the conversion has finished.
func (d *Serial) RequestConversion() error {
	_, err := d.requestWithin("C", 'C', 1, d.timeout+ConversionTime)
	return err
}

// ReadCelsius reads one-wire thermometer index in °C.
func (d *Serial) ReadCelsius(index int) (float64, error) {
	f, err := d.request("T"+strconv.Itoa(index), 'T', 2)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(f.Fields[1], 64)
}

// ReadRawCode reads a 10-bit analog code.
func (d *Serial) ReadRawCode(channel int) (int, error) {
	f, err := d.request("A"+strconv.Itoa(channel), 'A', 2)
	if err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(f.Fields[1])
	if err != nil {
		return 0, fmt.Errorf("invalid analog code: %w", err)
	}
	if code < 0 || code > 1023 {
		return 0, fmt.Errorf("analog code out of range: %d (max 1023)", code)
	}
	return code, nil
}

// ReadHumidity reads relative humidity (%RH). NaN is passed through.
func (d *Serial) ReadHumidity() (float64, error) {
	f, err := d.request("H", 'H', 2)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(f.Fields[0], 64)
}

// ReadTemperature reads the humidity module temperature (°C). NaN is passed through.
func (d *Serial) ReadTemperature() (float64, error) {
	f, err := d.request("H", 'H', 2)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(f.Fields[1], 64)
}

// PulseRoundTrip triggers the ranger and returns the echo round trip.
func (d *Serial) PulseRoundTrip(timeout time.Duration) (time.Duration, error) {
	us := timeout.Microseconds()
	f, err := d.requestWithin("U"+strconv.FormatInt(us, 10), 'U', 1, d.timeout+timeout)
	if err != nil {
		return 0, err
	}
	micros, err := strconv.ParseInt(f.Fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid round trip: %w", err)
	}
	return time.Duration(micros) * time.Microsecond, nil
}

// Now reads the hub real-time clock.
func (d *Serial) Now() (time.Time, error) {
	f, err := d.request("K", 'K', 1)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(f.Fields[0], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock value: %w", err)
	}
	return time.Unix(secs, 0), nil
}

// SetIndicator switches the hub fault indicator.
func (d *Serial) SetIndicator(on bool) error {
	cmd := "L0"
	if on {
		cmd = "L1"
	}
	_, err := d.request(cmd, 'L', 1)
	return err
}

func (d *Serial) request(cmd string, kind byte, fields int) (Frame, error) {
	return d.requestWithin(cmd, kind, fields, d.timeout)
}

// requestWithin sends one command and waits for the matching response frame.
// Only one request is in flight at a time.
func (d *Serial) requestWithin(cmd string, kind byte, fields int, timeout time.Duration) (Frame, error) {
	d.reqMu.Lock()
	defer d.reqMu.Unlock()

	d.mu.RLock()
	conn := d.conn
	connected := d.connected
	d.mu.RUnlock()

	if !connected {
		return Frame{}, ErrNotConnected
	}

	// Drop a late answer to a previous, timed out request
	select {
	case <-d.responses:
	default:
	}

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return Frame{}, fmt.Errorf("failed to send command %q: %w", cmd, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case f := <-d.responses:
			if f.Kind == 'X' {
				return Frame{}, fmt.Errorf("hub error for %q: %s", cmd, strings.Join(f.Fields, ","))
			}
			if f.Kind != kind {
				d.logger.Debugw("discarding unexpected frame", "want", string(kind), "got", string(f.Kind))
				continue
			}
			if len(f.Fields) < fields {
				return Frame{}, fmt.Errorf("short response to %q: expected %d fields, got %d", cmd, fields, len(f.Fields))
			}
			return f, nil
		case <-timer.C:
			return Frame{}, fmt.Errorf("%w: %q", ErrTimeout, cmd)
		case <-d.ctx.Done():
			return Frame{}, ErrNotConnected
		}
	}
}

// readFrames reads lines from the hub, routes edges to the edges channel and
// everything else to the pending request.
func (d *Serial) readFrames(conn io.Reader) {
	defer close(d.edges)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("panic in hub reader", "panic", r)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		f, err := parseLine(line)
		if err != nil {
			d.logger.Warnw("failed to parse hub line", "line", line, "error", err)
			continue
		}

		if f.Kind == 'E' {
			uptime, err := parseEdge(f)
			if err != nil {
				d.logger.Warnw("invalid edge frame", "line", line, "error", err)
				continue
			}
			// Hub uptime restarts with the hub, so edges carry host arrival time
			d.logger.Debugw("rain edge", "hub_uptime", uptime)
			select {
			case d.edges <- time.Now():
			case <-d.ctx.Done():
				return
			default:
				d.logger.Warn("edges channel full, dropping rain edge")
			}
			continue
		}

		select {
		case d.responses <- f:
		case <-d.ctx.Done():
			return
		default:
			d.logger.Debugw("no pending request, dropping frame", "line", line)
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.logger.Errorw("error reading from serial port", "port", d.port, "error", err)
	}
}

// parseLine parses a line from the hub into a Frame.
// Format: <kind>[,<field>...]
// Example: A,1,512
func parseLine(line string) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts[0]) != 1 {
		return Frame{}, fmt.Errorf("invalid frame kind %q", parts[0])
	}

	kind := parts[0][0]
	switch kind {
	case 'C', 'T', 'A', 'H', 'U', 'K', 'L', 'E', 'X':
	default:
		return Frame{}, fmt.Errorf("unknown frame kind %q", parts[0])
	}

	return Frame{Kind: kind, Fields: parts[1:]}, nil
}

// parseEdge returns the hub uptime carried by an edge frame (microseconds since hub boot).
func parseEdge(f Frame) (time.Duration, error) {
	if len(f.Fields) != 1 {
		return 0, fmt.Errorf("expected 1 field, got %d", len(f.Fields))
	}
	micros, err := strconv.ParseInt(f.Fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	return time.Duration(micros) * time.Microsecond, nil
}
