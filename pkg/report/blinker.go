package report

import (
	"context"
	"time"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/device"
	"go.uber.org/zap"
)

// DefaultQueueSize is the number of patterns that may wait for playback.
const DefaultQueueSize = 8

// Pattern is a train of identical on/off pulses.
type Pattern struct {
	On    time.Duration
	Off   time.Duration
	Count int
}

// FaultPattern is a single long pulse.
func FaultPattern(cfg config.IndicatorConfig) Pattern {
	return Pattern{On: cfg.FaultDuration, Count: 1}
}

// AlertPattern is a train of short pulses with equal on and off times.
func AlertPattern(cfg config.IndicatorConfig) Pattern {
	return Pattern{On: cfg.AlertPulse, Off: cfg.AlertPulse, Count: cfg.AlertPulses}
}

// Blinker plays indicator patterns on its own goroutine so that the control
// loop never waits for a pulse to finish.
type Blinker struct {
	out    device.Indicator
	queue  chan Pattern
	logger *zap.SugaredLogger
}

// NewBlinker creates a Blinker driving out.
func NewBlinker(out device.Indicator, queueSize int, logger *zap.SugaredLogger) *Blinker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Blinker{
		out:    out,
		queue:  make(chan Pattern, queueSize),
		logger: logger,
	}
}

// Enqueue schedules p without blocking. It returns false when the queue is
// full and the pattern was dropped.
func (b *Blinker) Enqueue(p Pattern) bool {
	select {
	case b.queue <- p:
		return true
	default:
		return false
	}
}

// Run plays queued patterns until ctx is cancelled. The indicator is left off.
func (b *Blinker) Run(ctx context.Context) {
	defer b.set(false)

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-b.queue:
			if !b.play(ctx, p) {
				return
			}
		}
	}
}

func (b *Blinker) play(ctx context.Context, p Pattern) bool {
	for i := 0; i < p.Count; i++ {
		b.set(true)
		if !wait(ctx, p.On) {
			return false
		}
		b.set(false)
		if p.Off > 0 && !wait(ctx, p.Off) {
			return false
		}
	}
	return true
}

func (b *Blinker) set(on bool) {
	if err := b.out.SetIndicator(on); err != nil {
		b.logger.Debugw("indicator write failed", "on", on, "error", err)
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
