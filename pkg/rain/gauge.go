// Package rain counts tipping-bucket rain gauge pulses.
package rain

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

const (
	// DefaultFactor is the rainfall per bucket tip (mm).
	DefaultFactor = 0.2794
	// DefaultDebounce is the minimum spacing between two accepted tips.
	DefaultDebounce = 100 * time.Millisecond

	noTip = math.MinInt64
)

// Gauge is a debounced tip counter. Edge may be called from any goroutine;
// Tips and Rainfall never block on it.
type Gauge struct {
	factor   float64
	debounce time.Duration

	tips    atomic.Int64
	lastTip atomic.Int64 // UnixNano of the last accepted tip
}

// New creates a Gauge. Zero arguments select the defaults.
func New(factor float64, debounce time.Duration) *Gauge {
	if factor <= 0 {
		factor = DefaultFactor
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	g := &Gauge{
		factor:   factor,
		debounce: debounce,
	}
	g.lastTip.Store(noTip)
	return g
}

// Edge records a falling edge observed at now. It returns true if the edge
// was counted and false if it was discarded as bounce. An edge earlier than
// the last tip by more than the debounce window means the clock stepped back;
// it is counted and becomes the new reference.
func (g *Gauge) Edge(now time.Time) bool {
	t := now.UnixNano()
	for {
		last := g.lastTip.Load()
		if last != noTip {
			if d := time.Duration(t - last); d <= g.debounce && d >= -g.debounce {
				return false
			}
		}
		if g.lastTip.CompareAndSwap(last, t) {
			g.tips.Add(1)
			return true
		}
	}
}

// Tips returns the number of accepted tips since start. It is never reset.
func (g *Gauge) Tips() int64 {
	return g.tips.Load()
}

// Rainfall returns the accumulated rainfall in mm.
func (g *Gauge) Rainfall() float64 {
	return float64(g.Tips()) * g.factor
}

// Read returns the tip count and the matching rainfall in one load.
func (g *Gauge) Read() (int64, float64) {
	tips := g.Tips()
	return tips, float64(tips) * g.factor
}

// Run feeds edges into the gauge until ctx is cancelled or edges is closed.
func (g *Gauge) Run(ctx context.Context, edges <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-edges:
			if !ok {
				return
			}
			g.Edge(t)
		}
	}
}
