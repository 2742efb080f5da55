// Package height estimates crop canopy height from ultrasonic range readings.
package height

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxDistance is the upper (exclusive) limit of a usable range reading (cm).
	MaxDistance = 400.0

	DefaultBaseline = 100.0
	DefaultDeadBand = 10.0
	DefaultAlpha    = 0.9
)

// ErrOutOfRange is returned for distances outside (0, MaxDistance).
var ErrOutOfRange = errors.New("distance out of range")

// Filter smooths canopy height. Changes smaller than the dead-band are taken
// as-is; larger jumps are damped with exponential smoothing.
//
// Filter is not safe for concurrent use.
type Filter struct {
	baseline float64
	deadBand float64
	alpha    float64

	current     float64
	initialized bool
}

// New creates a Filter. Zero arguments select the defaults.
func New(baseline, deadBand, alpha float64) *Filter {
	if baseline == 0 {
		baseline = DefaultBaseline
	}
	if deadBand == 0 {
		deadBand = DefaultDeadBand
	}
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	return &Filter{
		baseline: baseline,
		deadBand: deadBand,
		alpha:    alpha,
	}
}

// Update feeds a distance reading (cm) and returns the new height estimate.
// Invalid readings leave the state unchanged and return ErrOutOfRange.
func (f *Filter) Update(distance float64) (float64, error) {
	if math.IsNaN(distance) || distance <= 0 || distance >= MaxDistance {
		return f.current, fmt.Errorf("%w: %.1f cm", ErrOutOfRange, distance)
	}

	raw := f.baseline - distance
	if !f.initialized || math.Abs(raw-f.current) < f.deadBand {
		f.current = raw
		f.initialized = true
		return f.current, nil
	}

	f.current = f.alpha*f.current + (1-f.alpha)*raw
	return f.current, nil
}

// Current returns the current estimate and whether any valid reading was seen.
func (f *Filter) Current() (float64, bool) {
	return f.current, f.initialized
}
