package height

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	f := New(0, 0, 0)

	assert.Equal(t, DefaultBaseline, f.baseline)
	assert.Equal(t, DefaultDeadBand, f.deadBand)
	assert.Equal(t, DefaultAlpha, f.alpha)

	_, ok := f.Current()
	assert.False(t, ok)
}

func TestFilter_FirstReading(t *testing.T) {
	f := New(0, 0, 0)

	// First reading is taken as-is even for a large height
	h, err := f.Update(20)
	require.NoError(t, err)
	assert.Equal(t, 80.0, h)

	cur, ok := f.Current()
	assert.True(t, ok)
	assert.Equal(t, 80.0, cur)
}

func TestFilter_DeadBand(t *testing.T) {
	f := New(0, 0, 0)

	_, err := f.Update(60) // 40 cm
	require.NoError(t, err)

	h, err := f.Update(55) // 45 cm, within dead-band
	require.NoError(t, err)
	assert.Equal(t, 45.0, h)

	h, err = f.Update(45.5) // 54.5 cm, 9.5 cm change
	require.NoError(t, err)
	assert.Equal(t, 54.5, h)
}

func TestFilter_Smoothing(t *testing.T) {
	f := New(0, 0, 0)

	_, err := f.Update(60) // 40 cm
	require.NoError(t, err)

	h, err := f.Update(30) // 70 cm, 30 cm jump
	require.NoError(t, err)
	assert.InDelta(t, 0.9*40+0.1*70, h, 1e-9)

	// Exactly the dead-band width is smoothed
	f2 := New(0, 0, 0)
	_, err = f2.Update(60)
	require.NoError(t, err)
	h, err = f2.Update(50) // 50 cm, 10 cm change
	require.NoError(t, err)
	assert.InDelta(t, 0.9*40+0.1*50, h, 1e-9)
}

func TestFilter_InvalidReadings(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
	}{
		{name: "zero (echo timeout)", distance: 0},
		{name: "negative", distance: -3},
		{name: "at max", distance: 400},
		{name: "beyond max", distance: 510},
		{name: "nan", distance: math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(0, 0, 0)
			_, err := f.Update(60)
			require.NoError(t, err)

			h, err := f.Update(tt.distance)
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.Equal(t, 40.0, h, "state must be unchanged")

			cur, ok := f.Current()
			assert.True(t, ok)
			assert.Equal(t, 40.0, cur)
		})
	}
}

func TestFilter_InvalidBeforeFirst(t *testing.T) {
	f := New(0, 0, 0)

	_, err := f.Update(0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, ok := f.Current()
	assert.False(t, ok, "invalid reading must not initialize the filter")

	// Next valid reading is still treated as the first one
	h, err := f.Update(10)
	require.NoError(t, err)
	assert.Equal(t, 90.0, h)
}

func TestFilter_ConvergesOnStep(t *testing.T) {
	f := New(0, 0, 0)
	_, err := f.Update(90) // 10 cm

	require.NoError(t, err)

	var h float64
	for n := 0; n < 50; n++ {
		h, err = f.Update(40) // 60 cm
		require.NoError(t, err)
	}

	// Once within the dead-band the filter snaps to the raw value
	assert.Equal(t, 60.0, h)
}
