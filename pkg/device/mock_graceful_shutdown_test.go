package device

import (
	"testing"
	"time"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestMock_GracefulShutdown tests that the Mock hub closes the edges channel
// when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	cfg := &config.MockConfig{
		AirTemperature: 20,
		Humidity:       50,
		Distance:       50,
		NoiseLevel:     0.001,
		RainTipPeriod:  50 * time.Millisecond,
	}

	mock := NewMock(cfg, config.Default().Channels)
	err := mock.Connect()
	assert.NoError(t, err)

	edges := mock.Edges()

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range edges {
			received++
			if received >= 3 {
				// Got enough edges, now close hub
				mock.Close()
			}
		}
	}()

	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Edges channel did not close within timeout")
	}

	assert.GreaterOrEqual(t, received, 3, "Should receive edges before channel closes")

	_, ok := <-edges
	assert.False(t, ok, "Channel should be closed")
}

// TestMock_GracefulShutdown_NoRain tests shutdown when no rain is simulated.
func TestMock_GracefulShutdown_NoRain(t *testing.T) {
	mock := NewMock(nil, config.Default().Channels)
	assert.NoError(t, mock.Connect())
	assert.NoError(t, mock.Close())

	select {
	case _, ok := <-mock.Edges():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Edges channel did not close within timeout")
	}
}
