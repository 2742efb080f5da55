package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Dir = t.TempDir()
	cfg.Sampling.SamplePeriod = 20 * time.Millisecond
	cfg.Sampling.PersistPeriod = 50 * time.Millisecond
	cfg.Sampling.IdleWait = time.Millisecond
	cfg.Sampling.RetryDelay = time.Millisecond
	cfg.Indicator.FaultDuration = time.Millisecond
	cfg.Indicator.AlertPulse = time.Millisecond
	return cfg
}

func TestRun_Mock(t *testing.T) {
	cfg := fastConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	err := run(ctx, cfg, "test-run", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	data, err := os.ReadFile(filepath.Join(cfg.Store.Dir, cfg.Store.DataFile))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2, "header and at least one reading")
	assert.Equal(t, "Date,Time,CropTemp,AirTemp,CropStress,Rainfall,CropHeight,TDS,pH,Turbidity,Humidity,Temperature", lines[0])
}

func TestRun_MockSQLite(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Store.Backend = "sqlite"

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := run(ctx, cfg, "test-run", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.FileExists(t, filepath.Join(cfg.Store.Dir, cfg.Store.SQLite))
}

func TestRun_DegradedStore(t *testing.T) {
	cfg := fastConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	cfg.Store.Dir = filepath.Join(blocker, "sd")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The controller keeps running without persistence.
	err := run(ctx, cfg, "test-run", true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_SerialUnavailable(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Serial.Port = filepath.Join(t.TempDir(), "no-such-port")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := run(ctx, cfg, "test-run", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	errs, err := os.ReadFile(filepath.Join(cfg.Store.Dir, cfg.Store.ErrorFile))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "0/0/0 0:0 - "+FaultHub)
	assert.Contains(t, string(errs), FaultClock)
}
