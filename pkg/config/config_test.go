package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 15*time.Second, cfg.Sampling.SamplePeriod)
	assert.Equal(t, 600*time.Second, cfg.Sampling.PersistPeriod)
	assert.Equal(t, 3, cfg.Sampling.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Sampling.RetryDelay)
	assert.Equal(t, 30*time.Millisecond, cfg.Sampling.EchoTimeout)
	assert.Equal(t, 0.2794, cfg.Calibration.RainFactor)
	assert.Equal(t, 100*time.Millisecond, cfg.Calibration.RainDebounce)
	assert.Equal(t, float64(100), cfg.Calibration.HeightBaseline)
	assert.Equal(t, 5.0, cfg.Thresholds.CropStress)
	assert.Equal(t, 10.0, cfg.Thresholds.Rainfall)
	assert.Equal(t, 300.0, cfg.Thresholds.TDSMin)
	assert.Equal(t, 1500.0, cfg.Thresholds.TDSMax)
	assert.Equal(t, 5.5, cfg.Thresholds.PHMin)
	assert.Equal(t, 7.5, cfg.Thresholds.PHMax)
	assert.Equal(t, 40.0, cfg.Thresholds.HumidityMin)
	assert.Equal(t, 80.0, cfg.Thresholds.HumidityMax)
	assert.Equal(t, "csv", cfg.Store.Backend)
	assert.Equal(t, "AGDATA.CSV", cfg.Store.DataFile)
	assert.Equal(t, time.Second, cfg.Indicator.FaultDuration)
	assert.Equal(t, 5, cfg.Indicator.AlertPulses)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
  timeout: 400ms

sampling:
  sample_period: 5s
  persist_period: 1m
  retry_attempts: 2

channels:
  tds: 4

calibration:
  rain_factor: 0.3537

thresholds:
  crop_stress: 4.5
  humidity_max: 85

store:
  backend: sqlite
  dir: /var/lib/agrimon
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 400*time.Millisecond, cfg.Serial.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Sampling.SamplePeriod)
	assert.Equal(t, time.Minute, cfg.Sampling.PersistPeriod)
	assert.Equal(t, 2, cfg.Sampling.RetryAttempts)
	assert.Equal(t, 4, cfg.Channels.TDS)
	assert.Equal(t, 0.3537, cfg.Calibration.RainFactor)
	assert.Equal(t, 4.5, cfg.Thresholds.CropStress)
	assert.Equal(t, 85.0, cfg.Thresholds.HumidityMax)
	assert.Equal(t, 40.0, cfg.Thresholds.HumidityMin) // default kept
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/agrimon", cfg.Store.Dir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM1"
sampling:
  retry_attempts: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Port)
	assert.Equal(t, 3, cfg.Sampling.RetryAttempts)                 // zero replaced
	assert.Equal(t, 15*time.Second, cfg.Sampling.SamplePeriod)     // default
	assert.Equal(t, float64(10), cfg.Calibration.HeightDeadBand)   // default
	assert.Equal(t, 100*time.Millisecond, cfg.Sampling.IdleWait)   // default
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGRIMON_SERIAL_PORT", "/dev/ttyS3")
	t.Setenv("AGRIMON_STORE_BACKEND", "SQLite")
	t.Setenv("AGRIMON_STORE_DIR", "/tmp/agrimon")
	t.Setenv("AGRIMON_DEBUG", "true")
	t.Setenv("AGRIMON_METRICS_LISTEN", "127.0.0.1:9108")

	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS3", cfg.Serial.Port)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/agrimon", cfg.Store.Dir)
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, "127.0.0.1:9108", cfg.Metrics.Listen)
}

func TestLoad_EnvInvalidDebug(t *testing.T) {
	t.Setenv("AGRIMON_DEBUG", "maybe")

	cfg, err := Load("nonexistent.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Thresholds.Rainfall = 25

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, float64(25), loaded.Thresholds.Rainfall)
	assert.Equal(t, cfg.Sampling, loaded.Sampling)
}
