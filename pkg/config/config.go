package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the controller configuration. It is read once at startup
// and treated as read-only afterwards.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Mock        MockConfig        `yaml:"mock"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Channels    ChannelConfig     `yaml:"channels"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Thresholds  Thresholds        `yaml:"thresholds"`
	Store       StoreConfig       `yaml:"store"`
	Indicator   IndicatorConfig   `yaml:"indicator"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// SerialConfig contains the sensor hub serial port configuration.
type SerialConfig struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"` // Per-request response timeout
}

// MockConfig contains simulated hub configuration.
type MockConfig struct {
	CropTemperature float64       `yaml:"crop_temperature"` // °C
	AirTemperature  float64       `yaml:"air_temperature"`  // °C
	Humidity        float64       `yaml:"humidity"`         // %RH
	Distance        float64       `yaml:"distance"`         // cm, ranger to canopy
	NoiseLevel      float64       `yaml:"noise_level"`      // Relative noise amplitude
	RainTipPeriod   time.Duration `yaml:"rain_tip_period"`  // 0 disables simulated rain
}

// SamplingConfig contains scheduler and acquisition timing.
type SamplingConfig struct {
	SamplePeriod  time.Duration `yaml:"sample_period"`
	PersistPeriod time.Duration `yaml:"persist_period"`
	IdleWait      time.Duration `yaml:"idle_wait"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	EchoTimeout   time.Duration `yaml:"echo_timeout"`
}

// ChannelConfig maps transducers to hub analog channels and probe indices.
type ChannelConfig struct {
	CropTemperature int `yaml:"crop_temperature"`
	TDS             int `yaml:"tds"`
	PH              int `yaml:"ph"`
	Turbidity       int `yaml:"turbidity"`
	AirProbe        int `yaml:"air_probe"`
}

// CalibrationConfig contains the physical constants of the installation.
type CalibrationConfig struct {
	RainFactor     float64       `yaml:"rain_factor"`     // mm per bucket tip
	RainDebounce   time.Duration `yaml:"rain_debounce"`   // Minimum spacing between tips
	HeightBaseline float64       `yaml:"height_baseline"` // Ranger height above ground (cm)
	HeightDeadBand float64       `yaml:"height_dead_band"`
	HeightAlpha    float64       `yaml:"height_alpha"` // Weight of the previous estimate
}

// Thresholds are the alerting limits.
type Thresholds struct {
	CropStress  float64 `yaml:"crop_stress"`
	Rainfall    float64 `yaml:"rainfall"`
	TDSMin      float64 `yaml:"tds_min"`
	TDSMax      float64 `yaml:"tds_max"`
	PHMin       float64 `yaml:"ph_min"`
	PHMax       float64 `yaml:"ph_max"`
	HumidityMin float64 `yaml:"humidity_min"`
	HumidityMax float64 `yaml:"humidity_max"`
}

// StoreConfig selects and locates the persistent store.
type StoreConfig struct {
	Backend   string `yaml:"backend"` // "csv" or "sqlite"
	Dir       string `yaml:"dir"`
	DataFile  string `yaml:"data_file"`
	AlertFile string `yaml:"alert_file"`
	ErrorFile string `yaml:"error_file"`
	SQLite    string `yaml:"sqlite"`
}

// IndicatorConfig contains the fault/alert indicator timing.
type IndicatorConfig struct {
	FaultDuration time.Duration `yaml:"fault_duration"`
	AlertPulses   int           `yaml:"alert_pulses"`
	AlertPulse    time.Duration `yaml:"alert_pulse"`
}

// LogConfig contains logging options.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig contains the optional metrics listener. Empty disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a default configuration matching the reference installation.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Timeout:  250 * time.Millisecond,
		},
		Mock: MockConfig{
			CropTemperature: 24.0,
			AirTemperature:  21.0,
			Humidity:        60.0,
			Distance:        55.0,
			NoiseLevel:      0.01,
			RainTipPeriod:   0,
		},
		Sampling: SamplingConfig{
			SamplePeriod:  15 * time.Second,
			PersistPeriod: 10 * time.Minute,
			IdleWait:      100 * time.Millisecond,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
			EchoTimeout:   30 * time.Millisecond,
		},
		Channels: ChannelConfig{
			CropTemperature: 0,
			TDS:             1,
			PH:              2,
			Turbidity:       3,
			AirProbe:        0,
		},
		Calibration: CalibrationConfig{
			RainFactor:     0.2794,
			RainDebounce:   100 * time.Millisecond,
			HeightBaseline: 100,
			HeightDeadBand: 10,
			HeightAlpha:    0.9,
		},
		Thresholds: Thresholds{
			CropStress:  5.0,
			Rainfall:    10.0,
			TDSMin:      300.0,
			TDSMax:      1500.0,
			PHMin:       5.5,
			PHMax:       7.5,
			HumidityMin: 40.0,
			HumidityMax: 80.0,
		},
		Store: StoreConfig{
			Backend:   "csv",
			Dir:       ".",
			DataFile:  "AGDATA.CSV",
			AlertFile: "ALERTS.TXT",
			ErrorFile: "ERRORS.TXT",
			SQLite:    "agdata.db",
		},
		Indicator: IndicatorConfig{
			FaultDuration: time.Second,
			AlertPulses:   5,
			AlertPulse:    100 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Environment variables (and a
// .env file in the working directory) override the file.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overrides selected fields from AGRIMON_* environment variables.
func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("AGRIMON_SERIAL_PORT")); v != "" {
		c.Serial.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("AGRIMON_STORE_DIR")); v != "" {
		c.Store.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("AGRIMON_STORE_BACKEND")); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("AGRIMON_METRICS_LISTEN")); v != "" {
		c.Metrics.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("AGRIMON_DEBUG")); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AGRIMON_DEBUG: %w", err)
		}
		c.Log.Debug = debug
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Timeout == 0 {
		c.Serial.Timeout = def.Serial.Timeout
	}

	if c.Sampling.SamplePeriod == 0 {
		c.Sampling.SamplePeriod = def.Sampling.SamplePeriod
	}
	if c.Sampling.PersistPeriod == 0 {
		c.Sampling.PersistPeriod = def.Sampling.PersistPeriod
	}
	if c.Sampling.IdleWait == 0 {
		c.Sampling.IdleWait = def.Sampling.IdleWait
	}
	if c.Sampling.RetryAttempts <= 0 {
		c.Sampling.RetryAttempts = def.Sampling.RetryAttempts
	}
	if c.Sampling.RetryDelay == 0 {
		c.Sampling.RetryDelay = def.Sampling.RetryDelay
	}
	if c.Sampling.EchoTimeout == 0 {
		c.Sampling.EchoTimeout = def.Sampling.EchoTimeout
	}

	if c.Calibration.RainFactor == 0 {
		c.Calibration.RainFactor = def.Calibration.RainFactor
	}
	if c.Calibration.RainDebounce == 0 {
		c.Calibration.RainDebounce = def.Calibration.RainDebounce
	}
	if c.Calibration.HeightBaseline == 0 {
		c.Calibration.HeightBaseline = def.Calibration.HeightBaseline
	}
	if c.Calibration.HeightDeadBand == 0 {
		c.Calibration.HeightDeadBand = def.Calibration.HeightDeadBand
	}
	if c.Calibration.HeightAlpha == 0 {
		c.Calibration.HeightAlpha = def.Calibration.HeightAlpha
	}

	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Dir == "" {
		c.Store.Dir = def.Store.Dir
	}
	if c.Store.DataFile == "" {
		c.Store.DataFile = def.Store.DataFile
	}
	if c.Store.AlertFile == "" {
		c.Store.AlertFile = def.Store.AlertFile
	}
	if c.Store.ErrorFile == "" {
		c.Store.ErrorFile = def.Store.ErrorFile
	}
	if c.Store.SQLite == "" {
		c.Store.SQLite = def.Store.SQLite
	}

	if c.Indicator.FaultDuration == 0 {
		c.Indicator.FaultDuration = def.Indicator.FaultDuration
	}
	if c.Indicator.AlertPulses == 0 {
		c.Indicator.AlertPulses = def.Indicator.AlertPulses
	}
	if c.Indicator.AlertPulse == 0 {
		c.Indicator.AlertPulse = def.Indicator.AlertPulse
	}
}
