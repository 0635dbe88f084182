package config

import (
	"fmt"
	"time"

	"github.com/chrissnell/trailsense/pkg/units"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetTides() ([]TideData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Units       UnitsData       `json:"units"`
	Altimeter   AltimeterData   `json:"altimeter"`
	Calibration CalibrationData `json:"calibration"`
	Weather     WeatherData     `json:"weather"`
	History     HistoryData     `json:"history"`
	Sensors     SensorsData     `json:"sensors"`
	RESTServer  *RESTServerData `json:"rest,omitempty"`
	Tides       []TideData      `json:"tides,omitempty"`
}

// UnitsData selects the units thresholds are written in
type UnitsData struct {
	Pressure string `json:"pressure,omitempty"`
}

// AltimeterData holds the altitude fusion parameters
type AltimeterData struct {
	ContinuousCalibration *bool   `json:"continuous_calibration,omitempty"`
	GPSSamples            int     `json:"gps_samples,omitempty"`
	UpdateInterval        string  `json:"update_interval,omitempty"`
	MinAlpha              float64 `json:"min_alpha,omitempty"`
	MaxAlpha              float64 `json:"max_alpha,omitempty"`
	MaxGPSError           float64 `json:"max_gps_error,omitempty"`
	BarometerSmoothing    float64 `json:"barometer_smoothing,omitempty"`
}

// CalibrationData selects where the sea-level baseline is kept.
// Backend is one of "memory", "sqlite" or "postgres".
type CalibrationData struct {
	Backend          string `json:"backend,omitempty"`
	SQLitePath       string `json:"sqlite_path,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
	Validity         string `json:"validity,omitempty"`
}

// WeatherData holds the forecast thresholds, in Units.Pressure per three hours
type WeatherData struct {
	StormThreshold                float64 `json:"storm_threshold,omitempty"`
	HourlyChangeThreshold         float64 `json:"hourly_change_threshold,omitempty"`
	DailyChangeThreshold          float64 `json:"daily_change_threshold,omitempty"`
	AdjustSeaLevelWithBarometer   *bool   `json:"adjust_sea_level_with_barometer,omitempty"`
	AdjustSeaLevelWithTemperature bool    `json:"adjust_sea_level_with_temperature,omitempty"`
}

// HistoryData configures the pressure history recorder
type HistoryData struct {
	Interval   string `json:"interval,omitempty"`
	Retention  string `json:"retention,omitempty"`
	SQLitePath string `json:"sqlite_path,omitempty"`
}

// SensorsData holds the sensor feeds
type SensorsData struct {
	MQTT *MQTTData `json:"mqtt,omitempty"`
}

// MQTTData configures the MQTT-fed barometer and GPS
type MQTTData struct {
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	BarometerTopic string `json:"barometer_topic,omitempty"`
	GPSTopic       string `json:"gps_topic,omitempty"`
	QoS            byte   `json:"qos,omitempty"`
}

// RESTServerData configures the HTTP query surface
type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// TideData defines one tide model. Either Constituents with an Epoch, or a
// ReferenceHighTide for a single-constituent model, must be given. Times
// are RFC 3339.
type TideData struct {
	Name               string                `json:"name"`
	Latitude           *float64              `json:"latitude,omitempty"`
	Longitude          *float64              `json:"longitude,omitempty"`
	Timezone           string                `json:"timezone,omitempty"`
	Epoch              string                `json:"epoch,omitempty"`
	MeanLevel          float64               `json:"mean_level,omitempty"`
	ReferenceHighTide  string                `json:"reference_high_tide,omitempty"`
	ReferenceAmplitude float64               `json:"reference_amplitude,omitempty"`
	Constituents       []TideConstituentData `json:"constituents,omitempty"`
}

// TideConstituentData is one harmonic term. Speed may be omitted for the
// standard constituents.
type TideConstituentData struct {
	Name      string  `json:"name"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Speed     float64 `json:"speed,omitempty"`
}

// Defaults
const (
	DefaultGPSSamples          = 4
	DefaultUpdateInterval      = 200 * time.Millisecond
	DefaultMinAlpha            = 0.96
	DefaultMaxAlpha            = 0.999
	DefaultMaxGPSError         = 5.0
	DefaultBarometerSmoothing  = 0.9
	DefaultCalibrationBackend  = "sqlite"
	DefaultCalibrationPath     = "trailsense.db"
	DefaultCalibrationValidity = time.Hour
	DefaultStormThresholdHpa   = 6.0
	DefaultHourlyThresholdHpa  = 1.5
	DefaultDailyThresholdHpa   = 0.5
	DefaultHistoryInterval     = 15 * time.Minute
	DefaultHistoryRetention    = 48 * time.Hour
	DefaultRESTPort            = 8080
	DefaultBarometerTopic      = "trailsense/barometer"
	DefaultGPSTopic            = "trailsense/gps"
	DefaultMQTTClientID        = "trailsense"
	DefaultPressureUnit        = "hpa"
)

// ApplyDefaults fills in every unset field
func ApplyDefaults(c *ConfigData) {
	if c.Units.Pressure == "" {
		c.Units.Pressure = DefaultPressureUnit
	}

	a := &c.Altimeter
	if a.ContinuousCalibration == nil {
		a.ContinuousCalibration = boolPtr(true)
	}
	if a.GPSSamples == 0 {
		a.GPSSamples = DefaultGPSSamples
	}
	if a.UpdateInterval == "" {
		a.UpdateInterval = DefaultUpdateInterval.String()
	}
	if a.MinAlpha == 0 {
		a.MinAlpha = DefaultMinAlpha
	}
	if a.MaxAlpha == 0 {
		a.MaxAlpha = DefaultMaxAlpha
	}
	if a.MaxGPSError == 0 {
		a.MaxGPSError = DefaultMaxGPSError
	}
	if a.BarometerSmoothing == 0 {
		a.BarometerSmoothing = DefaultBarometerSmoothing
	}

	if c.Calibration.Backend == "" {
		c.Calibration.Backend = DefaultCalibrationBackend
	}
	if c.Calibration.Backend == "sqlite" && c.Calibration.SQLitePath == "" {
		c.Calibration.SQLitePath = DefaultCalibrationPath
	}
	if c.Calibration.Validity == "" {
		c.Calibration.Validity = DefaultCalibrationValidity.String()
	}

	// Threshold defaults are in hPa; convert them when the user works in
	// another unit.
	unit, err := units.ParsePressureUnit(c.Units.Pressure)
	if err != nil {
		unit = units.Hectopascals
	}
	if c.Weather.StormThreshold == 0 {
		c.Weather.StormThreshold = unit.FromHpa(DefaultStormThresholdHpa)
	}
	if c.Weather.HourlyChangeThreshold == 0 {
		c.Weather.HourlyChangeThreshold = unit.FromHpa(DefaultHourlyThresholdHpa)
	}
	if c.Weather.DailyChangeThreshold == 0 {
		c.Weather.DailyChangeThreshold = unit.FromHpa(DefaultDailyThresholdHpa)
	}
	if c.Weather.AdjustSeaLevelWithBarometer == nil {
		c.Weather.AdjustSeaLevelWithBarometer = boolPtr(true)
	}

	if c.History.Interval == "" {
		c.History.Interval = DefaultHistoryInterval.String()
	}
	if c.History.Retention == "" {
		c.History.Retention = DefaultHistoryRetention.String()
	}

	if m := c.Sensors.MQTT; m != nil {
		if m.ClientID == "" {
			m.ClientID = DefaultMQTTClientID
		}
		if m.BarometerTopic == "" {
			m.BarometerTopic = DefaultBarometerTopic
		}
		if m.GPSTopic == "" {
			m.GPSTopic = DefaultGPSTopic
		}
	}

	if c.RESTServer != nil && c.RESTServer.Port == 0 {
		c.RESTServer.Port = DefaultRESTPort
	}
}

// ParseDuration parses a configured duration, naming the field on error
func ParseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

func boolPtr(b bool) *bool {
	return &b
}
