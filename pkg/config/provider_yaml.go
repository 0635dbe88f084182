package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file and fills
// in defaults
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// ParseYAML decodes a YAML document into ConfigData with defaults applied
func ParseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config := yamlConfig.toData()
	ApplyDefaults(config)
	return config, nil
}

// GetTides returns the tide definitions
func (y *YAMLProvider) GetTides() ([]TideData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Tides, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with yaml tags

type ConfigYAML struct {
	Units       UnitsYAML       `yaml:"units,omitempty"`
	Altimeter   AltimeterYAML   `yaml:"altimeter,omitempty"`
	Calibration CalibrationYAML `yaml:"calibration,omitempty"`
	Weather     WeatherYAML     `yaml:"weather,omitempty"`
	History     HistoryYAML     `yaml:"history,omitempty"`
	Sensors     SensorsYAML     `yaml:"sensors,omitempty"`
	RESTServer  *RESTServerYAML `yaml:"rest,omitempty"`
	Tides       []TideYAML      `yaml:"tides,omitempty"`
}

type UnitsYAML struct {
	Pressure string `yaml:"pressure,omitempty"`
}

type AltimeterYAML struct {
	ContinuousCalibration *bool   `yaml:"continuous-calibration,omitempty"`
	GPSSamples            int     `yaml:"gps-samples,omitempty"`
	UpdateInterval        string  `yaml:"update-interval,omitempty"`
	MinAlpha              float64 `yaml:"min-alpha,omitempty"`
	MaxAlpha              float64 `yaml:"max-alpha,omitempty"`
	MaxGPSError           float64 `yaml:"max-gps-error,omitempty"`
	BarometerSmoothing    float64 `yaml:"barometer-smoothing,omitempty"`
}

type CalibrationYAML struct {
	Backend          string `yaml:"backend,omitempty"`
	SQLitePath       string `yaml:"sqlite-path,omitempty"`
	ConnectionString string `yaml:"connection-string,omitempty"`
	Validity         string `yaml:"validity,omitempty"`
}

type WeatherYAML struct {
	StormThreshold                float64 `yaml:"storm-threshold,omitempty"`
	HourlyChangeThreshold         float64 `yaml:"hourly-change-threshold,omitempty"`
	DailyChangeThreshold          float64 `yaml:"daily-change-threshold,omitempty"`
	AdjustSeaLevelWithBarometer   *bool   `yaml:"adjust-sea-level-with-barometer,omitempty"`
	AdjustSeaLevelWithTemperature bool    `yaml:"adjust-sea-level-with-temperature,omitempty"`
}

type HistoryYAML struct {
	Interval   string `yaml:"interval,omitempty"`
	Retention  string `yaml:"retention,omitempty"`
	SQLitePath string `yaml:"sqlite-path,omitempty"`
}

type SensorsYAML struct {
	MQTT *MQTTYAML `yaml:"mqtt,omitempty"`
}

type MQTTYAML struct {
	Broker         string `yaml:"broker"`
	ClientID       string `yaml:"client-id,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	BarometerTopic string `yaml:"barometer-topic,omitempty"`
	GPSTopic       string `yaml:"gps-topic,omitempty"`
	QoS            byte   `yaml:"qos,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type TideYAML struct {
	Name               string                `yaml:"name"`
	Latitude           *float64              `yaml:"latitude,omitempty"`
	Longitude          *float64              `yaml:"longitude,omitempty"`
	Timezone           string                `yaml:"timezone,omitempty"`
	Epoch              string                `yaml:"epoch,omitempty"`
	MeanLevel          float64               `yaml:"mean-level,omitempty"`
	ReferenceHighTide  string                `yaml:"reference-high-tide,omitempty"`
	ReferenceAmplitude float64               `yaml:"reference-amplitude,omitempty"`
	Constituents       []TideConstituentYAML `yaml:"constituents,omitempty"`
}

type TideConstituentYAML struct {
	Name      string  `yaml:"name"`
	Amplitude float64 `yaml:"amplitude"`
	Phase     float64 `yaml:"phase"`
	Speed     float64 `yaml:"speed,omitempty"`
}

func (c ConfigYAML) toData() *ConfigData {
	config := &ConfigData{
		Units: UnitsData{Pressure: c.Units.Pressure},
		Altimeter: AltimeterData{
			ContinuousCalibration: c.Altimeter.ContinuousCalibration,
			GPSSamples:            c.Altimeter.GPSSamples,
			UpdateInterval:        c.Altimeter.UpdateInterval,
			MinAlpha:              c.Altimeter.MinAlpha,
			MaxAlpha:              c.Altimeter.MaxAlpha,
			MaxGPSError:           c.Altimeter.MaxGPSError,
			BarometerSmoothing:    c.Altimeter.BarometerSmoothing,
		},
		Calibration: CalibrationData{
			Backend:          c.Calibration.Backend,
			SQLitePath:       c.Calibration.SQLitePath,
			ConnectionString: c.Calibration.ConnectionString,
			Validity:         c.Calibration.Validity,
		},
		Weather: WeatherData{
			StormThreshold:                c.Weather.StormThreshold,
			HourlyChangeThreshold:         c.Weather.HourlyChangeThreshold,
			DailyChangeThreshold:          c.Weather.DailyChangeThreshold,
			AdjustSeaLevelWithBarometer:   c.Weather.AdjustSeaLevelWithBarometer,
			AdjustSeaLevelWithTemperature: c.Weather.AdjustSeaLevelWithTemperature,
		},
		History: HistoryData{
			Interval:   c.History.Interval,
			Retention:  c.History.Retention,
			SQLitePath: c.History.SQLitePath,
		},
	}

	if m := c.Sensors.MQTT; m != nil {
		config.Sensors.MQTT = &MQTTData{
			Broker:         m.Broker,
			ClientID:       m.ClientID,
			Username:       m.Username,
			Password:       m.Password,
			BarometerTopic: m.BarometerTopic,
			GPSTopic:       m.GPSTopic,
			QoS:            m.QoS,
		}
	}

	if r := c.RESTServer; r != nil {
		config.RESTServer = &RESTServerData{
			Cert:       r.Cert,
			Key:        r.Key,
			Port:       r.Port,
			ListenAddr: r.ListenAddr,
		}
	}

	for _, t := range c.Tides {
		tide := TideData{
			Name:               t.Name,
			Latitude:           t.Latitude,
			Longitude:          t.Longitude,
			Timezone:           t.Timezone,
			Epoch:              t.Epoch,
			MeanLevel:          t.MeanLevel,
			ReferenceHighTide:  t.ReferenceHighTide,
			ReferenceAmplitude: t.ReferenceAmplitude,
		}
		for _, tc := range t.Constituents {
			tide.Constituents = append(tide.Constituents, TideConstituentData{
				Name:      tc.Name,
				Amplitude: tc.Amplitude,
				Phase:     tc.Phase,
				Speed:     tc.Speed,
			})
		}
		config.Tides = append(config.Tides, tide)
	}

	return config
}
