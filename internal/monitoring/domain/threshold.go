package monitoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BreachLevel classifies how a sensor value relates to its thresholds.
type BreachLevel string

const (
	BreachNone     BreachLevel = "none"
	BreachWarning  BreachLevel = "warning"
	BreachCritical BreachLevel = "critical"
)

// ThresholdConfig holds the static warning/critical bounds for one sensor type.
// When Relative is set the thresholds are percentages of the equipment's rated
// capacity rather than absolute values.
type ThresholdConfig struct {
	SensorType string  `yaml:"sensor_type"`
	Warning    float64 `yaml:"warning"`
	Critical   float64 `yaml:"critical"`
	Unit       string  `yaml:"unit"`
	Relative   bool    `yaml:"relative,omitempty"`
}

// Breach is the outcome of checking one value against a threshold config.
type Breach struct {
	Level BreachLevel
	Limit float64
}

// Check evaluates a sensor value. ratedCapacity is only used for relative
// thresholds; a zero rated capacity disables the relative check.
func (c ThresholdConfig) Check(value, ratedCapacity float64) Breach {
	warning := c.Warning
	critical := c.Critical
	if c.Relative {
		if ratedCapacity <= 0 {
			return Breach{Level: BreachNone}
		}
		warning = c.Warning / 100 * ratedCapacity
		critical = c.Critical / 100 * ratedCapacity
	}
	switch {
	case value >= critical:
		return Breach{Level: BreachCritical, Limit: critical}
	case value >= warning:
		return Breach{Level: BreachWarning, Limit: warning}
	default:
		return Breach{Level: BreachNone}
	}
}

// ThresholdSet maps sensor type to its threshold configuration.
type ThresholdSet map[string]ThresholdConfig

// Lookup returns the config for a sensor type. Missing sensor types are a
// configuration gap, not an error; callers skip the check.
func (s ThresholdSet) Lookup(sensorType string) (ThresholdConfig, bool) {
	config, ok := s[sensorType]
	return config, ok
}

// DefaultThresholds returns the built-in threshold table.
func DefaultThresholds() ThresholdSet {
	configs := []ThresholdConfig{
		{SensorType: "temperature", Warning: 80, Critical: 90, Unit: "°C"},
		{SensorType: "vibration", Warning: 4.5, Critical: 7.1, Unit: "mm/s"},
		{SensorType: "current", Warning: 90, Critical: 105, Unit: "%", Relative: true},
		{SensorType: "voltage", Warning: 105, Critical: 110, Unit: "%", Relative: true},
		{SensorType: "pressure", Warning: 8.5, Critical: 10, Unit: "bar"},
		{SensorType: "humidity", Warning: 80, Critical: 95, Unit: "%"},
		{SensorType: "speed", Warning: 95, Critical: 105, Unit: "%", Relative: true},
		{SensorType: "load", Warning: 90, Critical: 100, Unit: "%"},
		{SensorType: "power", Warning: 90, Critical: 110, Unit: "%", Relative: true},
		{SensorType: "oil_level", Warning: 0, Critical: 0, Unit: "%"},
	}
	set := make(ThresholdSet, len(configs))
	for _, config := range configs {
		if config.Critical == 0 && config.Warning == 0 {
			continue
		}
		set[config.SensorType] = config
	}
	return set
}

type thresholdFile struct {
	Thresholds []ThresholdConfig `yaml:"thresholds"`
}

// LoadThresholds reads a YAML threshold file and merges it over the defaults.
// Loaded once at startup; there is no hot reload.
func LoadThresholds(path string) (ThresholdSet, error) {
	set := DefaultThresholds()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("thresholds: read %s: %w", path, err)
	}
	var file thresholdFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("thresholds: parse %s: %w", path, err)
	}
	for _, config := range file.Thresholds {
		if config.SensorType == "" {
			return nil, errors.New("thresholds: entry missing sensor_type")
		}
		if config.Critical < config.Warning {
			return nil, fmt.Errorf("thresholds: %s critical below warning", config.SensorType)
		}
		set[config.SensorType] = config
	}
	return set, nil
}
