package monitoring

import (
	"fmt"

	"maintenance-cloud/internal/alerts"
	equipment "maintenance-cloud/internal/equipment/domain"
)

// Rule is an equipment-type-specific check over a full sensor batch.
// Implementations are stateless; Evaluate reports a violation and a
// human-readable detail.
type Rule interface {
	Name() string
	Severity() alerts.Severity
	Evaluate(sensors map[string]float64) (violated bool, detail string)
}

// RulesFor returns the built-in rule set for an equipment type.
func RulesFor(equipmentType equipment.Type) []Rule {
	switch equipmentType {
	case equipment.TypeMotor:
		return []Rule{
			overheatUnderLoadRule{},
			bearingVibrationRule{},
			currentImbalanceRule{},
		}
	case equipment.TypeTransformer:
		return []Rule{
			oilTemperatureRule{},
			transformerOverloadRule{},
		}
	case equipment.TypeBreaker:
		return []Rule{
			contactHeatingRule{},
		}
	case equipment.TypeBattery:
		return []Rule{
			deepDischargeRule{},
			batteryThermalRule{},
		}
	default:
		return nil
	}
}

func sensor(sensors map[string]float64, name string) (float64, bool) {
	value, ok := sensors[name]
	return value, ok
}

type overheatUnderLoadRule struct{}

func (overheatUnderLoadRule) Name() string              { return "motor-overheat-under-load" }
func (overheatUnderLoadRule) Severity() alerts.Severity { return alerts.SeverityHigh }

func (overheatUnderLoadRule) Evaluate(sensors map[string]float64) (bool, string) {
	temperature, hasTemp := sensor(sensors, "temperature")
	load, hasLoad := sensor(sensors, "load")
	if !hasTemp || !hasLoad {
		return false, ""
	}
	if temperature > 85 && load > 90 {
		return true, fmt.Sprintf("temperature %.1f°C at %.0f%% load", temperature, load)
	}
	return false, ""
}

type bearingVibrationRule struct{}

func (bearingVibrationRule) Name() string              { return "motor-bearing-vibration" }
func (bearingVibrationRule) Severity() alerts.Severity { return alerts.SeverityMedium }

func (bearingVibrationRule) Evaluate(sensors map[string]float64) (bool, string) {
	vibration, ok := sensor(sensors, "vibration")
	if !ok {
		return false, ""
	}
	if vibration > 6.0 {
		return true, fmt.Sprintf("vibration %.2f mm/s suggests bearing wear", vibration)
	}
	return false, ""
}

type currentImbalanceRule struct{}

func (currentImbalanceRule) Name() string              { return "motor-current-imbalance" }
func (currentImbalanceRule) Severity() alerts.Severity { return alerts.SeverityMedium }

func (currentImbalanceRule) Evaluate(sensors map[string]float64) (bool, string) {
	current, hasCurrent := sensor(sensors, "current")
	speed, hasSpeed := sensor(sensors, "speed")
	if !hasCurrent || !hasSpeed {
		return false, ""
	}
	if current > 95 && speed < 50 {
		return true, fmt.Sprintf("current %.0f%% at %.0f%% speed", current, speed)
	}
	return false, ""
}

type oilTemperatureRule struct{}

func (oilTemperatureRule) Name() string              { return "transformer-oil-temperature" }
func (oilTemperatureRule) Severity() alerts.Severity { return alerts.SeverityHigh }

func (oilTemperatureRule) Evaluate(sensors map[string]float64) (bool, string) {
	oilTemp, ok := sensor(sensors, "oil_temperature")
	if !ok {
		return false, ""
	}
	if oilTemp > 95 {
		return true, fmt.Sprintf("oil temperature %.1f°C", oilTemp)
	}
	return false, ""
}

type transformerOverloadRule struct{}

func (transformerOverloadRule) Name() string              { return "transformer-overload" }
func (transformerOverloadRule) Severity() alerts.Severity { return alerts.SeverityHigh }

func (transformerOverloadRule) Evaluate(sensors map[string]float64) (bool, string) {
	load, ok := sensor(sensors, "load")
	if !ok {
		return false, ""
	}
	if load > 95 {
		return true, fmt.Sprintf("sustained load %.0f%%", load)
	}
	return false, ""
}

type contactHeatingRule struct{}

func (contactHeatingRule) Name() string              { return "breaker-contact-heating" }
func (contactHeatingRule) Severity() alerts.Severity { return alerts.SeverityHigh }

func (contactHeatingRule) Evaluate(sensors map[string]float64) (bool, string) {
	temperature, hasTemp := sensor(sensors, "temperature")
	current, hasCurrent := sensor(sensors, "current")
	if !hasTemp || !hasCurrent {
		return false, ""
	}
	if temperature > 70 && current > 80 {
		return true, fmt.Sprintf("contact temperature %.1f°C under %.0f%% current", temperature, current)
	}
	return false, ""
}

type deepDischargeRule struct{}

func (deepDischargeRule) Name() string              { return "battery-deep-discharge" }
func (deepDischargeRule) Severity() alerts.Severity { return alerts.SeverityHigh }

func (deepDischargeRule) Evaluate(sensors map[string]float64) (bool, string) {
	soc, ok := sensor(sensors, "state_of_charge")
	if !ok {
		return false, ""
	}
	if soc < 15 {
		return true, fmt.Sprintf("state of charge %.0f%%", soc)
	}
	return false, ""
}

type batteryThermalRule struct{}

func (batteryThermalRule) Name() string              { return "battery-thermal" }
func (batteryThermalRule) Severity() alerts.Severity { return alerts.SeverityCritical }

func (batteryThermalRule) Evaluate(sensors map[string]float64) (bool, string) {
	temperature, ok := sensor(sensors, "temperature")
	if !ok {
		return false, ""
	}
	if temperature > 45 {
		return true, fmt.Sprintf("cell temperature %.1f°C", temperature)
	}
	return false, ""
}
