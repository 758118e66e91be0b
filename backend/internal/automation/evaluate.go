package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"smartfarm-backend/backend/internal/models"
)

// ParseSensorValue accepts either a bare numeric payload or a JSON object
// with a "value" field. Anything that does not resolve to a finite number is
// an error.
func ParseSensorValue(payload []byte) (float64, error) {
	raw := bytes.TrimSpace(payload)
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty payload")
	}

	var value float64

	if raw[0] == '{' {
		// Device JSON payloads carry fields beyond value, so this parse is
		// deliberately lenient about unknown keys.
		var body struct {
			Value *float64 `json:"value"`
		}

		if err := json.Unmarshal(raw, &body); err != nil {
			return 0, fmt.Errorf("malformed JSON payload: %w", err)
		}

		if body.Value == nil {
			return 0, fmt.Errorf("payload has no value field")
		}

		value = *body.Value
	} else {
		parsed, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric payload %q", raw)
		}

		value = parsed
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("non-finite value")
	}

	return value, nil
}

// UnitFor maps a sensor type to its physical unit.
func UnitFor(sensorType models.SensorType) string {
	switch sensorType {
	case models.SensorTemperature:
		return "°C"
	case models.SensorHumidity, models.SensorSoilMoisture:
		return "%"
	case models.SensorWaterLevel:
		return "cm"
	case models.SensorLight:
		return "lux"
	default:
		return ""
	}
}

// AlertTypeFor returns the derived alert type for a sensor, or "" for
// sensors that do not carry thresholds.
func AlertTypeFor(sensorType models.SensorType) string {
	switch sensorType {
	case models.SensorTemperature:
		return "high_temperature"
	case models.SensorSoilMoisture:
		return "low_soil_moisture"
	case models.SensorLight:
		return "low_light"
	default:
		return ""
	}
}

// AutoControlTarget maps a threshold-bearing sensor to the actuator that
// counteracts its breach.
func AutoControlTarget(sensorType models.SensorType) string {
	switch sensorType {
	case models.SensorSoilMoisture:
		return models.DevicePump
	case models.SensorTemperature:
		return models.DeviceFan
	case models.SensorLight:
		return models.DeviceLEDFarm
	default:
		return ""
	}
}

// Breached applies the fixed per-sensor direction: temperature alerts above
// its threshold, soil moisture and light alert below theirs.
func Breached(value float64, threshold models.Threshold) bool {
	if threshold.SensorType == models.SensorTemperature {
		return value > threshold.ThresholdValue
	}

	return value < threshold.ThresholdValue
}

type Decision int

const (
	DecisionNone Decision = iota
	DecisionRaise
	DecisionResolve
)

// Evaluate decides what a reading means given the active threshold and the
// currently active alert, if any. It is a pure function of its inputs.
func Evaluate(reading models.SensorReading, threshold models.Threshold, active *models.Alert) Decision {
	breached := Breached(reading.Value, threshold)

	switch {
	case breached && active == nil:
		return DecisionRaise
	case !breached && active != nil:
		return DecisionResolve
	default:
		return DecisionNone
	}
}

func alertTitle(sensorType models.SensorType) string {
	switch sensorType {
	case models.SensorTemperature:
		return "Temperature too high"
	case models.SensorSoilMoisture:
		return "Soil moisture too low"
	case models.SensorLight:
		return "Light level too low"
	default:
		return ""
	}
}

func alertMessage(reading models.SensorReading, threshold models.Threshold) string {
	direction := "below"
	if reading.SensorType == models.SensorTemperature {
		direction = "above"
	}

	return fmt.Sprintf("%s reading %.1f%s is %s the configured threshold of %.1f%s",
		reading.SensorType, reading.Value, reading.Unit, direction,
		threshold.ThresholdValue, reading.Unit)
}
