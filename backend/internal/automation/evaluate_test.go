package automation

import (
	"testing"

	"smartfarm-backend/backend/internal/models"
)

func TestParseSensorValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    float64
		wantErr bool
	}{
		{name: "bare float", payload: "23.5", want: 23.5},
		{name: "bare int", payload: "42", want: 42},
		{name: "negative", payload: "-3.25", want: -3.25},
		{name: "whitespace", payload: "  18.0\n", want: 18},
		{name: "json value", payload: `{"value": 55.5}`, want: 55.5},
		{name: "json with extra fields", payload: `{"value": 12, "unit": "%", "ts": 1}`, want: 12},
		{name: "empty", payload: "", wantErr: true},
		{name: "text", payload: "warm", wantErr: true},
		{name: "json missing value", payload: `{"unit": "%"}`, wantErr: true},
		{name: "json null value", payload: `{"value": null}`, wantErr: true},
		{name: "malformed json", payload: `{"value":`, wantErr: true},
		{name: "nan", payload: "NaN", wantErr: true},
		{name: "infinity", payload: "+Inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSensorValue([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got value %v", got)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnitFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sensorType models.SensorType
		want       string
	}{
		{models.SensorTemperature, "°C"},
		{models.SensorHumidity, "%"},
		{models.SensorSoilMoisture, "%"},
		{models.SensorWaterLevel, "cm"},
		{models.SensorLight, "lux"},
	}

	for _, tt := range tests {
		if got := UnitFor(tt.sensorType); got != tt.want {
			t.Errorf("UnitFor(%s) = %q, want %q", tt.sensorType, got, tt.want)
		}
	}
}

func TestBreachedDirections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sensor    models.SensorType
		threshold float64
		value     float64
		want      bool
	}{
		{"temperature above", models.SensorTemperature, 30, 31, true},
		{"temperature at threshold", models.SensorTemperature, 30, 30, false},
		{"temperature below", models.SensorTemperature, 30, 25, false},
		{"soil moisture below", models.SensorSoilMoisture, 30, 25, true},
		{"soil moisture at threshold", models.SensorSoilMoisture, 30, 30, false},
		{"soil moisture above", models.SensorSoilMoisture, 30, 40, false},
		{"light below", models.SensorLight, 200, 150, true},
		{"light above", models.SensorLight, 200, 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			threshold := models.Threshold{SensorType: tt.sensor, ThresholdValue: tt.threshold}
			if got := Breached(tt.value, threshold); got != tt.want {
				t.Errorf("Breached(%v, %v) = %v, want %v", tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	threshold := models.Threshold{SensorType: models.SensorSoilMoisture, ThresholdValue: 30}
	active := &models.Alert{ID: "a1", Type: "low_soil_moisture", Status: models.AlertActive}

	tests := []struct {
		name   string
		value  float64
		active *models.Alert
		want   Decision
	}{
		{"breach without alert raises", 25, nil, DecisionRaise},
		{"breach with alert is quiet", 25, active, DecisionNone},
		{"recovery with alert resolves", 35, active, DecisionResolve},
		{"recovery without alert is quiet", 35, nil, DecisionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reading := models.SensorReading{SensorType: models.SensorSoilMoisture, Value: tt.value}
			if got := Evaluate(reading, threshold, tt.active); got != tt.want {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
