package topics

import "testing"

func TestTopicNames(t *testing.T) {
	t.Parallel()

	tt := New("farm")

	tests := []struct {
		got  string
		want string
	}{
		{tt.Sensors(), "farm/sensors/+"},
		{tt.Heartbeat(), "farm/status/heartbeat"},
		{tt.LWT(), "farm/status/lwt"},
		{tt.RequestThresholds(), "farm/status/request_thresholds"},
		{tt.Status(), "farm/status/#"},
		{tt.Control("pump"), "farm/control/pump"},
		{tt.ConfigThresholds(), "farm/config/thresholds"},
		{tt.Alerts(), "farm/alerts"},
	}

	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestDefaultPrefix(t *testing.T) {
	t.Parallel()

	if got := New("").Alerts(); got != "farm/alerts" {
		t.Errorf("empty prefix should default to farm, got %q", got)
	}

	if got := New("greenhouse/").Alerts(); got != "greenhouse/alerts" {
		t.Errorf("trailing slash should be trimmed, got %q", got)
	}
}

func TestSensorTypeParsing(t *testing.T) {
	t.Parallel()

	tt := New("farm")

	tests := []struct {
		topic string
		want  string
	}{
		{"farm/sensors/temperature", "temperature"},
		{"farm/sensors/soil_moisture", "soil_moisture"},
		{"farm/sensors/", ""},
		{"farm/sensors/temperature/extra", ""},
		{"farm/status/heartbeat", ""},
		{"other/sensors/temperature", ""},
	}

	for _, tc := range tests {
		if got := tt.SensorType(tc.topic); got != tc.want {
			t.Errorf("SensorType(%q) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}
