// Package topics builds and parses the MQTT topic names shared by the
// backend and the field controller.
package topics

import "strings"

const DefaultPrefix = "farm"

type Topics struct {
	prefix string
}

func New(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return Topics{prefix: strings.TrimSuffix(prefix, "/")}
}

// Sensors is the wildcard filter for inbound sensor readings.
func (t Topics) Sensors() string {
	return t.prefix + "/sensors/+"
}

// SensorType extracts the sensor type suffix from a sensors topic.
// It returns "" when the topic is not a sensors topic.
func (t Topics) SensorType(topic string) string {
	rest, ok := strings.CutPrefix(topic, t.prefix+"/sensors/")
	if !ok || strings.Contains(rest, "/") {
		return ""
	}

	return rest
}

func (t Topics) Heartbeat() string {
	return t.prefix + "/status/heartbeat"
}

func (t Topics) LWT() string {
	return t.prefix + "/status/lwt"
}

func (t Topics) RequestThresholds() string {
	return t.prefix + "/status/request_thresholds"
}

// Status is the wildcard filter covering all status messages.
func (t Topics) Status() string {
	return t.prefix + "/status/#"
}

// Control is the command topic for one device.
func (t Topics) Control(deviceName string) string {
	return t.prefix + "/control/" + deviceName
}

// ConfigThresholds carries the retained threshold configuration.
func (t Topics) ConfigThresholds() string {
	return t.prefix + "/config/thresholds"
}

// Alerts carries alert raise and resolve events.
func (t Topics) Alerts() string {
	return t.prefix + "/alerts"
}
