// Package mqttapi wires inbound MQTT traffic to the domain components. It
// owns the subscription set and the per-topic payload parsing; handlers drop
// malformed messages with a logged error and never stop the dispatcher.
package mqttapi

import (
	"context"
	"encoding/json"
	"log/slog"

	"smartfarm-backend/backend/internal/automation"
	"smartfarm-backend/backend/internal/liveness"
	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/internal/topics"
	"smartfarm-backend/backend/pkg/mqtt"
	"smartfarm-backend/backend/pkg/utils"
)

type Router struct {
	l       *slog.Logger
	topics  topics.Topics
	engine  *automation.Engine
	tracker *liveness.Tracker
}

func NewRouter(l *slog.Logger, t topics.Topics, engine *automation.Engine, tracker *liveness.Tracker) *Router {
	return &Router{
		l:       l.With(slog.String("component", "mqttapi")),
		topics:  t,
		engine:  engine,
		tracker: tracker,
	}
}

// Register installs all subscriptions on the client. Must run before the
// client connects.
func (r *Router) Register(client *mqtt.Client) {
	client.MustSubscribe(r.topics.Sensors(), 1, r.handleSensor)
	client.MustSubscribe(r.topics.Status(), 1, r.handleStatus)
}

func (r *Router) handleSensor(msg mqtt.Message) {
	sensorType := models.SensorType(r.topics.SensorType(msg.Topic))
	if sensorType == "" {
		r.l.Warn("unroutable sensor topic", slog.String("topic", msg.Topic))
		return
	}

	if err := r.engine.HandleReading(context.Background(), sensorType, msg.Payload); err != nil {
		r.l.Error("sensor message dropped", slog.String("topic", msg.Topic), utils.ErrAttr(err))
	}
}

type heartbeatPayload struct {
	DeviceID string `json:"deviceId"`
	IP       string `json:"ip"`
}

type lwtPayload struct {
	DeviceID string `json:"deviceId"`
}

func (r *Router) handleStatus(msg mqtt.Message) {
	ctx := context.Background()

	switch msg.Topic {
	case r.topics.Heartbeat():
		var body heartbeatPayload
		if err := json.Unmarshal(msg.Payload, &body); err != nil {
			r.l.Error("malformed heartbeat dropped", utils.ErrAttr(err))
			return
		}

		if err := r.tracker.RecordHeartbeat(ctx, body.DeviceID, body.IP); err != nil {
			r.l.Error("failed to record heartbeat", utils.ErrAttr(err))
		}
	case r.topics.LWT():
		var body lwtPayload
		if err := json.Unmarshal(msg.Payload, &body); err != nil {
			r.l.Error("malformed last-will dropped", utils.ErrAttr(err))
			return
		}

		if err := r.tracker.RecordOffline(ctx, body.DeviceID, msg.Retained); err != nil {
			r.l.Error("failed to record offline status", utils.ErrAttr(err))
		}
	case r.topics.RequestThresholds():
		r.l.Info("threshold config requested by device")

		if err := r.engine.BroadcastThresholds(ctx); err != nil {
			r.l.Error("failed to rebroadcast thresholds", utils.ErrAttr(err))
		}
	default:
		// Device-reported runtime state is informational only. Writing it
		// into device_controls would corrupt the logical mode history.
		r.l.Info("device status",
			slog.String("topic", msg.Topic),
			slog.String("payload", string(msg.Payload)))
	}
}
