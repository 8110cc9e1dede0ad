package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Publisher is the MQTT client surface used by MQTTSink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSink publishes events as JSON to "<prefix>/<type>".
// Publishing waits for broker acknowledgement, so wrap it in Async.
type MQTTSink struct {
	pub    Publisher
	prefix string
	qos    byte
	logger Logger
}

// NewMQTTSink creates an MQTT sink publishing under prefix.
func NewMQTTSink(pub Publisher, prefix string, qos byte, logger Logger) *MQTTSink {
	return &MQTTSink{pub: pub, prefix: prefix, qos: qos, logger: logger}
}

// Topic returns the topic an event of type t is published on.
func (s *MQTTSink) Topic(t Type) string {
	return fmt.Sprintf("%s/%s", s.prefix, t)
}

// Publish implements Sink.
func (s *MQTTSink) Publish(_ context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logf("marshalling event", ev, err)
		return
	}
	if err := s.pub.Publish(s.Topic(ev.Type), payload, s.qos, false); err != nil {
		s.logf("publishing event to MQTT", ev, err)
	}
}

func (s *MQTTSink) logf(msg string, ev Event, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, "type", string(ev.Type), "error", err)
	}
}

// PointWriter is the InfluxDB client surface used by PointSink.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// PointSink records each event as a time-series point. Account events go to
// the "auth_events" measurement, space events to "space_events".
type PointSink struct {
	w PointWriter
}

// NewPointSink creates a telemetry sink.
func NewPointSink(w PointWriter) *PointSink {
	return &PointSink{w: w}
}

// Publish implements Sink.
func (s *PointSink) Publish(_ context.Context, ev Event) {
	measurement := "auth_events"
	tags := map[string]string{"type": string(ev.Type)}
	if ev.Type.IsSpaceEvent() {
		measurement = "space_events"
		tags["space_id"] = strconv.FormatInt(ev.SpaceID, 10)
	}
	if ev.Reason != "" {
		tags["reason"] = ev.Reason
	}

	s.w.WritePoint(measurement, tags, map[string]interface{}{
		"count":   1,
		"user_id": ev.UserID,
	})
}

// Broadcaster is the WebSocket hub surface used by BroadcastSink.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastSink pushes space events to WebSocket clients subscribed to the
// event type. Account events are not broadcast.
type BroadcastSink struct {
	b Broadcaster
}

// NewBroadcastSink creates a WebSocket sink.
func NewBroadcastSink(b Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

// Publish implements Sink.
func (s *BroadcastSink) Publish(_ context.Context, ev Event) {
	if !ev.Type.IsSpaceEvent() {
		return
	}
	s.b.Broadcast(string(ev.Type), ev)
}
