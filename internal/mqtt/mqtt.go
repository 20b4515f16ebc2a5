// Package mqtt publishes LED edges and bench lifecycle events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ctc-blinky/internal/monitor"
)

// Topic is the MQTT topic for LED edge events.
const Topic = "bench/blinky/led/edges"

// TopicSystem is the MQTT topic for bench lifecycle events.
const TopicSystem = "bench/blinky/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an LED edge to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event monitor.Event) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	LED LEDPayload `json:"led"`
}

// LEDPayload contains the edge details.
type LEDPayload struct {
	Timestamp    string  `json:"timestamp"`
	Event        string  `json:"event"`
	Level        string  `json:"level"`
	Seq          uint64  `json:"seq"`
	HalfPeriodMs float64 `json:"half_period_ms"`
}

// FormatPayload creates the JSON payload for an LED edge.
// Timestamps keep millisecond precision; edges are a second apart.
func FormatPayload(event monitor.Event) ([]byte, error) {
	payload := Payload{
		LED: LEDPayload{
			Timestamp:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Event:        string(event.Type),
			Level:        string(event.Level),
			Seq:          event.Seq,
			HalfPeriodMs: float64(event.HalfPeriod) / float64(time.Millisecond),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload for lifecycle events that don't carry a
// full status snapshot (the last will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
