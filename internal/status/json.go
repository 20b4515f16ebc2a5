package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ctc-blinky/internal/blink"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	LED           string         `json:"led"`
	Ready         bool           `json:"ready"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Edges         EdgesJSON      `json:"edges"`
	HalfPeriod    HalfPeriodJSON `json:"half_period"`
	Timer         TimerJSON      `json:"timer"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// EdgesJSON is the JSON representation of edge counts.
type EdgesJSON struct {
	Rises int `json:"rises"`
	Falls int `json:"falls"`
}

// HalfPeriodJSON is the JSON representation of measured half-periods.
type HalfPeriodJSON struct {
	LastMs float64 `json:"last_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	N      int     `json:"n"`
}

// TimerJSON is the JSON representation of the simulated Timer1 counters.
type TimerJSON struct {
	Matches    uint64  `json:"matches"`
	Serviced   uint64  `json:"serviced"`
	Storms     uint64  `json:"storms"`
	SimSeconds float64 `json:"sim_seconds"`
}

// ConfigJSON is the JSON representation of bench config.
type ConfigJSON struct {
	ClockHz     uint32  `json:"clock_hz"`
	Prescaler   uint16  `json:"prescaler"`
	Threshold   uint16  `json:"threshold"`
	PeriodMs    float64 `json:"period_ms"`
	Ack         string  `json:"ack"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
	GPIOLine    int     `json:"gpio_line"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func buildInner(snap Snapshot) StatusInner {
	led := string(snap.Level)
	if led == "" {
		led = "UNKNOWN"
	}
	cfg := snap.Config

	return StatusInner{
		LED:           led,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Edges:         EdgesJSON{Rises: snap.Counts.Rises, Falls: snap.Counts.Falls},
		HalfPeriod: HalfPeriodJSON{
			LastMs: ms(snap.Stats.Last),
			MinMs:  ms(snap.Stats.Min),
			MaxMs:  ms(snap.Stats.Max),
			N:      snap.Stats.N,
		},
		Timer: TimerJSON{
			Matches:    snap.Timer.Matches,
			Serviced:   snap.Timer.Serviced,
			Storms:     snap.Timer.Storms,
			SimSeconds: snap.Timer.Elapsed.Seconds(),
		},
		Config: ConfigJSON{
			ClockHz:     cfg.ClockHz,
			Prescaler:   cfg.Prescaler,
			Threshold:   cfg.Threshold,
			PeriodMs:    ms(blink.Period(cfg.ClockHz, cfg.Prescaler, cfg.Threshold)),
			Ack:         cfg.Ack,
			HeartbeatMs: cfg.HeartbeatMs,
			Broker:      cfg.Broker,
			HTTPAddr:    cfg.HTTPAddr,
			GPIOLine:    cfg.GPIOLine,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
