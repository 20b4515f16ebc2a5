// Package status provides a thread-safe status tracker for the bench.
// It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ctc-blinky/internal/monitor"
)

// Config contains bench configuration for display. The timer fields are
// the firmware's compile-time constants.
type Config struct {
	ClockHz     uint32
	Prescaler   uint16
	Threshold   uint16
	Ack         string
	HeartbeatMs int64
	Broker      string // empty = MQTT disabled
	HTTPAddr    string
	GPIOLine    int // negative = mirror disabled
}

// Timer holds simulated peripheral counters.
type Timer struct {
	Matches  uint64
	Serviced uint64
	Storms   uint64
	Elapsed  time.Duration // simulated time since reset
}

// Snapshot is a point-in-time view of bench state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Level         monitor.Level
	Baselined     bool
	Counts        monitor.Counts
	Stats         monitor.Stats
	Timer         Timer
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the bench started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable bench state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the LED level, baseline status, edge counts and timing.
// Called on every runner step.
func (t *Tracker) Update(level monitor.Level, baselined bool, counts monitor.Counts, stats monitor.Stats) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.snap.Stats = stats
	t.mu.Unlock()
}

// SetTimer records the simulated peripheral counters.
func (t *Tracker) SetTimer(timer Timer) {
	t.mu.Lock()
	t.snap.Timer = timer
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the bench state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
