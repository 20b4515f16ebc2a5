// Package monitor turns LED level samples into edge events and timing
// statistics. Like the firmware core it does no I/O; time always comes in
// through the samples.
package monitor

import "time"

// Level is the logical LED output level.
type Level string

const (
	LevelHigh Level = "HIGH"
	LevelLow  Level = "LOW"
)

// EventType is the direction of an edge.
type EventType string

const (
	EventRise EventType = "LED_RISE"
	EventFall EventType = "LED_FALL"
)

// Event is one LED edge.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Level     Level

	// HalfPeriod is the time since the previous edge (or the baseline).
	HalfPeriod time.Duration

	// Seq numbers edges from 1 since the baseline.
	Seq uint64
}

// Sample is the LED level at a point in time.
type Sample struct {
	Level bool
	Time  time.Time
}

// Counts tracks edges since startup.
type Counts struct {
	Rises int
	Falls int
}

// Total is the number of toggles seen.
func (c Counts) Total() int {
	return c.Rises + c.Falls
}

// Stats summarises measured half-periods.
type Stats struct {
	Last time.Duration
	Min  time.Duration
	Max  time.Duration
	N    int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
	Stats     Stats
}
