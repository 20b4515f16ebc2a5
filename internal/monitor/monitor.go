package monitor

import "time"

// Monitor tracks the LED level and reports edges.
type Monitor struct {
	startTime     time.Time
	baselined     bool
	level         Level
	lastEdge      time.Time
	seq           uint64
	counts        Counts
	stats         Stats
	lastHeartbeat time.Time
}

// NewMonitor creates a monitor. The startTime is used for calculating
// uptime in heartbeat events.
func NewMonitor(startTime time.Time) *Monitor {
	return &Monitor{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a sample and returns the edge it completes, if any.
// The first sample only sets the baseline; its time is the reference
// for the first half-period.
func (m *Monitor) Process(s Sample) []Event {
	level := boolToLevel(s.Level)

	if !m.baselined {
		m.baselined = true
		m.level = level
		m.lastEdge = s.Time
		return nil
	}

	if level == m.level {
		return nil
	}

	half := s.Time.Sub(m.lastEdge)
	m.level = level
	m.lastEdge = s.Time
	m.seq++
	m.record(half)

	typ := EventFall
	if level == LevelHigh {
		typ = EventRise
		m.counts.Rises++
	} else {
		m.counts.Falls++
	}

	return []Event{{
		Timestamp:  s.Time,
		Type:       typ,
		Level:      level,
		HalfPeriod: half,
		Seq:        m.seq,
	}}
}

func (m *Monitor) record(half time.Duration) {
	st := &m.stats
	st.Last = half
	if st.N == 0 || half < st.Min {
		st.Min = half
	}
	if half > st.Max {
		st.Max = half
	}
	st.N++
}

func boolToLevel(b bool) Level {
	if b {
		return LevelHigh
	}
	return LevelLow
}

// IsBaselined returns whether the monitor has seen its first sample.
func (m *Monitor) IsBaselined() bool {
	return m.baselined
}

// CurrentLevel returns the last seen level, or "" before the baseline.
func (m *Monitor) CurrentLevel() Level {
	return m.level
}

// CountsSnapshot returns a copy of the edge counts.
func (m *Monitor) CountsSnapshot() Counts {
	return m.counts
}

// StatsSnapshot returns a copy of the half-period statistics.
func (m *Monitor) StatsSnapshot() Stats {
	return m.stats
}

// Within reports whether every measured half-period lies within
// tolerance of expected. It is true when nothing was measured yet.
func (m *Monitor) Within(expected, tolerance time.Duration) bool {
	if m.stats.N == 0 {
		return true
	}
	return m.stats.Min >= expected-tolerance && m.stats.Max <= expected+tolerance
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if not yet baselined, if
// the interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !m.baselined {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.counts,
		Stats:     m.stats,
	}
}
