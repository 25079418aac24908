package logic

import "time"

// DefaultChimeWindow is how long a chime session stays open after its first
// strike. Long enough for the twelve strikes of noon plus the quarter chimes.
const DefaultChimeWindow = 2 * time.Minute

// ChimeMonitor counts rising edges of the chime lever and summarises each
// burst of strikes as a ClockTimeReport.
type ChimeMonitor struct {
	window time.Duration

	primed    bool
	prevHigh  bool
	count     int
	open      bool
	startedAt time.Time
}

// NewChimeMonitor creates a monitor that closes a session window after its
// first strike.
func NewChimeMonitor(window time.Duration) *ChimeMonitor {
	return &ChimeMonitor{window: window}
}

// Process takes a lever sample and returns a report when a session closes.
// The first sample only establishes the previous level.
func (m *ChimeMonitor) Process(s ChimeSample) *ClockTimeReport {
	if !m.primed {
		m.primed = true
		m.prevHigh = s.High
		return nil
	}

	if !m.prevHigh && s.High {
		m.count++
		if !m.open {
			m.open = true
			m.startedAt = s.Time
		}
	}
	m.prevHigh = s.High

	if m.open && s.Time.Sub(m.startedAt) >= m.window {
		report := &ClockTimeReport{
			NumberOfChimes: m.count,
			OffsetSeconds:  OffsetFromHalfHour(m.startedAt),
			FirstChime:     m.startedAt,
		}
		m.count = 0
		m.open = false
		return report
	}

	return nil
}

// Pending returns the strikes counted in the open session, if any.
func (m *ChimeMonitor) Pending() (count int, open bool) {
	return m.count, m.open
}
