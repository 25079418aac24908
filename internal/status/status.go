// Package status provides a thread-safe view of the clock controller for the
// web page and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/church-clock/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs            int64
	PendulumTimeoutMs int64
	ChimeWindowMs     int64
	Broker            string
	TopicPrefix       string
	HTTPAddr          string
}

// Counts tallies events since startup.
type Counts struct {
	ChimeSessions  int
	PendulumFaults int
	Commands       int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	LastClockTime *logic.ClockTimeReport
	Pendulum      logic.PendulumCatcherState
	Winder        logic.ClockWinderState
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// Both controllers start out Unknown.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Pendulum:  logic.PendulumUnknown,
			Winder:    logic.WinderUnknown,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordClockTime stores the latest chime session report.
func (t *Tracker) RecordClockTime(r logic.ClockTimeReport) {
	t.mu.Lock()
	t.snap.LastClockTime = &r
	t.snap.Counts.ChimeSessions++
	t.mu.Unlock()
}

// SetPendulum records a pendulum catcher state change.
func (t *Tracker) SetPendulum(s logic.PendulumCatcherState) {
	t.mu.Lock()
	t.snap.Pendulum = s
	if s == logic.PendulumError {
		t.snap.Counts.PendulumFaults++
	}
	t.mu.Unlock()
}

// SetWinder records a clock winder state change.
func (t *Tracker) SetWinder(s logic.ClockWinderState) {
	t.mu.Lock()
	t.snap.Winder = s
	t.mu.Unlock()
}

// CountCommand records a command forwarded to the pendulum catcher.
func (t *Tracker) CountCommand() {
	t.mu.Lock()
	t.snap.Counts.Commands++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastClockTime != nil {
		r := *s.LastClockTime
		s.LastClockTime = &r
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
