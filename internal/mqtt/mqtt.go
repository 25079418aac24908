// Package mqtt publishes clock telemetry and receives pendulum catcher
// commands, with an abstraction for testing.
package mqtt

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/sweeney/church-clock/internal/logic"
)

// Topics resolves the controller's topics under a common prefix.
type Topics struct {
	Prefix string
}

// AppStatus carries the periodic uptime message.
func (t Topics) AppStatus() string { return t.Prefix + "/AppStatus" }

// ClockTime carries one report per chime session.
func (t Topics) ClockTime() string { return t.Prefix + "/ClockTime" }

// PendulumCatcher carries the catcher state on change.
func (t Topics) PendulumCatcher() string { return t.Prefix + "/PendulumCatcher" }

// PendulumCatcherSet is the inbound command topic.
func (t Topics) PendulumCatcherSet() string { return t.Prefix + "/PendulumCatcher/set" }

// ClockWinder carries the winder state on change.
func (t Topics) ClockWinder() string { return t.Prefix + "/ClockWinder" }

// System carries lifecycle events and the last will.
func (t Topics) System() string { return t.Prefix + "/System" }

// Publisher publishes controller events to MQTT.
// Errors are returned to the caller, which logs them and carries on.
type Publisher interface {
	PublishAppStatus(status AppStatus) error
	PublishClockTime(report logic.ClockTimeReport) error
	PublishPendulumCatcher(state logic.PendulumCatcherState) error
	PublishClockWinder(state logic.ClockWinderState) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// AppStatus is the periodic liveness message.
type AppStatus struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// NewAppStatus computes the uptime between start and now, in whole seconds.
func NewAppStatus(start, now time.Time) AppStatus {
	return AppStatus{UptimeSeconds: int64(now.Sub(start) / time.Second)}
}

// ClockTimePayload is the wire form of a chime session report.
type ClockTimePayload struct {
	NumberOfChimes int     `json:"number_of_chimes"`
	OffsetSeconds  float64 `json:"offset_seconds"`
}

// FormatAppStatus creates the JSON payload for an app status message.
func FormatAppStatus(status AppStatus) ([]byte, error) {
	return json.Marshal(status)
}

// FormatClockTime creates the JSON payload for a chime session report.
func FormatClockTime(report logic.ClockTimeReport) ([]byte, error) {
	return json.Marshal(ClockTimePayload{
		NumberOfChimes: report.NumberOfChimes,
		OffsetSeconds:  report.OffsetSeconds,
	})
}

// DecodeCommand maps a payload on the command topic to a catcher command.
// Anything other than the literal "Catch" or "Free" is rejected.
func DecodeCommand(payload []byte) (logic.PendulumCatcherCommand, bool) {
	return logic.ParsePendulumCatcherCommand(string(payload))
}

// System event names.
const (
	EventStartup  = "STARTUP"
	EventShutdown = "SHUTDOWN"
	EventOffline  = "OFFLINE"
)

// SystemEvent represents a system lifecycle event.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// SystemPayload is the payload for system events without a status snapshot,
// such as the last will.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is registered with the broker at connect time and published
// on our behalf if the connection drops uncleanly.
func WillPayload() []byte {
	payload, _ := FormatSystemPayload(SystemEvent{Event: EventOffline})
	return payload
}
