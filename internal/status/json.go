package status

import (
	"time"

	"github.com/goccy/go-json"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string         `json:"event,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	PendulumCatcher string         `json:"pendulum_catcher"`
	ClockWinder     string         `json:"clock_winder"`
	ClockTime       *ClockTimeJSON `json:"clock_time,omitempty"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	StartTime       string         `json:"start_time"`
	Timestamp       string         `json:"timestamp"`
	MQTT            MQTTStatus     `json:"mqtt"`
	Counts          CountsJSON     `json:"counts"`
	Config          ConfigJSON     `json:"config"`
}

// ClockTimeJSON is the most recent chime session.
type ClockTimeJSON struct {
	NumberOfChimes int     `json:"number_of_chimes"`
	OffsetSeconds  float64 `json:"offset_seconds"`
	FirstChime     string  `json:"first_chime"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Prefix    string `json:"topic_prefix"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ChimeSessions  int `json:"chime_sessions"`
	PendulumFaults int `json:"pendulum_faults"`
	Commands       int `json:"commands"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs            int64  `json:"poll_ms"`
	PendulumTimeoutMs int64  `json:"pendulum_timeout_ms"`
	ChimeWindowMs     int64  `json:"chime_window_ms"`
	HTTPAddr          string `json:"http_addr"`
}

func stateOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		PendulumCatcher: stateOr(string(snap.Pendulum), "Unknown"),
		ClockWinder:     stateOr(string(snap.Winder), "Unknown"),
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Prefix:    snap.Config.TopicPrefix,
		},
		Counts: CountsJSON{
			ChimeSessions:  snap.Counts.ChimeSessions,
			PendulumFaults: snap.Counts.PendulumFaults,
			Commands:       snap.Counts.Commands,
		},
		Config: ConfigJSON{
			PollMs:            snap.Config.PollMs,
			PendulumTimeoutMs: snap.Config.PendulumTimeoutMs,
			ChimeWindowMs:     snap.Config.ChimeWindowMs,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}

	if r := snap.LastClockTime; r != nil {
		inner.ClockTime = &ClockTimeJSON{
			NumberOfChimes: r.NumberOfChimes,
			OffsetSeconds:  r.OffsetSeconds,
			FirstChime:     r.FirstChime.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
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
