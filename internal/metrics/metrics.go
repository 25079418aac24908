// Package metrics holds the Prometheus collectors of the clock controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/church-clock/internal/logic"
)

const namespace = "churchclock"

var (
	chimeReports = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chime_reports_total",
			Help:      "The total number of chime sessions reported",
		},
	)
	chimeCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chime_last_count",
			Help:      "Number of strikes in the last chime session",
		},
	)
	clockOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_offset_seconds",
			Help:      "Offset of the last chime session from the nearest half hour",
		},
	)
	pendulumState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pendulum_catcher_state",
			Help:      "1 for the current pendulum catcher state, 0 otherwise",
		},
		[]string{"state"},
	)
	pendulumFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pendulum_catcher_faults_total",
			Help:      "The total number of pendulum catcher timeouts",
		},
	)
	winderState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_winder_state",
			Help:      "1 for the current clock winder state, 0 otherwise",
		},
		[]string{"state"},
	)
	commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pendulum_commands_total",
			Help:      "Remote pendulum commands received, by result",
		},
		[]string{"result"},
	)
	gpioErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gpio_errors_total",
			Help:      "GPIO read or write failures, by controller",
		},
		[]string{"controller"},
	)
	queuedEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queued_events",
			Help:      "Events waiting for room in a full channel, by source",
		},
		[]string{"source"},
	)
	mqttPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_published_total",
			Help:      "Messages published to the broker, by topic",
		},
		[]string{"topic"},
	)
	mqttFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publish_failures_total",
			Help:      "Messages dropped after all publish retries, by topic",
		},
		[]string{"topic"},
	)
	mqttBuffered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_buffered_total",
			Help:      "Messages buffered while the broker was unreachable",
		},
	)
	mqttConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_up",
			Help:      "Connection with MQTT broker",
		},
	)
)

// ObserveClockTime records a finished chime session.
func ObserveClockTime(r logic.ClockTimeReport) {
	chimeReports.Inc()
	chimeCount.Set(float64(r.NumberOfChimes))
	clockOffset.Set(r.OffsetSeconds)
}

// SetPendulumState marks s as the current pendulum catcher state.
func SetPendulumState(s logic.PendulumCatcherState) {
	for _, known := range logic.PendulumCatcherStates {
		v := 0.0
		if known == s {
			v = 1
		}
		pendulumState.WithLabelValues(string(known)).Set(v)
	}
	if s == logic.PendulumError {
		pendulumFaults.Inc()
	}
}

// SetWinderState marks s as the current clock winder state.
func SetWinderState(s logic.ClockWinderState) {
	for _, known := range logic.ClockWinderStates {
		v := 0.0
		if known == s {
			v = 1
		}
		winderState.WithLabelValues(string(known)).Set(v)
	}
}

// CommandReceived counts a remote command; result is "accepted", "ignored" or "dropped".
func CommandReceived(result string) {
	commands.WithLabelValues(result).Inc()
}

// GPIOError counts a failed pin access by the named controller.
func GPIOError(controller string) {
	gpioErrors.WithLabelValues(controller).Inc()
}

// SetQueued records how many events from source are waiting to be delivered.
func SetQueued(source string, n int) {
	queuedEvents.WithLabelValues(source).Set(float64(n))
}

// Published counts a message delivered to the broker.
func Published(topic string) {
	mqttPublished.WithLabelValues(topic).Inc()
}

// PublishFailed counts a message given up on after retries.
func PublishFailed(topic string) {
	mqttFailed.WithLabelValues(topic).Inc()
}

// Buffered counts a message held back while disconnected.
func Buffered() {
	mqttBuffered.Inc()
}

// SetMQTTConnected records the broker connection state.
func SetMQTTConnected(up bool) {
	if up {
		mqttConnected.Set(1)
		return
	}
	mqttConnected.Set(0)
}
