package mqtt

import (
	"sync"

	"github.com/sweeney/church-clock/internal/logic"
)

// Message is a published topic and payload, as recorded by FakePublisher.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Topics resolves topic names for recorded messages.
	Topics Topics

	// Messages contains every message published, in order.
	Messages []Message

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher(topics Topics) *FakePublisher {
	return &FakePublisher{Topics: topics, Connected: true}
}

func (f *FakePublisher) record(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// PublishAppStatus records the uptime message.
func (f *FakePublisher) PublishAppStatus(status AppStatus) error {
	payload, err := FormatAppStatus(status)
	if err != nil {
		return err
	}
	return f.record(f.Topics.AppStatus(), payload, false)
}

// PublishClockTime records the chime session report.
func (f *FakePublisher) PublishClockTime(report logic.ClockTimeReport) error {
	payload, err := FormatClockTime(report)
	if err != nil {
		return err
	}
	return f.record(f.Topics.ClockTime(), payload, false)
}

// PublishPendulumCatcher records the catcher state.
func (f *FakePublisher) PublishPendulumCatcher(state logic.PendulumCatcherState) error {
	return f.record(f.Topics.PendulumCatcher(), []byte(state), false)
}

// PublishClockWinder records the winder state.
func (f *FakePublisher) PublishClockWinder(state logic.ClockWinderState) error {
	return f.record(f.Topics.ClockWinder(), []byte(state), false)
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	if err := f.record(f.Topics.System(), payload, event.Retained); err != nil {
		return err
	}

	f.mu.Lock()
	f.SystemEvents = append(f.SystemEvents, event)
	f.mu.Unlock()
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the value reported by IsConnected.
func (f *FakePublisher) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = connected
}

// On returns the payloads published on topic, in order, as strings.
func (f *FakePublisher) On(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, string(m.Payload))
		}
	}
	return out
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.SystemEvents = nil
	f.PublishError = nil
	f.Closed = false
}
