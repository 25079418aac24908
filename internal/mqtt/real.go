package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/logic"
	"github.com/sweeney/church-clock/internal/metrics"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	keepAlive      = 20 * time.Second

	// publishRetries is the number of extra attempts before a message is dropped.
	publishRetries = 3

	// DefaultBufferSize is the number of messages kept while disconnected.
	DefaultBufferSize = 100
)

var errPublishTimeout = errors.New("publish timeout")

// Options configures a RealPublisher.
type Options struct {
	Broker   string // e.g. tcp://broker.local:1883
	Username string
	Password string
	Topics   Topics

	// BufferSize bounds the offline backlog. Zero means DefaultBufferSize.
	BufferSize int

	// Commands receives decoded pendulum catcher commands. Sends never block;
	// a command that finds the channel full is dropped.
	Commands chan<- logic.PendulumCatcherCommand
}

// RealPublisher publishes to an actual MQTT broker and listens for commands.
type RealPublisher struct {
	client   paho.Client
	topics   Topics
	commands chan<- logic.PendulumCatcherCommand
	newRetry func() backoff.BackOff

	mu      sync.Mutex
	backlog *backlog
}

// ClientID returns a client identifier unique to this process.
func ClientID() string {
	return "clock-controller-" + uuid.NewString()[:8]
}

// NewRealPublisher connects to the broker. An unreachable broker is an error;
// once connected, the client reconnects on its own and buffers messages
// published in the meantime.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := newPublisher(nil, o)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(ClientID()).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetKeepAlive(keepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetWill(o.Topics.System(), string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost).
		SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
			zap.S().Infof("mqtt: reconnecting to %s", o.Broker)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(client paho.Client, o Options) *RealPublisher {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RealPublisher{
		client:   client,
		topics:   o.Topics,
		commands: o.Commands,
		newRetry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return backoff.WithMaxRetries(b, publishRetries)
		},
		backlog: newBacklog(size),
	}
}

// PublishAppStatus sends the uptime message.
func (p *RealPublisher) PublishAppStatus(status AppStatus) error {
	payload, err := FormatAppStatus(status)
	if err != nil {
		return fmt.Errorf("format app status: %w", err)
	}
	return p.publish(p.topics.AppStatus(), 0, false, payload)
}

// PublishClockTime sends a chime session report.
func (p *RealPublisher) PublishClockTime(report logic.ClockTimeReport) error {
	payload, err := FormatClockTime(report)
	if err != nil {
		return fmt.Errorf("format clock time: %w", err)
	}
	return p.publish(p.topics.ClockTime(), 0, false, payload)
}

// PublishPendulumCatcher sends the catcher state name.
func (p *RealPublisher) PublishPendulumCatcher(state logic.PendulumCatcherState) error {
	return p.publish(p.topics.PendulumCatcher(), 0, false, []byte(state))
}

// PublishClockWinder sends the winder state name.
func (p *RealPublisher) PublishClockWinder(state logic.ClockWinderState) error {
	return p.publish(p.topics.ClockWinder(), 0, false, []byte(state))
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.topics.System(), 1, event.Retained, payload)
}

// IsConnected reports whether the connection to the broker is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	metrics.SetMQTTConnected(false)
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.backlog.add(pending{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		metrics.Buffered()
		zap.S().Debugf("mqtt: offline, buffered message for %s", topic)
		return nil
	}

	err := backoff.Retry(func() error {
		return p.send(topic, qos, retained, payload)
	}, p.newRetry())
	if err != nil {
		metrics.PublishFailed(topic)
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	metrics.Published(topic)
	return nil
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return token.Error()
}

// onConnect runs on every (re)connection. The session is clean, so the
// command subscription is renewed before the backlog is replayed.
func (p *RealPublisher) onConnect(c paho.Client) {
	zap.S().Infof("mqtt: connected")
	metrics.SetMQTTConnected(true)

	topic := p.topics.PendulumCatcherSet()
	token := c.Subscribe(topic, 1, p.onMessage)
	if !token.WaitTimeout(connectTimeout) {
		zap.S().Errorf("mqtt: subscribe to %s timed out", topic)
	} else if err := token.Error(); err != nil {
		zap.S().Errorf("mqtt: subscribe to %s: %v", topic, err)
	}

	p.mu.Lock()
	msgs := p.backlog.take()
	p.mu.Unlock()

	if len(msgs) > 0 {
		zap.S().Infof("mqtt: replaying %d buffered messages", len(msgs))
	}
	for _, m := range msgs {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			metrics.PublishFailed(m.topic)
			zap.S().Warnf("mqtt: replay to %s: %v", m.topic, err)
			continue
		}
		metrics.Published(m.topic)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	zap.S().Warnf("mqtt: connection lost: %v", err)
	metrics.SetMQTTConnected(false)
}

func (p *RealPublisher) onMessage(_ paho.Client, m paho.Message) {
	cmd, ok := DecodeCommand(m.Payload())
	if !ok {
		zap.S().Debugf("mqtt: ignoring %q on %s", m.Payload(), m.Topic())
		metrics.CommandReceived("ignored")
		return
	}

	select {
	case p.commands <- cmd:
		zap.S().Infof("mqtt: received command %s", cmd)
		metrics.CommandReceived("accepted")
	default:
		zap.S().Warnf("mqtt: command %s dropped, queue full", cmd)
		metrics.CommandReceived("dropped")
	}
}
