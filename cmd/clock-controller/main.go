// Command clock-controller runs a tower clock: it listens to the chime, parks
// and releases the pendulum on command, keeps the weights wound and reports
// everything over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/config"
	"github.com/sweeney/church-clock/internal/controller"
	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/logic"
	"github.com/sweeney/church-clock/internal/metrics"
	"github.com/sweeney/church-clock/internal/mqtt"
	"github.com/sweeney/church-clock/internal/status"
	"github.com/sweeney/church-clock/internal/web"
)

// eventBuffer is the capacity of every channel between the controllers and the main loop.
const eventBuffer = 16

type options struct {
	configPath      string
	chip            string
	poll            time.Duration
	pendulumTimeout time.Duration
	chimeWindow     time.Duration
	ledPeriod       time.Duration
	appStatusPeriod time.Duration
	httpAddr        string
	bufferSize      int
	printState      bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "config.json", "Broker configuration file (.json or .yaml)")
	flag.StringVar(&o.chip, "chip", "gpiochip0", "GPIO character device")
	flag.DurationVar(&o.poll, "poll", controller.DefaultPollInterval, "GPIO polling interval")
	flag.DurationVar(&o.pendulumTimeout, "pendulum-timeout", logic.DefaultPendulumTimeout, "Time allowed for the pendulum catcher to reach an end-stop")
	flag.DurationVar(&o.chimeWindow, "chime-window", logic.DefaultChimeWindow, "Length of a chime session")
	flag.DurationVar(&o.ledPeriod, "led-period", 500*time.Millisecond, "Heartbeat LED toggle period")
	flag.DurationVar(&o.appStatusPeriod, "app-status-period", 10*time.Second, "AppStatus publish period")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.IntVar(&o.bufferSize, "buffer", mqtt.DefaultBufferSize, "Messages kept while the broker is unreachable")
	flag.BoolVar(&o.printState, "print-state", false, "Print the input pin levels and exit")
	flag.Parse()

	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION")
	log := logger.New(logLevel)
	defer log.Sync() //nolint:errcheck

	if err := run(o); err != nil {
		zap.S().Fatalf("fatal: %v", err)
	}
}

// pins is every line the controller drives or samples.
type pins struct {
	led      gpio.Output
	lever    gpio.Input
	pendulum controller.PendulumPins
	winder   controller.WinderPins
}

func openPins(chip *gpio.Chip) (pins, error) {
	var p pins
	var err error

	outputs := []struct {
		offset  int
		initial gpio.Level
		dst     *gpio.Output
	}{
		{gpio.PinLED, gpio.Low, &p.led},
		{gpio.PinPendulumEnable, gpio.High, &p.pendulum.MotorEnable},
		{gpio.PinPendulumDirection, gpio.High, &p.pendulum.MotorDirection},
		{gpio.PinWinderEnable, gpio.High, &p.winder.MotorEnable},
		{gpio.PinWinderTimekeepingMotor, gpio.Low, &p.winder.TimekeepingMotor},
		{gpio.PinWinderStrikingMotor, gpio.Low, &p.winder.StrikingMotor},
	}
	for _, o := range outputs {
		if *o.dst, err = chip.Output(o.offset, o.initial); err != nil {
			return pins{}, err
		}
	}

	inputs := []struct {
		offset int
		pullUp bool
		dst    *gpio.Input
	}{
		{gpio.PinChimeLever, true, &p.lever},
		{gpio.PinPendulumSenseIn, false, &p.pendulum.SenseIn},
		{gpio.PinPendulumSenseOut, false, &p.pendulum.SenseOut},
		{gpio.PinWinderTimekeepingRequest, false, &p.winder.TimekeepingRequest},
		{gpio.PinWinderStrikingRequest, false, &p.winder.StrikingRequest},
	}
	for _, i := range inputs {
		if *i.dst, err = chip.Input(i.offset, i.pullUp); err != nil {
			return pins{}, err
		}
	}

	return p, nil
}

func printInputs(p pins) error {
	inputs := []struct {
		name string
		in   gpio.Input
	}{
		{"chime lever", p.lever},
		{"pendulum sense in", p.pendulum.SenseIn},
		{"pendulum sense out", p.pendulum.SenseOut},
		{"timekeeping request", p.winder.TimekeepingRequest},
		{"striking request", p.winder.StrikingRequest},
	}
	for _, i := range inputs {
		l, err := i.in.Read()
		if err != nil {
			return fmt.Errorf("read %s: %w", i.name, err)
		}
		fmt.Printf("%-20s %s\n", i.name+":", l)
	}
	return nil
}

func run(o options) error {
	chip, err := gpio.OpenChip(o.chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	p, err := openPins(chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	if o.printState {
		return printInputs(p)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reports := make(chan logic.ClockTimeReport, eventBuffer)
	pendulumStatus := make(chan logic.PendulumCatcherState, eventBuffer)
	winderStatus := make(chan logic.ClockWinderState, eventBuffer)
	inbound := make(chan logic.PendulumCatcherCommand, eventBuffer)
	commands := make(chan logic.PendulumCatcherCommand, eventBuffer)

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.BrokerURL(),
		Username:   cfg.MQTTUser,
		Password:   cfg.MQTTPassword,
		Topics:     mqtt.Topics{Prefix: cfg.TopicPrefix},
		BufferSize: o.bufferSize,
		Commands:   inbound,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:            o.poll.Milliseconds(),
		PendulumTimeoutMs: o.pendulumTimeout.Milliseconds(),
		ChimeWindowMs:     o.chimeWindow.Milliseconds(),
		Broker:            cfg.BrokerURL(),
		TopicPrefix:       cfg.TopicPrefix,
		HTTPAddr:          o.httpAddr,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		zap.S().Warnf("failed to publish startup event: %v", err)
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.S().Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		zap.S().Infof("http status server listening on %s", o.httpAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	controller.Go(ctx, &wg, o.poll, controller.NewChime(p.lever, o.chimeWindow, reports))
	controller.Go(ctx, &wg, o.poll, controller.NewPendulum(p.pendulum, o.pendulumTimeout, commands, pendulumStatus))
	controller.Go(ctx, &wg, o.poll, controller.NewWinder(p.winder, winderStatus))

	zap.S().Infof("started: poll=%v pendulum-timeout=%v chime-window=%v config=%s",
		o.poll, o.pendulumTimeout, o.chimeWindow, cfg)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		publisher:       publisher,
		mqttStatus:      publisher,
		tracker:         tracker,
		led:             p.led,
		reports:         reports,
		pendulumStatus:  pendulumStatus,
		winderStatus:    winderStatus,
		inbound:         inbound,
		commands:        controller.NewOutbox(commands, "commands"),
		ledPeriod:       o.ledPeriod,
		appStatusPeriod: o.appStatusPeriod,
	}
	err = runLoop(l, time.Now, ticker.C, sigCh)

	// Controllers park their motors on the way out.
	cancel()
	wg.Wait()
	return err
}

// loop is everything the main loop reads from and writes to.
type loop struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	led        gpio.Output

	reports        <-chan logic.ClockTimeReport
	pendulumStatus <-chan logic.PendulumCatcherState
	winderStatus   <-chan logic.ClockWinderState
	inbound        <-chan logic.PendulumCatcherCommand
	commands       *controller.Outbox[logic.PendulumCatcherCommand]

	ledPeriod       time.Duration
	appStatusPeriod time.Duration
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	lastBlink := startTime
	lastAppStatus := startTime

	for {
		select {
		case s := <-sig:
			zap.S().Infof("received %v, shutting down", s)
			l.shutdown(signalName(s), now())
			return nil

		case <-tick:
			t := now()
			l.drainEvents()
			l.forwardCommands()

			if t.Sub(lastBlink) >= l.ledPeriod {
				if err := l.led.Toggle(); err != nil {
					zap.S().Warnf("led toggle: %v", err)
				}
				lastBlink = t
			}

			if t.Sub(lastAppStatus) >= l.appStatusPeriod {
				app := mqtt.NewAppStatus(startTime, t)
				zap.S().Debugf("app status: uptime=%ds", app.UptimeSeconds)
				if err := l.publisher.PublishAppStatus(app); err != nil {
					zap.S().Errorf("publish app status: %v", err)
				}
				lastAppStatus = t
			}

			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}
}

// drainEvents publishes everything the controllers reported since the last tick.
func (l *loop) drainEvents() {
	for {
		select {
		case r := <-l.reports:
			zap.S().Infof("clock time: %d chimes, offset %.1fs", r.NumberOfChimes, r.OffsetSeconds)
			l.tracker.RecordClockTime(r)
			metrics.ObserveClockTime(r)
			if err := l.publisher.PublishClockTime(r); err != nil {
				zap.S().Errorf("publish clock time: %v", err)
			}

		case s := <-l.pendulumStatus:
			zap.S().Infof("pendulum catcher status: %s", s)
			l.tracker.SetPendulum(s)
			metrics.SetPendulumState(s)
			if err := l.publisher.PublishPendulumCatcher(s); err != nil {
				zap.S().Errorf("publish pendulum catcher: %v", err)
			}

		case s := <-l.winderStatus:
			zap.S().Infof("clock winder status: %s", s)
			l.tracker.SetWinder(s)
			metrics.SetWinderState(s)
			if err := l.publisher.PublishClockWinder(s); err != nil {
				zap.S().Errorf("publish clock winder: %v", err)
			}

		default:
			return
		}
	}
}

// forwardCommands hands received commands to the pendulum controller in
// arrival order. Commands it has no room for yet wait for a later tick.
func (l *loop) forwardCommands() {
	delivered := l.commands.Flush()
	for {
		select {
		case cmd := <-l.inbound:
			zap.S().Debugf("pendulum command %s received", cmd)
			delivered += l.commands.Send(cmd)
		default:
			for i := 0; i < delivered; i++ {
				l.tracker.CountCommand()
			}
			return
		}
	}
}

func (l *loop) shutdown(reason string, t time.Time) {
	l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	snap := l.tracker.Snapshot()

	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		zap.S().Errorf("failed to publish shutdown event: %v", err)
		return
	}
	zap.S().Infof("published shutdown event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
