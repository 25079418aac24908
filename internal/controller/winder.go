package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/logic"
)

// WinderPins are the lines wired to the weight winder.
type WinderPins struct {
	// MotorEnable is active-low.
	MotorEnable gpio.Output
	// TimekeepingMotor and StrikingMotor select the train being wound.
	// They are active-high and never both high.
	TimekeepingMotor gpio.Output
	StrikingMotor    gpio.Output
	// The request switches pull Low when their weight needs lifting.
	TimekeepingRequest gpio.Input
	StrikingRequest    gpio.Input
}

// Winder runs the clock winder.
type Winder struct {
	pins   WinderPins
	winder *logic.ClockWinder
	status *Outbox[logic.ClockWinderState]
}

// NewWinder creates a winder controller.
func NewWinder(pins WinderPins, status chan<- logic.ClockWinderState) *Winder {
	return &Winder{
		pins:   pins,
		winder: logic.NewClockWinder(),
		status: NewOutbox(status, "winder"),
	}
}

// Run polls the request switches on every tick until ctx is cancelled, then
// switches the motor off.
func (w *Winder) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) {
	w.apply(logic.WinderOutputs{})
	defer w.apply(logic.WinderOutputs{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			w.Poll()
		}
	}
}

// Poll runs a single control cycle.
func (w *Winder) Poll() {
	w.status.Flush()

	striking, ok := read(w.pins.StrikingRequest, "winder", "striking request")
	if !ok {
		return
	}
	timekeeping, ok := read(w.pins.TimekeepingRequest, "winder", "timekeeping request")
	if !ok {
		return
	}
	zap.S().Debugf("winder: striking=%v timekeeping=%v", striking.IsLow(), timekeeping.IsLow())

	state, changed := w.winder.Process(logic.WinderInput{
		StrikingRequested:    striking.IsLow(),
		TimekeepingRequested: timekeeping.IsLow(),
	})
	w.apply(w.winder.Outputs())

	if changed {
		zap.S().Infof("winder: %s", state)
		w.status.Send(state)
	}
}

// apply enables the motor only after the direction lines are set, and when
// stopping disables it before they are cleared.
func (w *Winder) apply(o logic.WinderOutputs) {
	if !o.MotorOn {
		drive(w.pins.MotorEnable, activeLow(false), "winder", "motor enable")
	}
	// Drop the inactive train first so the two lines are never high together.
	if o.Striking {
		drive(w.pins.TimekeepingMotor, activeHigh(false), "winder", "timekeeping motor")
		drive(w.pins.StrikingMotor, activeHigh(true), "winder", "striking motor")
	} else {
		drive(w.pins.StrikingMotor, activeHigh(false), "winder", "striking motor")
		drive(w.pins.TimekeepingMotor, activeHigh(o.Timekeeping), "winder", "timekeeping motor")
	}
	if o.MotorOn {
		drive(w.pins.MotorEnable, activeLow(true), "winder", "motor enable")
	}
}
