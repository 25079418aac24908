package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/logic"
)

// PendulumPins are the lines wired to the pendulum catcher.
type PendulumPins struct {
	// MotorEnable is active-low.
	MotorEnable gpio.Output
	// MotorDirection is Low towards catching, High towards freeing.
	MotorDirection gpio.Output
	// SenseIn goes Low when the catcher reaches the freed end-stop.
	SenseIn gpio.Input
	// SenseOut goes Low when the catcher reaches the caught end-stop.
	SenseOut gpio.Input
}

// Pendulum runs the pendulum catcher.
type Pendulum struct {
	pins     PendulumPins
	catcher  *logic.PendulumCatcher
	commands <-chan logic.PendulumCatcherCommand
	status   *Outbox[logic.PendulumCatcherState]
}

// NewPendulum creates a pendulum controller that gives up on a move after timeout.
func NewPendulum(pins PendulumPins, timeout time.Duration, commands <-chan logic.PendulumCatcherCommand, status chan<- logic.PendulumCatcherState) *Pendulum {
	return &Pendulum{
		pins:     pins,
		catcher:  logic.NewPendulumCatcher(timeout),
		commands: commands,
		status:   NewOutbox(status, "pendulum"),
	}
}

// Run polls the catcher on every tick until ctx is cancelled, then switches
// the motor off.
func (p *Pendulum) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) {
	p.apply(logic.PendulumOutputs{})
	defer p.apply(logic.PendulumOutputs{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.Poll(now())
		}
	}
}

// Poll runs a single control cycle with a sample taken at t. At most one
// queued command is consumed.
func (p *Pendulum) Poll(t time.Time) {
	p.status.Flush()

	in, ok := read(p.pins.SenseIn, "pendulum", "sense in")
	if !ok {
		return
	}
	out, ok := read(p.pins.SenseOut, "pendulum", "sense out")
	if !ok {
		return
	}

	input := logic.PendulumInput{
		AtFreed:  in.IsLow(),
		AtCaught: out.IsLow(),
		Time:     t,
	}
	select {
	case cmd := <-p.commands:
		zap.S().Infof("pendulum: command %s", cmd)
		input.Command = &cmd
	default:
	}

	state, changed := p.catcher.Process(input)
	p.apply(p.catcher.Outputs())

	if !changed {
		return
	}
	if state == logic.PendulumError {
		zap.S().Errorf("pendulum: end-stop not reached, motor stopped (sense in=%s out=%s)", in, out)
	} else {
		zap.S().Infof("pendulum: %s", state)
	}
	p.status.Send(state)
}

func (p *Pendulum) apply(o logic.PendulumOutputs) {
	if !o.MotorOn {
		drive(p.pins.MotorEnable, activeLow(false), "pendulum", "motor enable")
	}
	drive(p.pins.MotorDirection, activeLow(o.TowardsCatch), "pendulum", "motor direction")
	if o.MotorOn {
		drive(p.pins.MotorEnable, activeLow(true), "pendulum", "motor enable")
	}
}
