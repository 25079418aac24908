package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/logic"
)

const step = 100 * time.Millisecond

var t0 = time.Date(2026, 1, 4, 14, 59, 58, 0, time.Local)

// repeat returns n copies of level.
func repeat(level gpio.Level, n int) []gpio.Level {
	out := make([]gpio.Level, n)
	for i := range out {
		out[i] = level
	}
	return out
}

// drain empties ch without blocking.
func drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

// --- outbox ---

func TestOutboxKeepsOrderWhenFull(t *testing.T) {
	ch := make(chan int, 2)
	o := NewOutbox(ch, "test")

	for i := 1; i <= 5; i++ {
		o.Send(i)
	}
	assert.Equal(t, 3, o.Len())
	assert.Equal(t, []int{1, 2}, drain(ch))

	assert.Equal(t, 2, o.Flush())
	assert.Equal(t, []int{3, 4}, drain(ch))

	assert.Equal(t, 2, o.Send(6))
	assert.Equal(t, []int{5, 6}, drain(ch))
	assert.Zero(t, o.Len())
	assert.Zero(t, o.Flush())
}

func TestOutboxFlushEmpty(t *testing.T) {
	o := NewOutbox(make(chan string), "test")
	assert.Zero(t, o.Flush())
	assert.Equal(t, 0, o.Send("x"), "unbuffered channel with no reader")
	assert.Equal(t, 1, o.Len())
}

// --- chime ---

func TestChimeReportsSession(t *testing.T) {
	levels := []gpio.Level{gpio.Low}
	for i := 0; i < 3; i++ {
		levels = append(levels, repeat(gpio.High, 4)...)
		levels = append(levels, repeat(gpio.Low, 6)...)
	}
	lever := gpio.NewFakeInput(levels...)
	reports := make(chan logic.ClockTimeReport, 4)
	c := NewChime(lever, 10*time.Second, reports)

	now := t0
	for i := 0; i < 200; i++ {
		c.Poll(now)
		now = now.Add(step)
	}

	got := drain(reports)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].NumberOfChimes)
	// First strike at 14:59:58.1 is two seconds early for three o'clock.
	assert.Equal(t, -2.0, got[0].OffsetSeconds)
}

func TestChimeReadErrorSkipsCycle(t *testing.T) {
	lever := gpio.NewFakeInput(gpio.Low)
	reports := make(chan logic.ClockTimeReport, 1)
	c := NewChime(lever, time.Second, reports)

	c.Poll(t0)
	lever.SetError(errors.New("gpio fault"))
	c.Poll(t0.Add(step))
	lever.SetError(nil)
	lever.Set(gpio.High)
	c.Poll(t0.Add(2 * step))

	count, open := c.monitor.Pending()
	assert.Equal(t, 1, count)
	assert.True(t, open)
}

// --- pendulum ---

type pendulumRig struct {
	enable, direction *gpio.FakeOutput
	in, out           *gpio.FakeInput
	commands          chan logic.PendulumCatcherCommand
	status            chan logic.PendulumCatcherState
	p                 *Pendulum
}

func newPendulumRig(capacity int) *pendulumRig {
	r := &pendulumRig{
		enable:    gpio.NewFakeOutput(gpio.High),
		direction: gpio.NewFakeOutput(gpio.High),
		in:        gpio.NewFakeInput(gpio.High),
		out:       gpio.NewFakeInput(gpio.High),
		commands:  make(chan logic.PendulumCatcherCommand, 4),
		status:    make(chan logic.PendulumCatcherState, capacity),
	}
	r.p = NewPendulum(PendulumPins{
		MotorEnable:    r.enable,
		MotorDirection: r.direction,
		SenseIn:        r.in,
		SenseOut:       r.out,
	}, logic.DefaultPendulumTimeout, r.commands, r.status)
	return r
}

func TestPendulumCatchScenario(t *testing.T) {
	r := newPendulumRig(8)
	now := t0

	// Freed: in end-stop active.
	r.in.Set(gpio.Low)
	r.p.Poll(now)

	r.commands <- logic.CommandCatch
	now = now.Add(step)
	r.p.Poll(now)
	assert.Equal(t, gpio.Low, r.enable.Level(), "motor enabled")
	assert.Equal(t, gpio.Low, r.direction.Level(), "catch direction")

	r.in.Set(gpio.High)
	for i := 0; i < 4; i++ {
		now = now.Add(step)
		r.p.Poll(now)
	}

	r.out.Set(gpio.Low)
	now = now.Add(step)
	r.p.Poll(now)
	assert.Equal(t, gpio.High, r.enable.Level(), "motor disabled at end-stop")

	for i := 0; i < 10; i++ {
		now = now.Add(step)
		r.p.Poll(now)
	}

	assert.Equal(t, []logic.PendulumCatcherState{
		logic.PendulumFreed, logic.PendulumCatching, logic.PendulumCaught,
	}, drain(r.status))
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High}, r.enable.History())
}

func TestPendulumTimeoutStopsMotor(t *testing.T) {
	r := newPendulumRig(8)
	r.commands <- logic.CommandFree

	now := t0
	for i := 0; i <= 30; i++ {
		r.p.Poll(now)
		now = now.Add(step)
	}

	assert.Equal(t, []logic.PendulumCatcherState{logic.PendulumFreeing, logic.PendulumError}, drain(r.status))
	assert.Equal(t, gpio.High, r.enable.Level())
	assert.Equal(t, gpio.High, r.direction.Level())
}

func TestPendulumOneCommandPerCycle(t *testing.T) {
	r := newPendulumRig(8)
	r.out.Set(gpio.Low) // caught

	r.commands <- logic.CommandFree
	r.commands <- logic.CommandCatch

	r.p.Poll(t0)
	assert.Len(t, r.commands, 1)
	assert.Equal(t, logic.PendulumFreeing, r.p.catcher.State())

	r.p.Poll(t0.Add(step))
	assert.Empty(t, r.commands)
	assert.Equal(t, logic.PendulumCatching, r.p.catcher.State())
}

func TestPendulumReadErrorKeepsCommand(t *testing.T) {
	r := newPendulumRig(8)
	r.out.SetError(errors.New("gpio fault"))
	r.commands <- logic.CommandCatch

	r.p.Poll(t0)
	assert.Len(t, r.commands, 1)
	assert.Empty(t, drain(r.status))

	r.out.SetError(nil)
	r.p.Poll(t0.Add(step))
	assert.Equal(t, []logic.PendulumCatcherState{logic.PendulumCatching}, drain(r.status))
}

func TestPendulumFullStatusChannelHoldsState(t *testing.T) {
	r := newPendulumRig(1)

	r.in.Set(gpio.Low)
	r.p.Poll(t0) // Freed, delivered
	r.in.Set(gpio.High)
	r.out.Set(gpio.Low)
	r.p.Poll(t0.Add(step)) // Caught, held back

	assert.Equal(t, []logic.PendulumCatcherState{logic.PendulumFreed}, drain(r.status))
	assert.Equal(t, 1, r.p.status.Len())

	// Nothing changes on the pins, yet the consumer still learns the catcher moved.
	for i := 2; i < 50; i++ {
		r.p.Poll(t0.Add(time.Duration(i) * step))
	}
	assert.Equal(t, []logic.PendulumCatcherState{logic.PendulumCaught}, drain(r.status))
	assert.Zero(t, r.p.status.Len())
}

func TestPendulumRunStopsMotorOnCancel(t *testing.T) {
	r := newPendulumRig(8)
	r.enable.SetLow() // as if left running

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan struct{})
	now := t0
	clock := func() time.Time {
		now = now.Add(step)
		return now
	}

	go func() {
		r.p.Run(ctx, tick, clock)
		close(done)
	}()

	tick <- time.Time{}
	r.commands <- logic.CommandCatch
	tick <- time.Time{}
	tick <- time.Time{}
	cancel()
	<-done

	assert.Equal(t, gpio.High, r.enable.Level())
	assert.Equal(t, gpio.High, r.direction.Level())
}

// --- winder ---

type winderRig struct {
	enable, timekeeping, striking *gpio.FakeOutput
	tkReq, stReq                  *gpio.FakeInput
	status                        chan logic.ClockWinderState
	w                             *Winder
}

func newWinderRig() *winderRig {
	r := &winderRig{
		enable:      gpio.NewFakeOutput(gpio.High),
		timekeeping: gpio.NewFakeOutput(gpio.Low),
		striking:    gpio.NewFakeOutput(gpio.Low),
		tkReq:       gpio.NewFakeInput(gpio.High),
		stReq:       gpio.NewFakeInput(gpio.High),
		status:      make(chan logic.ClockWinderState, 8),
	}
	r.w = NewWinder(WinderPins{
		MotorEnable:        r.enable,
		TimekeepingMotor:   r.timekeeping,
		StrikingMotor:      r.striking,
		TimekeepingRequest: r.tkReq,
		StrikingRequest:    r.stReq,
	}, r.status)
	return r
}

func (r *winderRig) levels() (enable, timekeeping, striking gpio.Level) {
	return r.enable.Level(), r.timekeeping.Level(), r.striking.Level()
}

func TestWinderDrivesMotor(t *testing.T) {
	r := newWinderRig()

	r.w.Poll()
	e, tk, st := r.levels()
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.Low}, []gpio.Level{e, tk, st}, "idle")

	r.tkReq.Set(gpio.Low)
	r.w.Poll()
	e, tk, st = r.levels()
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High, gpio.Low}, []gpio.Level{e, tk, st}, "timekeeping")

	r.stReq.Set(gpio.Low)
	r.w.Poll()
	e, tk, st = r.levels()
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.Low, gpio.High}, []gpio.Level{e, tk, st}, "both, striking wins")

	r.stReq.Set(gpio.High)
	r.tkReq.Set(gpio.High)
	r.w.Poll()
	r.w.Poll()
	e, tk, st = r.levels()
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.Low}, []gpio.Level{e, tk, st}, "idle again")

	assert.Equal(t, []logic.ClockWinderState{
		logic.WinderIdle,
		logic.WinderWindingTimekeeping,
		logic.WinderWindingStriking,
		logic.WinderIdle,
	}, drain(r.status))
}

func TestWinderDirectionsNeverBothHigh(t *testing.T) {
	r := newWinderRig()
	r.tkReq.Set(gpio.Low)
	r.w.Poll()
	r.stReq.Set(gpio.Low)
	r.w.Poll()
	r.stReq.Set(gpio.High)
	r.w.Poll()

	// Every switch-over lowers one train's line before raising the other.
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, r.timekeeping.History())
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, r.striking.History())
}

func TestWinderReadErrorSkipsCycle(t *testing.T) {
	r := newWinderRig()
	r.w.Poll()
	drain(r.status)

	r.stReq.SetError(errors.New("gpio fault"))
	r.tkReq.Set(gpio.Low)
	r.w.Poll()

	assert.Empty(t, drain(r.status))
	assert.Equal(t, gpio.High, r.enable.Level())
}
