package logic

import (
	"context"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// DefaultPendulumTimeout is how long the catcher motor may run without
// reaching its end-stop before the catcher is declared stuck.
const DefaultPendulumTimeout = 2 * time.Second

const (
	eventCatch        = "catch"
	eventFree         = "free"
	eventReachCaught  = "reach_caught"
	eventReachFreed   = "reach_freed"
	eventLosePosition = "lose_position"
	eventStall        = "stall"
)

// PendulumCatcher drives the pendulum catcher. Once per poll it looks at
// the end-stops and an optional command and decides the motor drive.
//
// Error is only left through a command: no sensor event leads out of it.
type PendulumCatcher struct {
	timeout time.Duration

	machine   *fsm.FSM
	outputs   PendulumOutputs
	commandAt time.Time
	reported  PendulumCatcherState
}

// NewPendulumCatcher creates a catcher in the Unknown state with the motor off.
func NewPendulumCatcher(timeout time.Duration) *PendulumCatcher {
	all := statesToStrings(PendulumCatcherStates)
	settled := statesToStrings([]PendulumCatcherState{PendulumUnknown, PendulumCaught, PendulumFreed})
	moving := statesToStrings([]PendulumCatcherState{PendulumCatching, PendulumFreeing})

	return &PendulumCatcher{
		timeout:  timeout,
		reported: PendulumUnknown,
		machine: fsm.NewFSM(
			string(PendulumUnknown),
			fsm.Events{
				{Name: eventCatch, Src: all, Dst: string(PendulumCatching)},
				{Name: eventFree, Src: all, Dst: string(PendulumFreeing)},
				{Name: eventReachCaught, Src: append([]string{string(PendulumCatching)}, settled...), Dst: string(PendulumCaught)},
				{Name: eventReachFreed, Src: append([]string{string(PendulumFreeing)}, settled...), Dst: string(PendulumFreed)},
				{Name: eventLosePosition, Src: settled, Dst: string(PendulumUnknown)},
				{Name: eventStall, Src: moving, Dst: string(PendulumError)},
			},
			fsm.Callbacks{},
		),
	}
}

// Process runs one control cycle. It returns the resulting state and whether
// it differs from the state last returned as changed.
func (p *PendulumCatcher) Process(in PendulumInput) (PendulumCatcherState, bool) {
	switch p.State() {
	case PendulumError:
		p.outputs = PendulumOutputs{}

	case PendulumCatching:
		if in.AtCaught {
			p.outputs.MotorOn = false
			p.fire(eventReachCaught, PendulumCaught)
		} else if in.Time.Sub(p.commandAt) >= p.timeout {
			p.outputs.MotorOn = false
			p.fire(eventStall, PendulumError)
		}

	case PendulumFreeing:
		if in.AtFreed {
			p.outputs.MotorOn = false
			p.fire(eventReachFreed, PendulumFreed)
		} else if in.Time.Sub(p.commandAt) >= p.timeout {
			p.outputs.MotorOn = false
			p.fire(eventStall, PendulumError)
		}

	default:
		switch {
		case in.AtFreed && !in.AtCaught:
			p.fire(eventReachFreed, PendulumFreed)
		case !in.AtFreed && in.AtCaught:
			p.fire(eventReachCaught, PendulumCaught)
		default:
			// Neither end-stop, or both at once: the catcher is somewhere in
			// between or the wiring is wrong. Either way we cannot tell.
			p.fire(eventLosePosition, PendulumUnknown)
		}
	}

	// A command overrides whatever the sensors said this cycle, and restarts
	// the timeout even when the catcher is already moving that way.
	// The motor is switched on here deliberately. Leaving the enable line
	// untouched, as earlier firmware did, means Catching and Freeing can
	// never reach their end-stop.
	if in.Command != nil {
		p.commandAt = in.Time
		switch *in.Command {
		case CommandCatch:
			p.outputs = PendulumOutputs{MotorOn: true, TowardsCatch: true}
			p.fire(eventCatch, PendulumCatching)
		case CommandFree:
			p.outputs = PendulumOutputs{MotorOn: true, TowardsCatch: false}
			p.fire(eventFree, PendulumFreeing)
		}
	}

	state := p.State()
	if state == p.reported {
		return state, false
	}
	p.reported = state
	return state, true
}

// State returns the current state.
func (p *PendulumCatcher) State() PendulumCatcherState {
	return PendulumCatcherState(p.machine.Current())
}

// Outputs returns the motor drive decided by the last Process call.
func (p *PendulumCatcher) Outputs() PendulumOutputs {
	return p.outputs
}

func (p *PendulumCatcher) fire(event string, dst PendulumCatcherState) {
	if p.State() == dst || !p.machine.Can(event) {
		return
	}
	// Every event fired above is listed for its source state, so Event only
	// fails on a table mistake; the state is then left as it was.
	if err := p.machine.Event(context.Background(), event); err != nil {
		zap.S().Errorf("pendulum: event %s from %s: %v", event, p.State(), err)
	}
}

func statesToStrings(states []PendulumCatcherState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
