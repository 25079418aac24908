// Package logic contains the pure control logic of the clock: the chime
// timing monitor, the pendulum catcher and winder state machines, and the
// half-hour offset arithmetic.
// This package does no I/O (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time fields.
package logic

import "time"

// ClockTimeReport summarises one chime session.
type ClockTimeReport struct {
	NumberOfChimes int
	// OffsetSeconds is how far the first chime was from the nearest :00 or
	// :30; negative means the clock struck early.
	OffsetSeconds float64
	FirstChime    time.Time
}

// ChimeSample is a single reading of the chime lever.
type ChimeSample struct {
	High bool
	Time time.Time
}

// PendulumCatcherState is the state of the pendulum catcher.
type PendulumCatcherState string

const (
	PendulumUnknown  PendulumCatcherState = "Unknown"
	PendulumError    PendulumCatcherState = "Error"
	PendulumCatching PendulumCatcherState = "Catching"
	PendulumCaught   PendulumCatcherState = "Caught"
	PendulumFreeing  PendulumCatcherState = "Freeing"
	PendulumFreed    PendulumCatcherState = "Freed"
)

// PendulumCatcherStates lists every pendulum state, in declaration order.
var PendulumCatcherStates = []PendulumCatcherState{
	PendulumUnknown, PendulumError, PendulumCatching, PendulumCaught, PendulumFreeing, PendulumFreed,
}

// PendulumCatcherCommand asks the catcher to move.
type PendulumCatcherCommand string

const (
	CommandCatch PendulumCatcherCommand = "Catch"
	CommandFree  PendulumCatcherCommand = "Free"
)

// ParsePendulumCatcherCommand maps a remote payload to a command.
// Anything other than the exact names is rejected.
func ParsePendulumCatcherCommand(s string) (PendulumCatcherCommand, bool) {
	switch PendulumCatcherCommand(s) {
	case CommandCatch:
		return CommandCatch, true
	case CommandFree:
		return CommandFree, true
	}
	return "", false
}

// PendulumInput is a single sample of the pendulum catcher sensors.
type PendulumInput struct {
	// AtFreed is true when the "in" end-stop is active (sense_in low).
	AtFreed bool
	// AtCaught is true when the "out" end-stop is active (sense_out low).
	AtCaught bool
	// Command is the command received this cycle, if any.
	Command *PendulumCatcherCommand
	Time    time.Time
}

// PendulumOutputs is the logical drive of the catcher motor.
type PendulumOutputs struct {
	MotorOn bool
	// TowardsCatch selects the catch direction; false is the free (idle) direction.
	TowardsCatch bool
}

// ClockWinderState is the state of the weight winder.
type ClockWinderState string

const (
	WinderUnknown            ClockWinderState = "Unknown"
	WinderIdle               ClockWinderState = "Idle"
	WinderWindingTimekeeping ClockWinderState = "WindingTimekeeping"
	WinderWindingStriking    ClockWinderState = "WindingStriking"
)

// ClockWinderStates lists every winder state, in declaration order.
var ClockWinderStates = []ClockWinderState{
	WinderUnknown, WinderIdle, WinderWindingTimekeeping, WinderWindingStriking,
}

// WinderInput is a single sample of the winding request switches.
type WinderInput struct {
	StrikingRequested    bool
	TimekeepingRequested bool
}

// WinderOutputs is the logical drive of the winding motor.
type WinderOutputs struct {
	MotorOn     bool
	Striking    bool
	Timekeeping bool
}
