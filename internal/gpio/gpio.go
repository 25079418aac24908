// Package gpio provides digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is the electrical level of a digital pin.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// IsLow reports whether the level is Low. Most inputs on the clock are
// active-low, so this reads better at call sites than a comparison.
func (l Level) IsLow() bool {
	return l == Low
}

// LevelOf converts a raw line value (0 or 1) into a Level.
func LevelOf(raw int) Level {
	if raw == 0 {
		return Low
	}
	return High
}

// Input is a digital input pin.
type Input interface {
	// Read returns the current level of the pin.
	Read() (Level, error)
}

// Output is a digital output pin.
type Output interface {
	// Set drives the pin to the given level.
	Set(l Level) error
	SetHigh() error
	SetLow() error
	// Toggle inverts the level last driven.
	Toggle() error
}

// Pin definitions (BCM numbering).
//
// Motor enable lines are active-low (High = motor off). Request switches and
// end-stop sensors pull the line Low when active.
const (
	PinLED = 12

	PinChimeLever = 16

	PinPendulumEnable    = 17
	PinPendulumDirection = 27
	PinPendulumSenseIn   = 21
	PinPendulumSenseOut  = 26

	PinWinderEnable             = 24
	PinWinderTimekeepingMotor   = 22
	PinWinderStrikingMotor      = 23
	PinWinderTimekeepingRequest = 20
	PinWinderStrikingRequest    = 25
)
