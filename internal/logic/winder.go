package logic

// ClockWinder decides the winding motor drive from the two request switches.
// It has no memory beyond the state it last reported.
type ClockWinder struct {
	reported ClockWinderState
	outputs  WinderOutputs
}

// NewClockWinder creates a winder that has reported Unknown.
func NewClockWinder() *ClockWinder {
	return &ClockWinder{reported: WinderUnknown}
}

// Process runs one control cycle. It returns the resulting state and whether
// it differs from the state last returned as changed.
//
// The striking train wins when both trains ask for winding at once.
func (w *ClockWinder) Process(in WinderInput) (ClockWinderState, bool) {
	var state ClockWinderState

	switch {
	case in.StrikingRequested:
		state = WinderWindingStriking
		w.outputs = WinderOutputs{MotorOn: true, Striking: true}
	case in.TimekeepingRequested:
		state = WinderWindingTimekeeping
		w.outputs = WinderOutputs{MotorOn: true, Timekeeping: true}
	default:
		state = WinderIdle
		w.outputs = WinderOutputs{}
	}

	if state == w.reported {
		return state, false
	}
	w.reported = state
	return state, true
}

// Outputs returns the motor drive decided by the last Process call.
func (w *ClockWinder) Outputs() WinderOutputs {
	return w.outputs
}
