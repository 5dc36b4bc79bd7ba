package hunt

import "time"

type TimerAction string

const (
	TimerStart  TimerAction = "start"
	TimerPause  TimerAction = "pause"
	TimerResume TimerAction = "resume"
	TimerFinish TimerAction = "finish"
)

// ElapsedSeconds returns the round timer's total running time at now.
func ElapsedSeconds(r Round, now time.Time) float64 {
	elapsed := r.AccumulatedSeconds
	if r.TimerStatus == TimerRunning && r.TimerStartAt != nil {
		elapsed += now.Sub(*r.TimerStartAt).Seconds()
	}
	return elapsed
}

// ApplyTimerAction transitions the round's timer in place.
//
// start always resets the accumulated time. A finished timer only accepts
// start.
func ApplyTimerAction(r *Round, action TimerAction, now time.Time) error {
	if r.TimerStatus == "" {
		r.TimerStatus = TimerIdle
	}
	if r.TimerStatus == TimerFinished {
		switch action {
		case TimerPause, TimerResume, TimerFinish:
			return invalidState("Round timer is already finished")
		}
	}

	switch action {
	case TimerStart:
		t := now
		r.AccumulatedSeconds = 0
		r.TimerStartAt = &t
		r.TimerStatus = TimerRunning

	case TimerPause:
		if r.TimerStatus == TimerIdle {
			return invalidState("Round timer has not been started")
		}
		foldRunning(r, now)
		r.TimerStatus = TimerPaused

	case TimerResume:
		if r.TimerStatus != TimerRunning {
			t := now
			r.TimerStartAt = &t
			r.TimerStatus = TimerRunning
		}

	case TimerFinish:
		foldRunning(r, now)
		r.TimerStatus = TimerFinished

	default:
		return invalid("Invalid timer action")
	}
	return nil
}

// foldRunning adds the current running segment to the accumulated total and
// clears the segment start.
func foldRunning(r *Round, now time.Time) {
	if r.TimerStatus == TimerRunning && r.TimerStartAt != nil {
		r.AccumulatedSeconds += now.Sub(*r.TimerStartAt).Seconds()
	}
	r.TimerStartAt = nil
}
