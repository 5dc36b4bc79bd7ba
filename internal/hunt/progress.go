package hunt

import (
	"sort"
	"time"
)

// EnsureProgress returns the team's entry for roundNumber, appending a
// pending one in round order when absent. Existing entries are untouched.
func (t *Team) EnsureProgress(roundNumber int) *Progress {
	if p := t.ProgressFor(roundNumber); p != nil {
		return p
	}
	t.Progress = append(t.Progress, Progress{
		RoundNumber: roundNumber,
		Status:      ProgressPending,
	})
	sort.SliceStable(t.Progress, func(i, j int) bool {
		return t.Progress[i].RoundNumber < t.Progress[j].RoundNumber
	})
	return t.ProgressFor(roundNumber)
}

// ProgressFor returns a pointer into t.Progress, or nil.
func (t *Team) ProgressFor(roundNumber int) *Progress {
	for i := range t.Progress {
		if t.Progress[i].RoundNumber == roundNumber {
			return &t.Progress[i]
		}
	}
	return nil
}

// Duration is the scan-to-unlock time, if both timestamps are recorded.
func (p Progress) Duration() (time.Duration, bool) {
	if p.QRScanTime == nil || p.UnlockTime == nil {
		return 0, false
	}
	return p.UnlockTime.Sub(*p.QRScanTime), true
}

// Qualifies reports whether a scan-to-unlock duration meets the limit.
func Qualifies(d time.Duration, timeLimitSeconds int) bool {
	return d.Seconds() <= float64(timeLimitSeconds)
}

// TotalTimeSeconds sums scan-to-unlock durations over every entry that has
// both timestamps.
func TotalTimeSeconds(progress []Progress) float64 {
	var total float64
	for _, p := range progress {
		if d, ok := p.Duration(); ok {
			total += d.Seconds()
		}
	}
	return total
}
