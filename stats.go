package tilecs

import (
	"time"
)

// Stats counts the work a manager has done since it was created.
type Stats struct {
	Entities    int
	Archetypes  int
	Watchers    int
	Created     int
	Deleted     int
	Transitions int
}

// Timings aggregates durations of a repeated operation.
type Timings struct {
	Count         int
	Latest        time.Duration
	MovingAverage time.Duration
	Min, Max      time.Duration
}

func (t Timings) Add(d time.Duration) Timings {
	t.Latest = d

	if t.Count == 0 {
		t.Min = d
		t.Max = d
		t.MovingAverage = d
	} else {
		t.Min = min(t.Min, d)
		t.Max = max(t.Max, d)
		t.MovingAverage = (95*t.MovingAverage + 5*d) / 100
	}

	t.Count += 1

	return t
}

// Measure runs fn and adds its duration to the timings.
func (t *Timings) Measure(fn func()) {
	startTime := time.Now()
	fn()
	*t = t.Add(time.Since(startTime))
}
