package scheduler

import (
	"fmt"
	"time"
)

// Schedule decides when a job is next due.
type Schedule interface {
	// Next returns the first due time strictly after t.
	Next(t time.Time) time.Time

	// String describes the schedule for logs and status output.
	String() string
}

// IntervalSchedule fires a fixed duration after each check.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every builds an IntervalSchedule.
func Every(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: interval}
}

// Next implements Schedule.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String implements Schedule.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
