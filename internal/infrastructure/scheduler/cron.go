package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cron expressions the engine ships with.
const (
	// EveryNight runs at 03:00, the default totals sync window.
	EveryNight = "0 3 * * *"

	// EveryHour runs at the top of every hour.
	EveryHour = "0 * * * *"
)

// fieldSet is a bitmask over the values a cron field may take. Bit v is set
// when the field matches v; 64 bits cover the widest field (minutes, 0-59).
type fieldSet uint64

func (f fieldSet) has(v int) bool {
	return v >= 0 && v < 64 && f&(1<<uint(v)) != 0
}

// cronBounds describes the valid range of one cron field.
type cronBounds struct {
	name     string
	min, max int
}

var cronFieldBounds = [5]cronBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// CronSchedule is a parsed five-field cron expression:
// minute, hour, day-of-month, month, day-of-week (0 = Sunday).
// Lists, ranges, and step values are supported:
//
//	"*/15 * * * *"  quarter-hourly
//	"0 3 * * *"     nightly at 03:00
//	"0 0 * * 0"     Sundays at midnight
type CronSchedule struct {
	expr   string
	fields [5]fieldSet
}

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron %q: want 5 fields, have %d", expr, len(parts))
	}

	cs := &CronSchedule{expr: expr}
	for i, part := range parts {
		set, err := parseCronField(part, cronFieldBounds[i])
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s: %w", expr, cronFieldBounds[i].name, err)
		}
		cs.fields[i] = set
	}
	return cs, nil
}

// MustParseCron parses expr or panics. For compile-time constants only.
func MustParseCron(expr string) *CronSchedule {
	cs, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return cs
}

// parseCronField resolves one comma-separated field spec into a bitmask.
// Each element is a value, a range, or a wildcard, optionally with /step.
func parseCronField(spec string, b cronBounds) (fieldSet, error) {
	var set fieldSet

	for _, elem := range strings.Split(spec, ",") {
		body, step := elem, 1
		stepped := false
		if idx := strings.IndexByte(elem, '/'); idx >= 0 {
			n, err := strconv.Atoi(elem[idx+1:])
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("bad step in %q", elem)
			}
			body, step, stepped = elem[:idx], n, true
		}

		lo, hi := b.min, b.max
		switch {
		case body == "*":
			// full range
		case strings.IndexByte(body, '-') >= 0:
			from, to, ok := strings.Cut(body, "-")
			start, err1 := strconv.Atoi(from)
			end, err2 := strconv.Atoi(to)
			if !ok || err1 != nil || err2 != nil || start > end {
				return 0, fmt.Errorf("bad range %q", body)
			}
			if start < b.min || end > b.max {
				return 0, fmt.Errorf("range %q outside [%d,%d]", body, b.min, b.max)
			}
			lo, hi = start, end
		default:
			v, err := strconv.Atoi(body)
			if err != nil {
				return 0, fmt.Errorf("bad value %q", body)
			}
			if v < b.min || v > b.max {
				return 0, fmt.Errorf("%d outside [%d,%d]", v, b.min, b.max)
			}
			lo = v
			if stepped {
				hi = b.max // "n/step" counts from n to the field maximum
			} else {
				hi = v
			}
		}

		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}

	return set, nil
}

// Next implements Schedule. Cron resolution is one minute; seconds are
// truncated before the search.
func (c *CronSchedule) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)

	// A valid expression matches within a year; bail out past that.
	for limit := t.AddDate(1, 0, 0); t.Before(limit); t = t.Add(time.Minute) {
		if c.due(t) {
			return t
		}
	}
	return time.Time{}
}

func (c *CronSchedule) due(t time.Time) bool {
	return c.fields[0].has(t.Minute()) &&
		c.fields[1].has(t.Hour()) &&
		c.fields[2].has(t.Day()) &&
		c.fields[3].has(int(t.Month())) &&
		c.fields[4].has(int(t.Weekday()))
}

// String implements Schedule.
func (c *CronSchedule) String() string {
	return c.expr
}
