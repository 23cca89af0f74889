package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trigger computes the next fire time strictly after a given instant.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

// Every fires on a fixed interval. With Align set, fire times sit on multiples
// of the interval (00:05, 00:10, ...).
type Every struct {
	Interval time.Duration
	Align    bool
}

// Next implements Trigger.
func (e Every) Next(after time.Time) time.Time {
	if !e.Align {
		return after.Add(e.Interval)
	}
	t := after.Truncate(e.Interval)
	if !t.After(after) {
		t = t.Add(e.Interval)
	}
	return t
}

func (e Every) String() string {
	return "every " + e.Interval.String()
}

// DailyAt fires once a day at a wall-clock time in Location.
type DailyAt struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next implements Trigger.
func (d DailyAt) Next(after time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !candidate.After(local) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return candidate
}

func (d DailyAt) String() string {
	loc := "UTC"
	if d.Location != nil {
		loc = d.Location.String()
	}
	return fmt.Sprintf("daily at %02d:%02d %s", d.Hour, d.Minute, loc)
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
