package service

import (
	"fmt"
	"time"
)

// Report counts what happened to each collected article in one job run.
type Report struct {
	Job          string
	At           time.Time
	Collected    int
	Invalid      int
	Duplicates   int
	OutOfWindow  int
	EnrichFailed int
	Excluded     int
	Qualified    int
	Delivered    int
	Failed       int
}

// DigestKind names a digest edition.
type DigestKind string

const (
	DigestMorning DigestKind = "morning"
	DigestNight   DigestKind = "night"
)

// ParseDigestKind accepts morning or night.
func ParseDigestKind(s string) (DigestKind, error) {
	switch DigestKind(s) {
	case DigestMorning, DigestNight:
		return DigestKind(s), nil
	default:
		return "", fmt.Errorf("unknown digest kind %q: want morning or night", s)
	}
}

// Title is the digest headline.
func (k DigestKind) Title() string {
	if k == DigestNight {
		return "📊 夜のダイジェスト"
	}
	return "📊 朝のダイジェスト"
}

// Window is a half-open reporting interval (Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the lookback window ending at end.
func NewWindow(end time.Time, lookback time.Duration) Window {
	return Window{Start: end.Add(-lookback), End: end}
}

// Contains reports whether t falls after Start and not after End.
func (w Window) Contains(t time.Time) bool {
	return t.After(w.Start) && !t.After(w.End)
}

// Label renders the window in loc, e.g. "1/1 18:00〜1/2 06:00".
func (w Window) Label(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	const layout = "1/2 15:04"
	return w.Start.In(loc).Format(layout) + "〜" + w.End.In(loc).Format(layout)
}
