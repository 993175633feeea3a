package models

import (
	"fmt"
	"time"
)

// TimeWindow is a half-open interval [StartMinute, EndMinute) expressed
// in minutes from midnight of a single calendar date.
type TimeWindow struct {
	StartMinute int `json:"start_minute" yaml:"start"`
	EndMinute   int `json:"end_minute" yaml:"end"`
}

func (w TimeWindow) Valid() bool {
	return w.StartMinute >= 0 && w.EndMinute <= MinutesPerDay && w.EndMinute > w.StartMinute
}

// Contains reports whether [start, end) lies entirely inside the window.
func (w TimeWindow) Contains(start, end int) bool {
	return start >= w.StartMinute && end <= w.EndMinute
}

// Overlaps uses the standard half-open interval predicate.
func (w TimeWindow) Overlaps(start, end int) bool {
	return w.StartMinute < end && w.EndMinute > start
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s-%s", FormatMinute(w.StartMinute), FormatMinute(w.EndMinute))
}

const MinutesPerDay = 24 * 60

// MinuteOfDay возвращает минуту от полуночи для момента времени.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DateOnly truncates a moment to its calendar date in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatMinute renders a minute of day as HH:MM.
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses HH:MM into a minute of day.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > MinutesPerDay {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
