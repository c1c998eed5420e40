package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Day is a calendar day in YYYY-MM-DD form. Two bookings collide when their
// Day values are equal.
type Day string

// ParseDay normalizes a date to a calendar day. Timestamps with a time part
// are converted to UTC first, so "2024-06-01T23:30:00-02:00" is 2024-06-02.
func ParseDay(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DayLayout, raw); err == nil {
		return Day(t.Format(DayLayout)), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t.UTC().Format(DayLayout)), nil
		}
	}
	return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

func (d Day) String() string {
	return string(d)
}

// Start returns midnight of the day in loc.
func (d Day) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DayLayout, string(d), loc)
}

// End returns the last second of the day in loc.
func (d Day) End(loc *time.Location) (time.Time, error) {
	start, err := d.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(24*time.Hour - time.Second), nil
}

// AddDays shifts the day; an unparsable day is returned unchanged.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(DayLayout))
}

// UnmarshalJSON accepts stored full timestamps and keeps unparsable values
// verbatim so a single odd record does not poison a whole snapshot.
func (d *Day) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, err := ParseDay(raw); err == nil {
		*d = parsed
		return nil
	}
	*d = Day(raw)
	return nil
}
