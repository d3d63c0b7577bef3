package models

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// Canonical full-day window.
const (
	DayStart Clock = 8 * 60
	DayEnd   Clock = 23*60 + 59
)

// Clock is a time of day in minutes after midnight
type Clock int

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// String renders the clock as "15:04".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ParseClock parses "15:04".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return NewClock(t.Hour(), t.Minute()), nil
}

// NewDate returns the calendar date as midnight UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the time of day and zone from t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// AvailabilityInterval is one guest's free window on one date
type AvailabilityInterval struct {
	ID      int64     `json:"id,omitempty"`
	EventID int64     `json:"event_id"`
	GuestID int64     `json:"guest_id"`
	Date    time.Time `json:"date"`
	Start   Clock     `json:"start_time"`
	End     Clock     `json:"end_time"`
	AllDay  bool      `json:"all_day"`
}

// Window returns the interval bounds, expanding all-day intervals to the
// canonical full-day window.
func (a AvailabilityInterval) Window() (Clock, Clock) {
	if a.AllDay {
		return DayStart, DayEnd
	}
	return a.Start, a.End
}
