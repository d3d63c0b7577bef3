// Package compose renders every outbound SMS. All functions are pure.
package compose

import (
	"fmt"
	"strings"
	"time"

	"sms-planner/internal/models"
)

// Clock renders a time of day in 12-hour form: "2pm", "7:30pm", "12am".
func Clock(c models.Clock) string {
	h, m := c.Hour(), c.Minute()
	meridiem := "am"
	if h >= 12 {
		meridiem = "pm"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	if m == 0 {
		return fmt.Sprintf("%d%s", h, meridiem)
	}
	return fmt.Sprintf("%d:%02d%s", h, m, meridiem)
}

// Range renders "4pm-6pm", or "All day" for the canonical full-day window.
func Range(start, end models.Clock) string {
	if start == models.DayStart && end == models.DayEnd {
		return "All day"
	}
	return Clock(start) + "-" + Clock(end)
}

// ShortDate renders the compact menu form "Fri, 8/29".
func ShortDate(d time.Time) string {
	return d.Format("Mon, 1/2")
}

// LongDate renders the confirmation form "Friday, August 29".
func LongDate(d time.Time) string {
	return d.Format("Monday, January 2")
}

// FirstName returns the first whitespace-delimited token of a display
// name, skipping a leading honorific ("Dr. Emily Watson" -> "Emily").
func FirstName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		if i < len(fields)-1 && isHonorific(f) {
			continue
		}
		return f
	}
	return ""
}

func isHonorific(s string) bool {
	switch strings.ToLower(strings.TrimSuffix(s, ".")) {
	case "dr", "mr", "mrs", "ms", "mx", "prof", "rev", "sir":
		return true
	}
	return false
}

// FirstNames maps FirstName over names.
func FirstNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = FirstName(n)
	}
	return out
}

// JoinNames joins with an Oxford "and": "A", "A and B", "A, B, and C".
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// Dates renders proposed dates as a compact list.
func Dates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = ShortDate(d)
	}
	return JoinNames(parts)
}

// Intervals echoes recorded availability one line per date, in a form the
// availability parser reads back to the same intervals.
func Intervals(intervals []models.AvailabilityInterval) string {
	lines := make([]string, len(intervals))
	for i, iv := range intervals {
		start, end := iv.Window()
		lines[i] = fmt.Sprintf("%s: %s", ShortDate(iv.Date), Range(start, end))
	}
	return strings.Join(lines, "\n")
}

// Window renders a chosen date and time in the long form.
func Window(d time.Time, start, end models.Clock) string {
	return fmt.Sprintf("%s, %s", LongDate(d), Range(start, end))
}
