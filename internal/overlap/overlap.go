// Package overlap turns per-guest availability into ranked candidate
// meeting windows.
//
// Strict mode intersects every responding guest's window per date and
// drops dates where anyone is missing. Partial mode keeps, per date, the
// largest groups of responders that share a window. Both modes are pure:
// identical inputs produce identical, fully ordered output.
package overlap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sms-planner/internal/models"
)

// Candidate is a window on one date that a group of guests share
type Candidate struct {
	Date     time.Time
	Start    models.Clock
	End      models.Clock
	Guests   []string
	GuestIDs []int64
	AllDay   bool
}

// Duration is the window length in minutes.
func (c Candidate) Duration() int {
	return int(c.End - c.Start)
}

// Loader is the slice of the conversation store the engine reads.
type Loader interface {
	ListGuests(ctx context.Context, eventID int64) ([]models.Guest, error)
	ListAvailability(ctx context.Context, eventID int64) ([]models.AvailabilityInterval, error)
}

// ForEvent loads an event's guests and availability and computes its
// candidates.
func ForEvent(ctx context.Context, l Loader, eventID int64, includePartial bool) ([]Candidate, error) {
	guests, err := l.ListGuests(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guests: %w", err)
	}
	intervals, err := l.ListAvailability(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	return Compute(guests, intervals, includePartial), nil
}

type window struct {
	guest int // index into responders
	start models.Clock
	end   models.Clock
}

// Compute ranks overlap candidates. Only guests with AvailabilityProvided
// count as responders; intervals from anyone else are ignored.
func Compute(guests []models.Guest, intervals []models.AvailabilityInterval, includePartial bool) []Candidate {
	responders := respondingGuests(guests)
	if len(responders) == 0 {
		return nil
	}

	byDate := groupByDate(responders, intervals)
	dates := sortedDates(byDate)

	if includePartial && len(responders) == 1 {
		return singleGuest(responders[0], dates, byDate)
	}

	var out []Candidate
	for _, d := range dates {
		if includePartial {
			out = append(out, partialForDate(d, responders, byDate[d])...)
		} else if c, ok := strictForDate(d, responders, byDate[d]); ok {
			out = append(out, c)
		}
	}

	if includePartial {
		sort.SliceStable(out, func(i, j int) bool { return rankLess(out[i], out[j]) })
	}
	return out
}

func respondingGuests(guests []models.Guest) []models.Guest {
	var out []models.Guest
	for _, g := range guests {
		if g.AvailabilityProvided {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// groupByDate keeps one window per (guest, date), merging duplicates into
// their covering span and discarding empty windows.
func groupByDate(responders []models.Guest, intervals []models.AvailabilityInterval) map[time.Time][]window {
	index := make(map[int64]int, len(responders))
	for i, g := range responders {
		index[g.ID] = i
	}

	merged := make(map[time.Time]map[int]window)
	for _, iv := range intervals {
		gi, ok := index[iv.GuestID]
		if !ok {
			continue
		}
		start, end := iv.Window()
		if end <= start {
			continue
		}
		d := models.DateOf(iv.Date)
		if merged[d] == nil {
			merged[d] = make(map[int]window)
		}
		if w, exists := merged[d][gi]; exists {
			start = min(start, w.start)
			end = max(end, w.end)
		}
		merged[d][gi] = window{guest: gi, start: start, end: end}
	}

	out := make(map[time.Time][]window, len(merged))
	for d, perGuest := range merged {
		ws := make([]window, 0, len(perGuest))
		for _, w := range perGuest {
			ws = append(ws, w)
		}
		sort.Slice(ws, func(i, j int) bool { return ws[i].guest < ws[j].guest })
		out[d] = ws
	}
	return out
}

func sortedDates(byDate map[time.Time][]window) []time.Time {
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func singleGuest(g models.Guest, dates []time.Time, byDate map[time.Time][]window) []Candidate {
	out := make([]Candidate, 0, len(dates))
	for _, d := range dates {
		w := byDate[d][0]
		out = append(out, newCandidate(d, w.start, w.end, []models.Guest{g}))
	}
	return out
}

func strictForDate(d time.Time, responders []models.Guest, ws []window) (Candidate, bool) {
	if len(ws) != len(responders) {
		return Candidate{}, false
	}
	start, end := ws[0].start, ws[0].end
	for _, w := range ws[1:] {
		start = max(start, w.start)
		end = min(end, w.end)
	}
	if end <= start {
		return Candidate{}, false
	}
	return newCandidate(d, start, end, responders), true
}

// partialForDate finds the largest groups sharing a window on one date.
// Every such group's intersection begins at one member's start, so it is
// enough to look at the set of windows covering each distinct start.
func partialForDate(d time.Time, responders []models.Guest, ws []window) []Candidate {
	starts := make([]models.Clock, 0, len(ws))
	seen := make(map[models.Clock]bool, len(ws))
	for _, w := range ws {
		if !seen[w.start] {
			seen[w.start] = true
			starts = append(starts, w.start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	best := 0
	var groups []Candidate
	for _, s := range starts {
		var members []models.Guest
		end := models.Clock(48 * 60)
		for _, w := range ws {
			if w.start <= s && s < w.end {
				members = append(members, responders[w.guest])
				end = min(end, w.end)
			}
		}
		switch {
		case len(members) > best:
			best = len(members)
			groups = []Candidate{newCandidate(d, s, end, members)}
		case len(members) == best:
			groups = append(groups, newCandidate(d, s, end, members))
		}
	}

	sort.SliceStable(groups, func(i, j int) bool { return rankLess(groups[i], groups[j]) })
	if best < 2 && len(groups) > 1 {
		// Nobody overlaps: offer only the single longest window.
		groups = groups[:1]
	}
	return groups
}

func newCandidate(d time.Time, start, end models.Clock, members []models.Guest) Candidate {
	c := Candidate{
		Date:     d,
		Start:    start,
		End:      end,
		Guests:   make([]string, len(members)),
		GuestIDs: make([]int64, len(members)),
		AllDay:   start == models.DayStart && end == models.DayEnd,
	}
	for i, g := range members {
		c.Guests[i] = g.Name
		c.GuestIDs[i] = g.ID
	}
	return c
}

// rankLess orders by guest count desc, duration desc, date asc, start
// asc, then guest names lexicographically.
func rankLess(a, b Candidate) bool {
	if len(a.Guests) != len(b.Guests) {
		return len(a.Guests) > len(b.Guests)
	}
	if a.Duration() != b.Duration() {
		return a.Duration() > b.Duration()
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return namesLess(a.Guests, b.Guests)
}

func namesLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
