package parser

import (
	"time"

	"sms-planner/internal/models"
)

// maxProposedDates caps range expansion.
const maxProposedDates = 14

var dateFillers = map[string]bool{
	"and": true, "or": true, "the": true, "on": true, "of": true, "this": true,
	"either": true, "both": true, "maybe": true, "how": true, "about": true,
	"lets": true, "do": true, "say": true, "coming": true, "upcoming": true,
	"day": true, "days": true, "we": true, "could": true, "can": true,
}

// dateAtom is one or more resolved dates from a single reference.
type dateAtom struct {
	dates   []time.Time
	weekday int // -1 unless the atom came from a weekday name
}

// ParseDates turns free-text calendar expressions into an ordered list of
// dates relative to pctx.Today.
func ParseDates(text string, pctx Context) ([]time.Time, error) {
	toks, ok := lex(text)
	if !ok || len(toks) == 0 {
		return nil, fail(KindDates, ReasonUnrecognized, text)
	}
	today := models.DateOf(pctx.today())

	var atoms []dateAtom
	rangeNext := false
	next := false

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		var atom *dateAtom

		switch t.kind {
		case tokDate:
			d, ok := resolveMonthDay(t.month, t.day, t.year, today)
			if !ok {
				return nil, fail(KindDates, ReasonUnrecognized, t.text)
			}
			atom = &dateAtom{dates: []time.Time{d}, weekday: -1}
		case tokTime, tokOrdinal:
			// A bare day-of-month without a month.
			return nil, fail(KindDates, ReasonAmbiguous, t.text)
		case tokDash:
			rangeNext = true
			continue
		case tokPunct:
			continue
		case tokWord:
			if isRangeWord(t) {
				rangeNext = true
				continue
			}
			if m, ok := months[t.text]; ok && i+1 < len(toks) && (toks[i+1].kind == tokTime || toks[i+1].kind == tokOrdinal) {
				i++
				day := toks[i].hour
				if toks[i].kind == tokOrdinal {
					day = toks[i].day
				}
				d, ok := resolveMonthDay(m, day, 0, today)
				if !ok {
					return nil, fail(KindDates, ReasonUnrecognized, t.text)
				}
				atom = &dateAtom{dates: []time.Time{d}, weekday: -1}
				// "Aug 29-31": a bare number after a dash stays in the same month.
				if i+2 < len(toks) && isRangeWord(toks[i+1]) && (toks[i+2].kind == tokTime || toks[i+2].kind == tokOrdinal) {
					endDay := toks[i+2].hour
					if toks[i+2].kind == tokOrdinal {
						endDay = toks[i+2].day
					}
					end, ok := resolveMonthDay(m, endDay, d.Year(), today)
					if !ok || end.Before(d) {
						return nil, fail(KindDates, ReasonUnrecognized, toks[i+2].text)
					}
					span, ok := expand(d, end)
					if !ok {
						return nil, fail(KindDates, ReasonAmbiguous, text)
					}
					atom.dates = span
					i += 2
				}
				break
			}
			if wd, ok := weekdays[t.text]; ok {
				d := upcoming(today, time.Weekday(wd), next)
				atom = &dateAtom{dates: []time.Time{d}, weekday: wd}
				next = false
				break
			}
			switch t.text {
			case "next":
				next = true
				continue
			case "today", "tonight":
				atom = &dateAtom{dates: []time.Time{today}, weekday: -1}
			case "tomorrow", "tmrw", "tmr":
				atom = &dateAtom{dates: []time.Time{today.AddDate(0, 0, 1)}, weekday: -1}
			case "weekend":
				sat := upcoming(today, time.Saturday, false)
				if next {
					sat = sat.AddDate(0, 0, 7)
					next = false
				}
				atom = &dateAtom{dates: []time.Time{sat, sat.AddDate(0, 0, 1)}, weekday: -1}
			case "may":
				continue
			default:
				if dateFillers[t.text] {
					continue
				}
				return nil, fail(KindDates, ReasonUnrecognized, t.text)
			}
		}

		if atom == nil {
			continue
		}
		if rangeNext && len(atoms) > 0 {
			prev := atoms[len(atoms)-1]
			start := prev.dates[len(prev.dates)-1]
			end := atom.dates[0]
			if atom.weekday >= 0 && !end.After(start) {
				end = upcoming(start.AddDate(0, 0, 1), time.Weekday(atom.weekday), false)
			}
			if end.Before(start) {
				end = end.AddDate(1, 0, 0)
			}
			span, ok := expand(start, end)
			if !ok {
				return nil, fail(KindDates, ReasonAmbiguous, text)
			}
			atoms[len(atoms)-1] = dateAtom{dates: append(prev.dates[:len(prev.dates)-1], span...), weekday: -1}
			rangeNext = false
			continue
		}
		rangeNext = false
		atoms = append(atoms, *atom)
	}

	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, a := range atoms {
		for _, d := range a.dates {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	if len(out) == 0 {
		return nil, fail(KindDates, ReasonUnrecognized, text)
	}
	if len(out) > maxProposedDates {
		return nil, fail(KindDates, ReasonAmbiguous, text)
	}
	sortDates(out)
	return out, nil
}

// upcoming returns the first date with weekday wd on or after from. With
// strict set the date must be after from.
func upcoming(from time.Time, wd time.Weekday, strict bool) time.Time {
	diff := (int(wd) - int(from.Weekday()) + 7) % 7
	if diff == 0 && strict {
		diff = 7
	}
	return from.AddDate(0, 0, diff)
}

// resolveMonthDay picks the year: the given one, else this year unless
// the date already passed.
func resolveMonthDay(month, day, year int, today time.Time) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	y := year
	if y == 0 {
		y = today.Year()
	}
	d := models.NewDate(y, time.Month(month), day)
	if d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	if year == 0 && d.Before(today) {
		d = models.NewDate(y+1, time.Month(month), day)
	}
	return d, true
}

func expand(start, end time.Time) ([]time.Time, bool) {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
		if len(out) > maxProposedDates {
			return nil, false
		}
	}
	return out, len(out) > 0
}
