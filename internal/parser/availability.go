package parser

import (
	"sort"
	"time"

	"sms-planner/internal/models"
)

// Availability is a guest's parsed reply. Unavailable is set when the
// guest said they cannot make any of the dates.
type Availability struct {
	Intervals   []models.AvailabilityInterval
	Unavailable bool
}

type period struct {
	start, end models.Clock
}

var periods = map[string]period{
	"morning":   {models.NewClock(8, 0), models.NewClock(12, 0)},
	"mornings":  {models.NewClock(8, 0), models.NewClock(12, 0)},
	"brunch":    {models.NewClock(10, 0), models.NewClock(14, 0)},
	"lunch":     {models.NewClock(11, 0), models.NewClock(14, 0)},
	"afternoon": {models.NewClock(12, 0), models.NewClock(17, 0)},
	"evening":   {models.NewClock(17, 0), models.DayEnd},
	"evenings":  {models.NewClock(17, 0), models.DayEnd},
	"dinner":    {models.NewClock(17, 0), models.NewClock(22, 0)},
	"night":     {models.NewClock(19, 0), models.DayEnd},
	"nights":    {models.NewClock(19, 0), models.DayEnd},
	"allday":    {models.DayStart, models.DayEnd},
	"anytime":   {models.DayStart, models.DayEnd},
	"whenever":  {models.DayStart, models.DayEnd},
}

var (
	afterWords  = map[string]bool{"after": true, "from": true, "at": true, "around": true, "past": true, "starting": true, "since": true}
	beforeWords = map[string]bool{"before": true, "until": true, "till": true, "til": true, "by": true}
	negWords    = map[string]bool{
		"no": true, "not": true, "none": true, "nope": true, "cant": true, "cannot": true,
		"busy": true, "unavailable": true, "booked": true, "away": true, "neither": true,
	}
	allDaysWords = map[string]bool{"both": true, "either": true, "all": true, "any": true, "every": true, "each": true}
	availFillers = map[string]bool{
		"i": true, "im": true, "am": true, "is": true, "are": true, "be": true, "will": true,
		"free": true, "available": true, "avail": true, "open": true, "on": true, "the": true,
		"and": true, "or": true, "but": true, "also": true, "maybe": true, "probably": true,
		"works": true, "work": true, "good": true, "great": true, "fine": true, "ok": true, "okay": true,
		"for": true, "me": true, "with": true, "day": true, "days": true, "of": true,
		"can": true, "could": true, "do": true, "make": true, "it": true, "sure": true,
		"yes": true, "yeah": true, "yep": true, "pm": true, "like": true, "between": true,
		"this": true, "that": true, "time": true, "times": true, "then": true, "would": true,
	}
)

// availParser walks the tokens, grouping day references with the windows
// that follow them.
type availParser struct {
	pctx     Context
	today    time.Time
	current  []time.Time
	emitted  bool
	sawNeg   bool
	negNext  bool
	out      map[time.Time]period
	excluded map[time.Time]bool
}

// ParseAvailability reads a guest's free windows. Every token must belong
// to the closed lexicon of day names, dates, times, period words, range
// separators and a few fillers; anything else fails as unrecognized.
func ParseAvailability(text string, pctx Context) (Availability, error) {
	toks, ok := lex(text)
	if !ok || len(toks) == 0 {
		return Availability{}, fail(KindAvailability, ReasonUnrecognized, text)
	}

	p := &availParser{
		pctx:     pctx,
		today:    models.DateOf(pctx.today()),
		out:      make(map[time.Time]period),
		excluded: make(map[time.Time]bool),
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		if days, n, err := p.dayRef(toks, i); err != nil {
			return Availability{}, err
		} else if n > 0 {
			p.addDays(days, t)
			i += n - 1
			continue
		}

		switch t.kind {
		case tokPunct:
			continue
		case tokDash:
			continue
		case tokTime:
			w, n, ok := timeWindow(toks, i)
			if !ok {
				return Availability{}, fail(KindAvailability, ReasonUnrecognized, t.text)
			}
			if err := p.emit(w); err != nil {
				return Availability{}, err
			}
			i += n - 1
			continue
		case tokOrdinal:
			return Availability{}, fail(KindAvailability, ReasonUnrecognized, t.text)
		}

		word := t.text
		switch {
		case word == "noon" || word == "midnight":
			w, n, ok := timeWindow(toks, i)
			if !ok {
				return Availability{}, fail(KindAvailability, ReasonUnrecognized, word)
			}
			if err := p.emit(w); err != nil {
				return Availability{}, err
			}
			i += n - 1
		case periods[word] != (period{}):
			if err := p.emit(periods[word]); err != nil {
				return Availability{}, err
			}
		case afterWords[word] || beforeWords[word]:
			if i+1 >= len(toks) || !isTimeLike(toks[i+1]) {
				if word == "at" || word == "from" || word == "around" {
					continue
				}
				return Availability{}, fail(KindAvailability, ReasonUnrecognized, word)
			}
			w, n, ok := timeWindow(toks, i+1)
			if !ok {
				return Availability{}, fail(KindAvailability, ReasonUnrecognized, word)
			}
			if n == 1 {
				c := w.start
				if beforeWords[word] {
					w = period{models.DayStart, clampEnd(c)}
				} else {
					w = period{c, models.DayEnd}
				}
			}
			if err := p.emit(w); err != nil {
				return Availability{}, err
			}
			i += n
		case negWords[word]:
			p.negate()
		case isRangeWord(t):
			continue
		case availFillers[word] || allDaysWords[word]:
			continue
		default:
			return Availability{}, fail(KindAvailability, ReasonUnrecognized, word)
		}
	}

	if len(p.current) > 0 && !p.emitted {
		if err := p.emit(periods["allday"]); err != nil {
			return Availability{}, err
		}
	}

	if len(p.out) == 0 {
		if p.sawNeg {
			return Availability{Unavailable: true}, nil
		}
		return Availability{}, fail(KindAvailability, ReasonUnrecognized, text)
	}
	return Availability{Intervals: p.intervals()}, nil
}

// dayRef recognizes a day reference at toks[i] and reports how many
// tokens it used.
func (p *availParser) dayRef(toks []token, i int) ([]time.Time, int, error) {
	t := toks[i]
	switch t.kind {
	case tokDate:
		d, ok := resolveMonthDay(t.month, t.day, t.year, p.today)
		if !ok {
			return nil, 0, fail(KindAvailability, ReasonUnrecognized, t.text)
		}
		return []time.Time{p.alignYear(d)}, 1, nil
	case tokWord:
	default:
		return nil, 0, nil
	}

	if m, ok := months[t.text]; ok && i+1 < len(toks) && (toks[i+1].kind == tokTime || toks[i+1].kind == tokOrdinal) {
		day := toks[i+1].hour
		if toks[i+1].kind == tokOrdinal {
			day = toks[i+1].day
		}
		d, ok := resolveMonthDay(m, day, 0, p.today)
		if !ok {
			return nil, 0, fail(KindAvailability, ReasonUnrecognized, t.text)
		}
		return []time.Time{p.alignYear(d)}, 2, nil
	}
	if wd, ok := weekdays[t.text]; ok {
		days, err := p.weekday(time.Weekday(wd))
		return days, 1, err
	}
	switch t.text {
	case "today":
		return []time.Time{p.today}, 1, nil
	case "tonight":
		return []time.Time{p.today}, 1, nil
	case "tomorrow", "tmrw", "tmr":
		return []time.Time{p.today.AddDate(0, 0, 1)}, 1, nil
	case "weekend", "weekends":
		sat, err := p.weekday(time.Saturday)
		if err != nil {
			sat = nil
		}
		sun, err2 := p.weekday(time.Sunday)
		if err2 != nil {
			sun = nil
		}
		if err != nil && err2 != nil {
			return nil, 0, err
		}
		return append(sat, sun...), 1, nil
	}
	if allDaysWords[t.text] && i+1 < len(toks) && toks[i+1].kind == tokWord && (toks[i+1].text == "days" || toks[i+1].text == "dates" || toks[i+1].text == "of") && len(p.pctx.ProposedDates) > 0 {
		return p.proposed(), 2, nil
	}
	return nil, 0, nil
}

// weekday resolves a day name against the proposed dates, or the next
// occurrence when none were proposed.
func (p *availParser) weekday(wd time.Weekday) ([]time.Time, error) {
	if len(p.pctx.ProposedDates) == 0 {
		return []time.Time{upcoming(p.today, wd, false)}, nil
	}
	var out []time.Time
	for _, d := range p.proposed() {
		if d.Weekday() == wd {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, fail(KindAvailability, ReasonOutsideDates, wd.String())
	}
	return out, nil
}

// alignYear snaps a month/day to the proposed date with the same month
// and day so year rollover never misses.
func (p *availParser) alignYear(d time.Time) time.Time {
	for _, pd := range p.proposed() {
		if pd.Month() == d.Month() && pd.Day() == d.Day() {
			return pd
		}
	}
	return d
}

func (p *availParser) proposed() []time.Time {
	out := make([]time.Time, len(p.pctx.ProposedDates))
	for i, d := range p.pctx.ProposedDates {
		out[i] = models.DateOf(d)
	}
	return out
}

func (p *availParser) addDays(days []time.Time, t token) {
	if p.emitted {
		p.current = nil
		p.emitted = false
	}
	if p.negNext {
		// "not Saturday"
		for _, d := range days {
			p.excluded[d] = true
			delete(p.out, d)
		}
		p.negNext = false
		return
	}
	// "Fri, 8/29": an explicit date replaces the weekday right before it.
	if t.kind == tokDate && len(p.current) > 0 {
		last := p.current[len(p.current)-1]
		if last.Weekday() == days[0].Weekday() {
			p.current = p.current[:len(p.current)-1]
		}
	}
	p.current = append(p.current, days...)
}

// emit records window w for the current days, or for every proposed date
// when no day was named.
func (p *availParser) emit(w period) error {
	days := p.current
	if len(days) == 0 {
		days = p.proposed()
		if len(days) == 0 {
			days = []time.Time{p.today}
		}
		p.current = days
	}
	for _, d := range days {
		if p.excluded[d] {
			continue
		}
		merged := w
		if prev, ok := p.out[d]; ok {
			merged = period{min(prev.start, w.start), max(prev.end, w.end)}
		}
		p.out[d] = merged
	}
	p.emitted = true
	p.negNext = false
	return nil
}

// negate drops the days named just before a negative word, or the ones
// named right after it.
func (p *availParser) negate() {
	p.sawNeg = true
	if len(p.current) == 0 || p.emitted {
		p.negNext = true
		return
	}
	for _, d := range p.current {
		p.excluded[d] = true
		delete(p.out, d)
	}
	p.current = nil
	p.emitted = false
}

func (p *availParser) intervals() []models.AvailabilityInterval {
	out := make([]models.AvailabilityInterval, 0, len(p.out))
	for d, w := range p.out {
		iv := models.AvailabilityInterval{Date: d, Start: w.start, End: w.end}
		if w.start == models.DayStart && w.end == models.DayEnd {
			iv.AllDay = true
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func isTimeLike(t token) bool {
	if t.kind == tokTime {
		return t.hour <= 23
	}
	return t.kind == tokWord && (t.text == "noon" || t.text == "midnight")
}

// timeWindow reads "T", or "T - T" / "T to T", at toks[i]. A lone time
// means from then on. n is the number of tokens consumed.
func timeWindow(toks []token, i int) (period, int, bool) {
	if !isTimeLike(toks[i]) {
		return period{}, 0, false
	}
	start := toks[i]
	if i+2 < len(toks) && isRangeWord(toks[i+1]) && isTimeLike(toks[i+2]) {
		s, e, ok := resolveRange(start, toks[i+2])
		if !ok {
			return period{}, 0, false
		}
		return period{s, e}, 3, true
	}
	return period{singleClock(start), models.DayEnd}, 1, true
}

func wordClock(t token) (models.Clock, bool) {
	if t.kind != tokWord {
		return 0, false
	}
	switch t.text {
	case "noon":
		return models.NewClock(12, 0), true
	case "midnight":
		return models.NewClock(0, 0), true
	}
	return 0, false
}

// explicit converts a time with a meridiem.
func explicit(t token) models.Clock {
	h := t.hour
	switch t.meridiem {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 12 {
			h += 12
		}
	}
	return models.NewClock(h, t.minute)
}

// singleClock guesses a meridiem for social plans: 1-7 is afternoon or
// evening, 8-11 morning, 12 noon.
func singleClock(t token) models.Clock {
	if c, ok := wordClock(t); ok {
		return c
	}
	if t.meridiem != "" || t.hour == 0 || t.hour > 12 {
		return explicit(t)
	}
	if t.hour <= 7 {
		return models.NewClock(t.hour+12, t.minute)
	}
	return models.NewClock(t.hour, t.minute)
}

func resolveRange(a, b token) (models.Clock, models.Clock, bool) {
	var start, end models.Clock
	_, aWord := wordClock(a)
	_, bWord := wordClock(b)

	switch {
	case bWord:
		start = singleClock(a)
		end, _ = wordClock(b)
		if end == 0 {
			end = models.DayEnd
		}
	case aWord:
		start, _ = wordClock(a)
		end = laterThan(b, start)
	case a.meridiem != "" && b.meridiem != "":
		start, end = explicit(a), explicit(b)
	case b.meridiem != "":
		end = explicit(b)
		if end == 0 {
			end = models.DayEnd
		}
		same := a
		same.meridiem = b.meridiem
		start = explicit(same)
		if start >= end {
			other := a
			other.meridiem = "am"
			if b.meridiem == "am" {
				other.meridiem = "pm"
			}
			start = explicit(other)
		}
	case a.meridiem != "":
		start = explicit(a)
		end = laterThan(b, start)
	default:
		start = singleClock(a)
		end = laterThan(b, start)
	}

	// Past midnight: the day ends at DayEnd.
	if end < start && end < models.DayStart {
		end = models.DayEnd
	}
	end = clampEnd(end)
	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// laterThan picks the reading of t that falls after start, capping at the
// end of the day.
func laterThan(t token, start models.Clock) models.Clock {
	if t.meridiem != "" || t.hour > 12 {
		c := explicit(t)
		if c == 0 {
			return models.DayEnd
		}
		return c
	}
	c := models.NewClock(t.hour, t.minute)
	if c <= start {
		c += 12 * 60
	}
	return c
}

func clampEnd(c models.Clock) models.Clock {
	if c > models.DayEnd || c == 0 {
		return models.DayEnd
	}
	return c
}
