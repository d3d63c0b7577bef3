package parser

import (
	"sms-planner/internal/models"
)

var timeFillers = map[string]bool{
	"at": true, "around": true, "lets": true, "let": true, "us": true, "say": true,
	"start": true, "starting": true, "begin": true, "do": true, "make": true, "it": true,
	"how": true, "about": true, "maybe": true, "ish": true, "please": true, "the": true,
	"time": true, "is": true, "should": true, "be": true, "we": true, "can": true, "by": true,
}

// ParseStartTime reads one clock time and resolves its meridiem so it
// falls inside [WindowStart, WindowEnd). With no window the social-hours
// guess of the availability parser is used.
func ParseStartTime(text string, pctx Context) (models.Clock, error) {
	toks, ok := lex(text)
	if !ok || len(toks) == 0 {
		return 0, fail(KindTimeSelection, ReasonUnrecognized, text)
	}

	var found *token
	for i := range toks {
		t := toks[i]
		switch {
		case isTimeLike(t):
			if found != nil {
				return 0, fail(KindTimeSelection, ReasonAmbiguous, text)
			}
			found = &toks[i]
		case t.kind == tokPunct:
		case t.kind == tokWord && (timeFillers[t.text] || t.text == "pm" || t.text == "am"):
			if found != nil && found.meridiem == "" && (t.text == "pm" || t.text == "am") {
				found.meridiem = t.text
			}
		default:
			return 0, fail(KindTimeSelection, ReasonUnrecognized, t.text)
		}
	}
	if found == nil {
		return 0, fail(KindTimeSelection, ReasonEmpty, text)
	}

	bounded := pctx.WindowEnd > pctx.WindowStart
	for _, c := range readings(*found) {
		if !bounded || (c >= pctx.WindowStart && c < pctx.WindowEnd) {
			return c, nil
		}
	}
	return 0, fail(KindTimeSelection, ReasonOutsideWindow, found.text)
}

// readings lists the plausible clocks for t, most likely first.
func readings(t token) []models.Clock {
	if c, ok := wordClock(t); ok {
		return []models.Clock{c}
	}
	if t.meridiem != "" || t.hour == 0 || t.hour > 12 {
		return []models.Clock{explicit(t)}
	}
	guess := singleClock(t)
	other := guess - 12*60
	if guess < 12*60 {
		other = guess + 12*60
	}
	if t.hour == 12 {
		// 12 with no meridiem is noon before midnight.
		return []models.Clock{guess}
	}
	return []models.Clock{guess, other}
}
