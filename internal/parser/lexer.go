package parser

import (
	"regexp"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokTime
	tokDate
	tokOrdinal
	tokDash
	tokPunct
)

// token is one lexeme. Times carry hour/minute/meridiem, dates carry
// month/day/year, ordinals carry day.
type token struct {
	kind     tokenKind
	text     string
	hour     int
	minute   int
	meridiem string
	month    int
	day      int
	year     int
}

var (
	reDate    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
	reOrdinal = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)\b`)
	reTime    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm|a|p))?\b`)
	reDash    = regexp.MustCompile(`^(-|–|—)+`)
	rePunct   = regexp.MustCompile(`^[,;:&.!?()+]+`)
	reWord    = regexp.MustCompile(`^[a-z]+`)
	reSpace   = regexp.MustCompile(`^\s+`)

	normalizer = strings.NewReplacer(
		"a.m.", "am", "p.m.", "pm",
		"’", "", "'", "",
		"all-day", "allday", "all day", "allday",
		"any time", "anytime",
	)
)

// normalize lowercases and folds multi-word lexemes into single words.
func normalize(text string) string {
	return normalizer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// lex splits normalized text into tokens. It reports false when some
// input matches no lexeme at all, so gibberish fails instead of being
// skipped.
func lex(text string) ([]token, bool) {
	var toks []token
	rest := normalize(text)
	for len(rest) > 0 {
		if m := reSpace.FindString(rest); m != "" {
			rest = rest[len(m):]
			continue
		}
		if m := reDate.FindStringSubmatch(rest); m != nil {
			t := token{kind: tokDate, text: m[0], month: atoi(m[1]), day: atoi(m[2])}
			if m[3] != "" {
				t.year = atoi(m[3])
				if t.year < 100 {
					t.year += 2000
				}
			}
			toks = append(toks, t)
			rest = rest[len(m[0]):]
			continue
		}
		if m := reOrdinal.FindStringSubmatch(rest); m != nil {
			toks = append(toks, token{kind: tokOrdinal, text: m[0], day: atoi(m[1])})
			rest = rest[len(m[0]):]
			continue
		}
		if m := reTime.FindStringSubmatch(rest); m != nil {
			t := token{kind: tokTime, text: m[0], hour: atoi(m[1])}
			if m[2] != "" {
				t.minute = atoi(m[2])
			}
			switch m[3] {
			case "am", "a":
				t.meridiem = "am"
			case "pm", "p":
				t.meridiem = "pm"
			}
			// Bare numbers up to 31 stay tokens so "Aug 29-31" lexes; they
			// are not time-like.
			if t.hour > 31 || t.minute > 59 || (t.hour > 23 && (m[2] != "" || m[3] != "")) {
				return nil, false
			}
			toks = append(toks, t)
			rest = rest[len(m[0]):]
			continue
		}
		if m := reDash.FindString(rest); m != "" {
			toks = append(toks, token{kind: tokDash, text: m})
			rest = rest[len(m):]
			continue
		}
		if m := rePunct.FindString(rest); m != "" {
			toks = append(toks, token{kind: tokPunct, text: m})
			rest = rest[len(m):]
			continue
		}
		if m := reWord.FindString(rest); m != "" {
			toks = append(toks, token{kind: tokWord, text: m})
			rest = rest[len(m):]
			continue
		}
		return nil, false
	}
	return toks, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var weekdays = map[string]int{
	"sunday": 0, "sun": 0, "sundays": 0,
	"monday": 1, "mon": 1, "mondays": 1,
	"tuesday": 2, "tue": 2, "tues": 2, "tuesdays": 2,
	"wednesday": 3, "wed": 3, "weds": 3, "wednesdays": 3,
	"thursday": 4, "thu": 4, "thur": 4, "thurs": 4, "thursdays": 4,
	"friday": 5, "fri": 5, "fridays": 5,
	"saturday": 6, "sat": 6, "saturdays": 6,
}

var months = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5, "june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

// isRangeWord reports whether the token joins two ends of a range.
func isRangeWord(t token) bool {
	if t.kind == tokDash {
		return true
	}
	if t.kind != tokWord {
		return false
	}
	switch t.text {
	case "to", "through", "thru", "until", "till", "til":
		return true
	}
	return false
}
